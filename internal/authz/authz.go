// Package authz implements the ownership check shared by every mutating
// endpoint. Existence is the caller's question; this package only answers
// whether an already-found resource belongs to the acting principal.
package authz

import "errors"

// ErrForbidden indicates the principal does not own the resource. It is a
// distinct failure from a missing resource, which callers report before
// ever consulting this package.
var ErrForbidden = errors.New("principal does not own resource")

// Authorize returns nil iff principalID is a member of owners. Resources with
// a single owner pass it as a one-element set.
func Authorize(principalID string, owners ...string) error {
	if principalID == "" {
		return ErrForbidden
	}
	for _, owner := range owners {
		if owner == principalID {
			return nil
		}
	}
	return ErrForbidden
}
