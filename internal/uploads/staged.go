package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFileMissing indicates a required upload was absent from the request.
var ErrFileMissing = errors.New("upload file missing")

// StagedFile is a transient local copy of an uploaded file. It exists only for
// the duration of one request and is always removed, whatever the outcome.
type StagedFile struct {
	Name string
	Path string
	Size int64
}

// Stage copies one multipart file into the staging directory and returns a
// handle the saga can upload from.
func Stage(dir string, header *multipart.FileHeader) (StagedFile, error) {
	if header == nil {
		return StagedFile{}, ErrFileMissing
	}

	src, err := header.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "staged-*"+filepath.Ext(header.Filename))
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return StagedFile{}, fmt.Errorf("stage upload %s: %w", header.Filename, err)
	}

	return StagedFile{
		Name: header.Filename,
		Path: dst.Name(),
		Size: size,
	}, nil
}

// Remove deletes the staged file from local disk. Missing files are not an
// error so cleanup can run unconditionally.
func (f StagedFile) Remove() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ObjectKey derives a unique object-store key for the staged file, scoped
// under the provided prefix.
func (f StagedFile) ObjectKey(prefix string) string {
	return filepath.ToSlash(filepath.Join(prefix, uuid.NewString()+filepath.Ext(f.Name)))
}
