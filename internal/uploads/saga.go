package uploads

import (
	"context"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/storage"
)

// BlobStore is the slice of the object store the saga needs: put a staged
// local file, delete by key.
type BlobStore interface {
	UploadFile(ctx context.Context, key, localPath string) (storage.Blob, error)
	Delete(ctx context.Context, key string) error
}

// Asset pairs a staged local file with the object key it will be stored under
// and the record field that will reference it.
type Asset struct {
	Field  string
	Key    string
	Staged StagedFile
}

// Saga coordinates blob uploads with a durable-record write so neither
// orphaned blobs nor dangling records survive a partial failure. Uploads are
// recorded in an append-only ledger; if the record write (or a later upload)
// fails, every ledger entry is compensated with a delete in reverse order.
type Saga struct {
	store  BlobStore
	logger *slog.Logger
	reaper *Reaper

	rollbackTimeout time.Duration
}

// NewSaga constructs a saga bound to the provided blob store. The reaper is
// optional; when present, blobs whose compensating delete fails are handed to
// it for retry instead of being abandoned.
func NewSaga(store BlobStore, reaper *Reaper, logger *slog.Logger) *Saga {
	if store == nil {
		panic("uploads: blob store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{
		store:           store,
		logger:          logger,
		reaper:          reaper,
		rollbackTimeout: 15 * time.Second,
	}
}

// Run uploads the assets in declared order, removes every staged file
// regardless of outcome, then invokes persist with the uploaded blobs keyed by
// field. If any upload or the persist step fails, all blobs uploaded so far
// are deleted in reverse order and the original error is returned. Callers
// must have validated record fields before calling Run; nothing is uploaded
// for a request that cannot succeed.
func (s *Saga) Run(ctx context.Context, assets []Asset, persist func(ctx context.Context, blobs map[string]storage.Blob) error) error {
	ctx, span := logging.StartSpan(ctx, "upload-saga")
	defer span.End()

	defer s.removeStaged(ctx, assets)

	var ledger []storage.Blob
	blobs := make(map[string]storage.Blob, len(assets))

	for _, asset := range assets {
		blob, err := s.store.UploadFile(ctx, asset.Key, asset.Staged.Path)
		if err != nil {
			s.rollback(ledger)
			return err
		}
		ledger = append(ledger, blob)
		blobs[asset.Field] = blob
	}

	if err := persist(ctx, blobs); err != nil {
		s.rollback(ledger)
		return err
	}

	// Ownership of the blobs has transferred to the record.
	return nil
}

// Replace uploads a replacement blob, persists the new reference, and only
// then deletes the previously referenced blob. A failure in the persist step
// deletes the replacement and leaves the old blob untouched, so the record
// never points at a deleted object.
func (s *Saga) Replace(ctx context.Context, asset Asset, oldKey string, persist func(ctx context.Context, blob storage.Blob) error) error {
	ctx, span := logging.StartSpan(ctx, "replace-asset")
	defer span.End()

	defer s.removeStaged(ctx, []Asset{asset})

	blob, err := s.store.UploadFile(ctx, asset.Key, asset.Staged.Path)
	if err != nil {
		return err
	}

	if err := persist(ctx, blob); err != nil {
		s.rollback([]storage.Blob{blob})
		return err
	}

	if oldKey != "" {
		s.deleteBlob(oldKey)
	}
	return nil
}

// Discard deletes blobs that no durable record references anymore, e.g.
// after the owning record was deleted. Failures are retried by the reaper.
func (s *Saga) Discard(keys ...string) {
	for _, key := range keys {
		if key != "" {
			s.deleteBlob(key)
		}
	}
}

// rollback compensates uploads in reverse ledger order. Each delete is
// attempted independently on a context detached from the request, so a
// canceled request or one failed delete cannot abandon the remaining blobs.
func (s *Saga) rollback(ledger []storage.Blob) {
	for i := len(ledger) - 1; i >= 0; i-- {
		s.deleteBlob(ledger[i].Key)
	}
}

func (s *Saga) deleteBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.rollbackTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("compensating blob delete failed", "key", key, "error", err)
		if s.reaper != nil {
			s.reaper.Enqueue(key)
		}
	}
}

func (s *Saga) removeStaged(ctx context.Context, assets []Asset) {
	for _, asset := range assets {
		if err := asset.Staged.Remove(); err != nil {
			logging.FromContext(ctx).Error("remove staged file", "path", asset.Staged.Path, "error", err)
		}
	}
}
