package uploads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/storage"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]string
	uploads []string
	deletes []string

	failUploadKey  string
	failDeletes    bool
	failDeleteOnce bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]string)}
}

func (f *fakeBlobStore) UploadFile(_ context.Context, key, localPath string) (storage.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.failUploadKey {
		return storage.Blob{}, fmt.Errorf("upload %s: %w", key, storage.ErrUpstream)
	}
	if _, err := os.Stat(localPath); err != nil {
		return storage.Blob{}, fmt.Errorf("staged file unreadable: %w", err)
	}
	f.objects[key] = localPath
	f.uploads = append(f.uploads, key)
	return storage.Blob{Key: key, URL: "https://blobs.test/" + key}, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.failDeletes {
		return fmt.Errorf("delete %s: %w", key, storage.ErrUpstream)
	}
	if f.failDeleteOnce {
		f.failDeleteOnce = false
		return fmt.Errorf("delete %s: %w", key, storage.ErrUpstream)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) storedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func stageTestFile(t *testing.T, dir, name string) StagedFile {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("payload-"+name), 0o600); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return StagedFile{Name: name, Path: path, Size: int64(len("payload-" + name))}
}

func TestSagaRunHappyPath(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	saga := NewSaga(store, nil, nil)

	assets := []Asset{
		{Field: "videoFile", Key: "videos/v1/media.mp4", Staged: stageTestFile(t, dir, "media.mp4")},
		{Field: "thumbnail", Key: "videos/v1/thumb.png", Staged: stageTestFile(t, dir, "thumb.png")},
	}

	var persisted map[string]storage.Blob
	err := saga.Run(context.Background(), assets, func(_ context.Context, blobs map[string]storage.Blob) error {
		persisted = blobs
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(persisted) != 2 {
		t.Fatalf("expected two blobs, got %+v", persisted)
	}
	if persisted["videoFile"].URL == "" || persisted["thumbnail"].URL == "" {
		t.Fatalf("expected blob URLs, got %+v", persisted)
	}
	if len(store.deletes) != 0 {
		t.Fatalf("expected zero deletes on success, got %v", store.deletes)
	}
	if got := store.uploads; len(got) != 2 || got[0] != assets[0].Key || got[1] != assets[1].Key {
		t.Fatalf("expected uploads in declared order, got %v", got)
	}
	for _, asset := range assets {
		if _, err := os.Stat(asset.Staged.Path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("staged file %s should be removed, stat err %v", asset.Staged.Path, err)
		}
	}
}

func TestSagaRunPersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	saga := NewSaga(store, nil, nil)

	assets := []Asset{
		{Field: "videoFile", Key: "videos/v1/media.mp4", Staged: stageTestFile(t, dir, "media.mp4")},
		{Field: "thumbnail", Key: "videos/v1/thumb.png", Staged: stageTestFile(t, dir, "thumb.png")},
	}

	persistErr := errors.New("insert video: boom")
	err := saga.Run(context.Background(), assets, func(context.Context, map[string]storage.Blob) error {
		return persistErr
	})
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error to surface, got %v", err)
	}

	if len(store.deletes) != 2 {
		t.Fatalf("expected two compensating deletes, got %v", store.deletes)
	}
	if store.deletes[0] != assets[1].Key || store.deletes[1] != assets[0].Key {
		t.Fatalf("expected reverse-order rollback, got %v", store.deletes)
	}
	if keys := store.storedKeys(); len(keys) != 0 {
		t.Fatalf("expected no orphaned blobs, got %v", keys)
	}
	for _, asset := range assets {
		if _, err := os.Stat(asset.Staged.Path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("staged file %s should be removed after failure", asset.Staged.Path)
		}
	}
}

func TestSagaRunUploadFailureRollsBackEarlierUploads(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	store.failUploadKey = "videos/v1/thumb.png"
	saga := NewSaga(store, nil, nil)

	assets := []Asset{
		{Field: "videoFile", Key: "videos/v1/media.mp4", Staged: stageTestFile(t, dir, "media.mp4")},
		{Field: "thumbnail", Key: "videos/v1/thumb.png", Staged: stageTestFile(t, dir, "thumb.png")},
	}

	persistCalled := false
	err := saga.Run(context.Background(), assets, func(context.Context, map[string]storage.Blob) error {
		persistCalled = true
		return nil
	})
	if !errors.Is(err, storage.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if persistCalled {
		t.Fatal("persist must not run after a failed upload")
	}

	if len(store.deletes) != 1 || store.deletes[0] != assets[0].Key {
		t.Fatalf("expected one compensating delete for the first upload, got %v", store.deletes)
	}
	if keys := store.storedKeys(); len(keys) != 0 {
		t.Fatalf("expected no orphaned blobs, got %v", keys)
	}
}

func TestSagaRunRollbackFailuresDoNotMaskOriginalError(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	store.failDeletes = true
	saga := NewSaga(store, nil, nil)

	assets := []Asset{
		{Field: "videoFile", Key: "videos/v1/media.mp4", Staged: stageTestFile(t, dir, "media.mp4")},
		{Field: "thumbnail", Key: "videos/v1/thumb.png", Staged: stageTestFile(t, dir, "thumb.png")},
	}

	persistErr := errors.New("insert video: boom")
	err := saga.Run(context.Background(), assets, func(context.Context, map[string]storage.Blob) error {
		return persistErr
	})
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected original persist error, got %v", err)
	}

	// Both deletes were still attempted even though each one failed.
	if len(store.deletes) != 2 {
		t.Fatalf("expected both compensations attempted, got %v", store.deletes)
	}
}

func TestSagaRunFailedCompensationGoesToReaper(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	store.failDeleteOnce = true
	reaper := NewReaper(store, ReaperConfig{Attempts: 3, Backoff: time.Millisecond}, nil)
	saga := NewSaga(store, reaper, nil)

	assets := []Asset{
		{Field: "videoFile", Key: "videos/v1/media.mp4", Staged: stageTestFile(t, dir, "media.mp4")},
	}

	persistErr := errors.New("insert video: boom")
	if err := saga.Run(context.Background(), assets, func(context.Context, map[string]storage.Blob) error {
		return persistErr
	}); !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := reaper.Shutdown(ctx); err != nil {
		t.Fatalf("reaper shutdown: %v", err)
	}

	if keys := store.storedKeys(); len(keys) != 0 {
		t.Fatalf("expected reaper to remove orphaned blob, got %v", keys)
	}
}

func TestSagaReplaceSuccessDeletesOldBlobLast(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	store.objects["users/u1/avatar-old.png"] = "old"
	saga := NewSaga(store, nil, nil)

	asset := Asset{Field: "avatar", Key: "users/u1/avatar-new.png", Staged: stageTestFile(t, dir, "avatar-new.png")}

	var persisted storage.Blob
	err := saga.Replace(context.Background(), asset, "users/u1/avatar-old.png", func(_ context.Context, blob storage.Blob) error {
		persisted = blob
		return nil
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if persisted.Key != asset.Key {
		t.Fatalf("expected new blob persisted, got %+v", persisted)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "users/u1/avatar-old.png" {
		t.Fatalf("expected old blob deleted once, got %v", store.deletes)
	}
	if _, ok := store.objects[asset.Key]; !ok {
		t.Fatal("expected new blob to remain stored")
	}
}

func TestSagaReplacePersistFailureKeepsOldBlob(t *testing.T) {
	dir := t.TempDir()
	store := newFakeBlobStore()
	store.objects["users/u1/avatar-old.png"] = "old"
	saga := NewSaga(store, nil, nil)

	asset := Asset{Field: "avatar", Key: "users/u1/avatar-new.png", Staged: stageTestFile(t, dir, "avatar-new.png")}

	persistErr := fmt.Errorf("update user: %w", storage.ErrUpstream)
	err := saga.Replace(context.Background(), asset, "users/u1/avatar-old.png", func(context.Context, storage.Blob) error {
		return persistErr
	})
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}

	if _, ok := store.objects["users/u1/avatar-old.png"]; !ok {
		t.Fatal("old blob must remain untouched when the update fails")
	}
	if _, ok := store.objects[asset.Key]; ok {
		t.Fatal("new blob must be rolled back when the update fails")
	}
	if _, err := os.Stat(asset.Staged.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("staged file should be removed after failure")
	}
}

func TestStagedFileRemoveIdempotent(t *testing.T) {
	dir := t.TempDir()
	staged := stageTestFile(t, dir, "once.bin")

	if err := staged.Remove(); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := staged.Remove(); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if err := (StagedFile{}).Remove(); err != nil {
		t.Fatalf("zero-value remove: %v", err)
	}
}
