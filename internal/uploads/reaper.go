package uploads

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReaperConfig controls the concurrency characteristics of the reaper.
type ReaperConfig struct {
	QueueSize int
	Workers   int
	Attempts  int
	Backoff   time.Duration
}

// Reaper asynchronously retries blob deletes whose inline compensation
// failed, so a transient object-store outage does not leave orphans behind.
type Reaper struct {
	store  BlobStore
	logger *slog.Logger

	attempts int
	backoff  time.Duration

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewReaper constructs a background worker pool that deletes orphaned blobs.
func NewReaper(store BlobStore, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Reaper{
		store:    store,
		logger:   logger,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		jobs:     make(chan string, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules a blob key for deletion retry. A full queue drops the key
// with a log entry rather than blocking the caller's rollback path.
func (r *Reaper) Enqueue(key string) {
	if key == "" {
		return
	}

	select {
	case <-r.ctx.Done():
	case r.jobs <- key:
	default:
		r.logger.Error("reaper queue full, dropping orphaned blob", "key", key)
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (r *Reaper) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Reaper) worker() {
	defer r.wg.Done()

	for key := range r.jobs {
		r.reap(key)
	}
}

func (r *Reaper) reap(key string) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.store.Delete(ctx, key)
		cancel()

		if err == nil {
			r.logger.Info("orphaned blob reaped", "key", key, "attempt", attempt)
			return
		}

		r.logger.Warn("orphaned blob delete retry failed", "key", key, "attempt", attempt, "error", err)

		if attempt < r.attempts {
			timer := time.NewTimer(r.backoff)
			select {
			case <-r.ctx.Done():
				// Shutting down: skip the backoff, remaining attempts run
				// back to back before the worker exits.
			case <-timer.C:
			}
			timer.Stop()
		}
	}

	r.logger.Error("orphaned blob could not be deleted", "key", key, "attempts", r.attempts)
}
