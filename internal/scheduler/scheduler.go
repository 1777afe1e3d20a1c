package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-recruitment-scheduler/pkg/logger"

	"github.com/gofrs/flock"
)

// ErrLocked means another process on this host already holds the lock file.
var ErrLocked = errors.New("scheduler: lock held by another process")

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done. Runs
// never overlap: a slow run delays the next tick.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run(ctx, name, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run(ctx, name, task)
		}
	}
}

func run(ctx context.Context, name string, task Task) {
	started := time.Now()
	if err := task(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Error("scheduled task failed", "task", name, "error", err)
		return
	}
	logger.Log.Debug("scheduled task finished", "task", name, "took", time.Since(started))
}

// Lock takes the exclusive lock file at path without blocking. The returned
// func releases it.
func Lock(path string) (func() error, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}
