// Package schedule runs a single function on a fixed interval until
// stopped.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start on a running job.
var ErrAlreadyRunning = errors.New("job is already running")

// Func is the work performed on every tick.
type Func func(ctx context.Context, now time.Time)

// Job calls fn every interval on its own goroutine. A panic in fn is
// recovered and logged so the job keeps ticking.
//
// Thread Safety: Start and Stop may be called from any goroutine. Stop
// waits for an in-flight tick to finish, so no tick runs after Stop
// returns.
type Job struct {
	name     string
	interval time.Duration
	fn       Func
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewJob creates a stopped job.
func NewJob(name string, interval time.Duration, fn Func, logger *zap.Logger) (*Job, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("job %s: interval must be positive, got %v", name, interval)
	}
	if fn == nil {
		return nil, fmt.Errorf("job %s: func is required", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{name: name, interval: interval, fn: fn, logger: logger}, nil
}

// Start begins ticking. The first tick fires one interval after Start.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true

	go j.run(runCtx, j.done)

	j.logger.Info("job started",
		zap.String("job", j.name),
		zap.Duration("interval", j.interval))
	return nil
}

// Stop cancels the job and waits for it to exit. Stopping a stopped job
// is a no-op.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.running = false
	j.cancel = nil
	j.done = nil
	j.mu.Unlock()

	cancel()
	<-done
	j.logger.Info("job stopped", zap.String("job", j.name))
}

// Running reports whether the job is started.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Job) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			j.tick(ctx, now)
		}
	}
}

func (j *Job) tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("job panicked",
				zap.String("job", j.name),
				zap.Any("panic", r))
		}
	}()
	j.fn(ctx, now)
}
