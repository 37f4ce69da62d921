// Package ratelimit serializes outbound API calls under a replenishing
// reservoir of permits, mirroring the upstream quota: at most N call starts
// per interval, one call in flight at a time, and a minimum spacing between
// starts.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config sets the reservoir size, its refresh interval, and the minimum
// spacing between task starts.
type Config struct {
	Reservoir  int
	Interval   time.Duration
	MinSpacing time.Duration
}

type job struct {
	ctx    context.Context
	task   func() error
	result chan error
}

// Limiter admits queued tasks in submission order. A single worker drains
// the queue, so at most one task runs at a time and FIFO ordering holds.
type Limiter struct {
	cfg     Config
	spacing *rate.Limiter
	queue   chan job

	mu          sync.Mutex
	permits     int
	windowStart time.Time
	now         func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a started Limiter. Call Close when no more tasks will be
// scheduled.
func New(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		spacing: rate.NewLimiter(rate.Every(cfg.MinSpacing), 1),
		queue:   make(chan job),
		permits: cfg.Reservoir,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	l.windowStart = l.now()
	go l.run()
	return l
}

// Schedule submits a task and blocks until it has run, returning the task's
// error. The context aborts waiting; once the task starts it runs to
// completion and its permit is consumed whether it succeeds or fails.
func (l *Limiter) Schedule(ctx context.Context, task func() error) error {
	select {
	case <-l.stop:
		return context.Canceled
	default:
	}

	result := make(chan error, 1)
	select {
	case l.queue <- job{ctx: ctx, task: task, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return context.Canceled
	}
	return <-result
}

// Close stops the worker. Tasks already admitted still complete; later
// Schedule calls fail.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) run() {
	for {
		select {
		case <-l.stop:
			return
		case j := <-l.queue:
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}
			if err := l.acquire(j.ctx); err != nil {
				j.result <- err
				continue
			}
			if err := l.spacing.Wait(j.ctx); err != nil {
				j.result <- err
				continue
			}
			j.result <- j.task()
		}
	}
}

// acquire blocks until a reservoir permit is available. The reservoir
// refills in full at each interval boundary; consumption is atomic with
// respect to concurrent Schedule calls because only the worker consumes.
func (l *Limiter) acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		if now.Sub(l.windowStart) >= l.cfg.Interval {
			l.windowStart = now
			l.permits = l.cfg.Reservoir
		}
		if l.permits > 0 {
			l.permits--
			l.mu.Unlock()
			return nil
		}
		wait := l.cfg.Interval - now.Sub(l.windowStart)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
