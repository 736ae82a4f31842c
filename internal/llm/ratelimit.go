package llm

import (
	"context"
	"sync"
	"time"

	"dbmarkdown/internal/logger"
)

const (
	DefaultRequestsPerWindow = 15
	DefaultWindow            = time.Minute

	// waitMargin is added to every quota wait.
	waitMargin = 100 * time.Millisecond
)

// Clock abstracts time so waits can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// RateLimiter counts requests in a fixed window that starts at the first
// request after the previous window expired.
type RateLimiter struct {
	limit  int
	window time.Duration
	clock  Clock

	turn sync.Mutex // serializes wait, dispatch and record

	mu    sync.Mutex
	count int
	start time.Time
}

// NewRateLimiter allows limit requests per window. A nil clock means RealClock.
func NewRateLimiter(limit int, window time.Duration, clock Clock) *RateLimiter {
	if clock == nil {
		clock = RealClock
	}
	if limit <= 0 {
		limit = DefaultRequestsPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{limit: limit, window: window, clock: clock, start: clock.Now()}
}

// Do waits for quota, runs send and counts it against the window whether
// or not send succeeded. Concurrent callers are served one at a time so
// the check and the increment can never interleave.
func (r *RateLimiter) Do(ctx context.Context, send func() error) error {
	r.turn.Lock()
	defer r.turn.Unlock()

	if err := r.Wait(ctx); err != nil {
		return err
	}
	err := send()
	r.Record()
	return err
}

// Wait returns once a request may be issued. An expired window is reset
// immediately. A full window suspends the caller until it expires plus
// a 100ms margin, after which the counter starts again from zero.
func (r *RateLimiter) Wait(ctx context.Context) error {
	d, ok := r.delay()
	if ok {
		return nil
	}

	logger.Info("request quota of %d per %s reached, waiting %.2fs", r.limit, r.window, d.Seconds())
	if err := r.clock.Sleep(ctx, d); err != nil {
		return err
	}

	r.mu.Lock()
	r.count = 0
	r.start = r.clock.Now()
	r.mu.Unlock()
	return nil
}

// delay reports how long to wait; ok means no wait is needed.
func (r *RateLimiter) delay() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	end := r.start.Add(r.window)
	if now.After(end) {
		r.count = 0
		r.start = now
		return 0, true
	}
	if r.count < r.limit {
		return 0, true
	}
	return end.Sub(now) + waitMargin, false
}

// Record counts one issued request.
func (r *RateLimiter) Record() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.After(r.start.Add(r.window)) {
		r.count = 0
		r.start = now
	}
	r.count++
}

// Count returns the number of requests recorded in the current window.
func (r *RateLimiter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// WindowStart returns the start of the current window.
func (r *RateLimiter) WindowStart() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start
}
