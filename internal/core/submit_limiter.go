package core

// submit_limiter.go bounds how many sessions write to the destination at once.
//
// Every wizard session submits independently, but they share one destination
// connection pool. The limiter is a semaphore: a submission takes a slot for
// the duration of the write and waits up to maxWait for one to free up before
// failing with ErrTooManySubmits. WaitForDrain lets shutdown wait for writes
// that are already running.

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxConcurrentSubmits = 4
	DefaultSubmitWait           = 30 * time.Second
)

// SubmitLimiter is a counting semaphore for destination writes.
type SubmitLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter allows at most maxConcurrent writes; a waiter gives up
// after maxWait. Non-positive arguments select the defaults.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmits
	}
	if maxWait <= 0 {
		maxWait = DefaultSubmitWait
	}
	return &SubmitLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManySubmits
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *SubmitLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// ActiveCount returns the number of writes in progress.
func (l *SubmitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

func (l *SubmitLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

func (l *SubmitLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no write is in progress or ctx is done.
func (l *SubmitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Limit wraps s so every submission holds a slot while it runs.
// Schema binding passes through, so limited sinks still see their schema.
func (l *SubmitLimiter) Limit(s Submitter) Submitter {
	return &limitedSubmitter{limiter: l, next: s}
}

type limitedSubmitter struct {
	limiter *SubmitLimiter
	next    Submitter
}

func (ls *limitedSubmitter) Submit(ctx context.Context, p Payload) error {
	if err := ls.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer ls.limiter.Release()
	return ls.next.Submit(ctx, p)
}

func (ls *limitedSubmitter) ForSchema(schema Schema) Submitter {
	return &limitedSubmitter{limiter: ls.limiter, next: bindSubmitter(ls.next, schema)}
}

// SubmitLimiterStatus is a monitoring snapshot.
type SubmitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *SubmitLimiter) Status() SubmitLimiterStatus {
	return SubmitLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
