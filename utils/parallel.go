package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool manages a pool of workers for parallel processing
type WorkerPool struct {
	maxWorkers int
	jobCh      chan func()
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	wp := &WorkerPool{
		maxWorkers: maxWorkers,
		jobCh:      make(chan func(), maxWorkers*2), // Buffer for jobs
	}

	// Start workers
	for i := 0; i < maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for job := range wp.jobCh {
		if job != nil {
			job()
		}
	}
}

// Submit submits a job to the worker pool. It blocks while the queue is full.
// Submit must not be called after Close.
func (wp *WorkerPool) Submit(job func()) {
	wp.jobCh <- job
}

// Close stops accepting jobs and waits for queued jobs to finish
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.jobCh)
	})
	wp.wg.Wait()
}

// RateLimiter spaces operations at least 1/requestsPerSecond apart.
// A zero rate disables limiting.
type RateLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	next     time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	rl := &RateLimiter{}
	if requestsPerSecond > 0 {
		rl.interval = time.Second / time.Duration(requestsPerSecond)
	}
	return rl
}

// Wait waits for permission to make a request
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.interval == 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := time.Now()
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.interval)
	rl.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
