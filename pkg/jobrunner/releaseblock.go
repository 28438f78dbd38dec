// Package jobrunner implements a job execution substrate: jobs are packaged
// into a thread-safe queue and dispatched across a fixed pool of worker
// goroutines, with lifecycle transitions observable through callbacks.
package jobrunner

import (
	"sync"
	"time"
)

// ReleaseBlock is a resettable gate: callers parked on Block return once the
// gate is released, and callers that arrive after release return immediately.
// It is the predicate-guarded cond pattern generalized with a live waiter
// count and a timed variant.
type ReleaseBlock struct {
	mu        sync.Mutex
	cond      *sync.Cond
	released  bool
	waitCount int
}

// NewReleaseBlock creates a gate with the given initial released state.
func NewReleaseBlock(released bool) *ReleaseBlock {
	b := &ReleaseBlock{released: released}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Block parks the caller until the gate is released. Returns immediately if
// already released.
func (b *ReleaseBlock) Block() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.waitCount++
	for !b.released {
		b.cond.Wait()
	}
	b.waitCount--
	b.cond.Broadcast()
}

// BlockTimeout is like Block but also wakes once timeout elapses. The caller
// observes the released flag itself if it cares why it woke.
func (b *ReleaseBlock) BlockTimeout(timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}

	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()

	b.waitCount++
	for !b.released && time.Now().Before(deadline) {
		b.cond.Wait()
	}
	b.waitCount--
	b.cond.Broadcast()
}

// Set atomically updates the released flag and wakes every waiter so each
// re-checks the predicate.
func (b *ReleaseBlock) Set(flag bool) {
	b.mu.Lock()
	b.released = flag
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Release is shorthand for Set(true).
func (b *ReleaseBlock) Release() {
	b.Set(true)
}

// Reset clears the released flag without touching any parked waiters. Only
// safe to call when no caller is currently blocked.
func (b *ReleaseBlock) Reset() {
	b.mu.Lock()
	b.released = false
	b.mu.Unlock()
}

// Released reports the current gate state.
func (b *ReleaseBlock) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Close releases the gate and waits for every parked waiter to drain before
// returning, so the caller can safely discard the block afterward.
func (b *ReleaseBlock) Close() {
	b.mu.Lock()
	b.released = true
	b.cond.Broadcast()
	for b.waitCount > 0 {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
