package jobrunner

import (
	"sync"

	"github.com/fluxorio/jobrunner/pkg/failfast"
)

// Barrier is a reusable N-party rendezvous. Block parks each caller until
// maxCount callers have arrived, then releases them all together; Reset
// rearms the barrier for another round.
type Barrier struct {
	mu           sync.Mutex
	cond         *sync.Cond // signaled when blockedCount reaches maxCount
	drainCond    *sync.Cond // signaled when waitCount reaches zero
	maxCount     int
	blockedCount int
	waitCount    int
}

// NewBarrier creates a barrier requiring maxCount arrivals per round.
func NewBarrier(maxCount int) *Barrier {
	failfast.Positive(maxCount, "barrier: maxCount")
	b := &Barrier{maxCount: maxCount}
	b.cond = sync.NewCond(&b.mu)
	b.drainCond = sync.NewCond(&b.mu)
	return b
}

// Block parks the caller until maxCount total arrivals (across the current
// round) have called Block.
func (b *Barrier) Block() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.blockedCount++
	if b.blockedCount < b.maxCount {
		b.waitCount++
		for b.blockedCount < b.maxCount {
			b.cond.Wait()
		}
		b.waitCount--
	} else {
		b.cond.Broadcast()
	}
	b.drainCond.Broadcast()
}

// Reset forces the current round to complete, waits for every parked caller
// to drain, then rearms the barrier for a fresh round with the same
// maxCount.
func (b *Barrier) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

// ResetMax is like Reset but also changes maxCount for the next round.
func (b *Barrier) ResetMax(newMax int) {
	failfast.Positive(newMax, "barrier: maxCount")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxCount = newMax
	b.resetLocked()
}

func (b *Barrier) resetLocked() {
	b.blockedCount = b.maxCount
	b.cond.Broadcast()
	for b.waitCount > 0 {
		b.drainCond.Wait()
	}
	b.blockedCount = 0
}

// MaxCount returns the number of arrivals required per round.
func (b *Barrier) MaxCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxCount
}

// BlockedCount returns the number of arrivals so far in the current round.
func (b *Barrier) BlockedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockedCount
}

// WaitCount returns the number of callers currently parked in Block. Used by
// WorkerOnQueue.SetJobQueue to detect when a paused worker has actually
// parked.
func (b *Barrier) WaitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waitCount
}
