package jobrunner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_RejectsNegativeThreads(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic constructing pool with negative thread count")
		}
	}()
	NewPool(nil, -1, nil)
}

func TestPool_ZeroThreadsIsValidButInert(t *testing.T) {
	p := NewPool(nil, 0, nil)
	defer p.Close()

	j := noopJob("stuck")
	p.Queue().Add(j, true)

	time.Sleep(100 * time.Millisecond)
	if p.HasJobsToProcess() {
		t.Fatal("a pool with zero workers must never report it has jobs to process")
	}
	if j.IsFinished() {
		t.Fatal("a job submitted to a zero-worker pool must not run")
	}
}

func TestPool_DrainsAllSubmittedJobs(t *testing.T) {
	const workers = 5
	const jobs = 10

	p := NewPool(nil, workers, nil)
	defer p.Close()

	var finished int32
	var wg sync.WaitGroup
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		j := NewJob("", "job", func(j *Job) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		})
		j.AddCallback(&JobCallbackFuncs{FinishedFunc: func(j *Job) {
			atomic.AddInt32(&finished, 1)
			wg.Done()
		}})
		p.Queue().Add(j, true)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("not all jobs finished; got %d/%d", atomic.LoadInt32(&finished), jobs)
	}

	if got := atomic.LoadInt32(&finished); got != jobs {
		t.Fatalf("finished = %d, want %d", got, jobs)
	}
}

func TestPool_SetNumberOfThreadsGrowAndShrink(t *testing.T) {
	p := NewPool(nil, 2, nil)
	defer p.Close()

	p.SetNumberOfThreads(5)
	if got := p.NumberOfThreads(); got != 5 {
		t.Fatalf("NumberOfThreads() = %d, want 5 after growth", got)
	}

	p.SetNumberOfThreads(5) // idempotent no-op
	if got := p.NumberOfThreads(); got != 5 {
		t.Fatalf("NumberOfThreads() = %d, want 5 after no-op resize", got)
	}

	p.SetNumberOfThreads(1)
	if got := p.NumberOfThreads(); got != 1 {
		t.Fatalf("NumberOfThreads() = %d, want 1 after shrink", got)
	}
}

func TestPool_CancelWhileProcessingWaitsForCurrentChunk(t *testing.T) {
	p := NewPool(nil, 2, nil)

	chunkDone := make(chan struct{})
	j := NewJob("", "slow", func(j *Job) error {
		for i := 0; i < 5; i++ {
			if j.IsCanceled() {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		close(chunkDone)
		return nil
	})
	p.Queue().Add(j, true)

	time.Sleep(50 * time.Millisecond)
	p.Cancel()

	select {
	case <-chunkDone:
	case <-time.After(time.Second):
		t.Fatal("job body never observed cancellation cooperatively")
	}

	done := make(chan struct{})
	go func() {
		p.WaitForCompletion()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForCompletion() did not return promptly after cancellation")
	}
}

func TestPool_CloseOrder(t *testing.T) {
	p := NewPool(nil, 3, nil)
	p.Close()

	if p.NumberOfThreads() != 0 {
		t.Fatalf("NumberOfThreads() = %d, want 0 after Close", p.NumberOfThreads())
	}
}
