package jobrunner

import (
	"testing"
	"time"
)

func TestWorker_RunsBodyAndCompletes(t *testing.T) {
	ran := make(chan struct{})
	w := NewWorker(func(w *Worker) error {
		close(ran)
		return nil
	}, nil)
	w.Start()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker body never ran")
	}

	w.WaitForCompletion()
	if w.IsRunning() {
		t.Fatal("expected IsRunning() false after completion")
	}
}

func TestWorker_StartIsNoOpWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	w := NewWorker(func(w *Worker) error {
		close(started)
		<-release
		return nil
	}, nil)
	w.Start()
	<-started

	w.Start() // must be a no-op, not a second goroutine racing the first

	close(release)
	w.WaitForCompletion()
}

func TestWorker_CancelStopsLoopAtCheckpoint(t *testing.T) {
	iterations := 0
	stopped := make(chan struct{})
	w := NewWorker(func(w *Worker) error {
		for {
			if w.Checkpoint() {
				close(stopped)
				return nil
			}
			iterations++
			if iterations > 100000 {
				return nil
			}
		}
	}, nil)
	w.Start()
	w.Cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not observe cancellation at checkpoint")
	}
	w.WaitForCompletion()
}

func TestWorker_PauseParksAtCheckpointUntilResume(t *testing.T) {
	atCheckpoint := make(chan struct{}, 1)
	pastCheckpoint := make(chan struct{})
	w := NewWorker(func(w *Worker) error {
		for {
			select {
			case atCheckpoint <- struct{}{}:
			default:
			}
			if w.Checkpoint() {
				return nil
			}
			select {
			case pastCheckpoint <- struct{}{}:
			default:
			}
		}
	}, nil)

	w.Pause()
	w.Start()

	select {
	case <-pastCheckpoint:
		t.Fatal("worker passed a checkpoint while paused")
	case <-time.After(100 * time.Millisecond):
	}

	w.Resume()

	select {
	case <-pastCheckpoint:
	case <-time.After(time.Second):
		t.Fatal("worker never passed the checkpoint after Resume")
	}

	w.Cancel()
	w.WaitForCompletion()
}

func TestWorkerOnQueue_ProcessesQueuedJobs(t *testing.T) {
	q := NewJobQueue()
	wq := NewWorkerOnQueue(q, nil)
	wq.Start()
	defer wq.Cancel()

	finished := make(chan struct{})
	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{FinishedFunc: func(j *Job) { close(finished) }})
	q.Add(j, true)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker never drained the queued job")
	}
}

func TestWorkerOnQueue_CancelWhileBlockedOnEmptyQueue(t *testing.T) {
	q := NewJobQueue()
	wq := NewWorkerOnQueue(q, nil)
	wq.Start()

	time.Sleep(50 * time.Millisecond) // let it park in NextJob(true)

	done := make(chan struct{})
	go func() {
		wq.Cancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel() never returned for a worker parked on an empty queue")
	}
	if wq.IsRunning() {
		t.Fatal("expected worker not running after Cancel")
	}
}

func TestWorkerOnQueue_SetJobQueueRebinds(t *testing.T) {
	q1 := NewJobQueue()
	q2 := NewJobQueue()
	wq := NewWorkerOnQueue(q1, nil)
	wq.Start()
	defer wq.Cancel()

	wq.SetJobQueue(q2)

	finished := make(chan struct{})
	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{FinishedFunc: func(j *Job) { close(finished) }})
	q2.Add(j, true)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker did not process a job on the newly bound queue")
	}
}
