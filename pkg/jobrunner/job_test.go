package jobrunner

import (
	"errors"
	"sync"
	"testing"
)

func TestNewJob_GeneratesIDWhenEmpty(t *testing.T) {
	j := NewJob("", "noop", func(j *Job) error { return nil })
	if j.ID() == "" {
		t.Fatal("expected a generated id when none was supplied")
	}
}

func TestNewJob_HonorsExplicitID(t *testing.T) {
	j := NewJob("explicit-id", "noop", func(j *Job) error { return nil })
	if j.ID() != "explicit-id" {
		t.Fatalf("ID() = %q, want explicit-id", j.ID())
	}
}

func TestJob_StartFiresStartedThenFinished(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(name string) {
		mu.Lock()
		events = append(events, name)
		mu.Unlock()
	}

	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{
		ReadyFunc:    func(j *Job) { record("ready") },
		StartedFunc:  func(j *Job) { record("started") },
		FinishedFunc: func(j *Job) { record("finished") },
	})

	j.ResetState(JobReady)
	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 || events[0] != "ready" || events[1] != "started" || events[2] != "finished" {
		t.Fatalf("unexpected event order: %v", events)
	}
}

func TestJob_FailedBodySuppressesFinished(t *testing.T) {
	finished := false
	j := NewJob("", "job", func(j *Job) error { return errors.New("boom") })
	j.AddCallback(&JobCallbackFuncs{FinishedFunc: func(j *Job) { finished = true }})

	err := j.Start()
	if err == nil {
		t.Fatal("expected Start() to propagate the body's error")
	}
	if finished {
		t.Fatal("finished must not fire when the body returns an error")
	}
	if j.IsFinished() {
		t.Fatal("job must not be in FINISHED state after a failed body")
	}
}

func TestJob_CancelDuringRunStillFinishes(t *testing.T) {
	j := NewJob("", "job", func(j *Job) error {
		j.Cancel()
		return nil
	})

	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !j.IsCanceled() || !j.IsFinished() {
		t.Fatalf("expected CANCEL|FINISHED, got state=%v", j.State())
	}
}

func TestJob_SetNameFiresOnlyWhenChanged(t *testing.T) {
	calls := 0
	j := NewJob("", "first", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{NameChangedFunc: func(j *Job, name string) { calls++ }})

	j.SetName("first")
	if calls != 0 {
		t.Fatalf("expected no NameChanged for an unchanged value, got %d calls", calls)
	}

	j.SetName("second")
	if calls != 1 {
		t.Fatalf("expected exactly one NameChanged call, got %d", calls)
	}
}

func TestJob_PercentCompleteFiresEveryCall(t *testing.T) {
	calls := 0
	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{PercentCompleteFunc: func(j *Job, p float64) { calls++ }})

	j.SetPercentComplete(10)
	j.SetPercentComplete(10)
	j.SetPercentComplete(50)

	if calls != 3 {
		t.Fatalf("expected percent-complete to fire on every call, got %d", calls)
	}
}

func TestJob_ResetStateAlwaysRefires(t *testing.T) {
	readyCalls := 0
	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{ReadyFunc: func(j *Job) { readyCalls++ }})

	j.ResetState(JobReady)
	j.ResetState(JobReady)

	if readyCalls != 2 {
		t.Fatalf("expected ResetState to re-fire even for an unchanged value, got %d calls", readyCalls)
	}
}

func TestJob_CallbackPanicDoesNotBlockOthers(t *testing.T) {
	secondCalled := false
	j := NewJob("", "job", func(j *Job) error { return nil })
	j.AddCallback(&JobCallbackFuncs{StartedFunc: func(j *Job) { panic("boom") }})
	j.AddCallback(&JobCallbackFuncs{StartedFunc: func(j *Job) { secondCalled = true }})

	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !secondCalled {
		t.Fatal("a panicking observer must not prevent other observers from running")
	}
}
