package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/comm"
)

func newWorker(q *Queue, opts Options) *Worker {
	return New(zerolog.Nop(), q, opts, nil)
}

// untilCancelled reports progress until asked to stop.
func untilCancelled(started chan<- struct{}) Func {
	return func(c comm.Communicator) error {
		c.PostSteps(1)
		c.PostStep(1)
		close(started)
		for i := 0; ; i++ {
			if err := c.PostRecord(i); err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func waitStatus(t *testing.T, q *Queue, id string, want Status) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := q.Get(id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := q.Get(id)
	t.Fatalf("expected status %s, got %s", want, j.Status)
	return Job{}
}

func TestWorker_RunOnce_NoQueuedJobs(t *testing.T) {
	w := newWorker(NewQueue(), Options{})
	processed, err := w.runOnce(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if processed {
		t.Fatalf("expected processed=false")
	}
}

func TestWorker_RunOnce_Succeeds(t *testing.T) {
	q := NewQueue()
	job := q.Submit("convert_drawing_axial", func(c comm.Communicator) error {
		c.PostSteps(2)
		c.PostStep(2)
		return nil
	})
	if job.Status != StatusQueued || q.Pending() != 1 {
		t.Fatalf("expected queued job, got %s (pending %d)", job.Status, q.Pending())
	}

	processed, err := newWorker(q, Options{}).runOnce(context.Background())
	if err != nil || !processed {
		t.Fatalf("expected processed job, got %v/%v", processed, err)
	}

	got, err := q.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Fatalf("expected start and finish times")
	}
	if got.Progress.Steps != 2 || got.Progress.Step != 2 {
		t.Fatalf("expected final progress to be kept, got %+v", got.Progress)
	}
}

func TestWorker_RunOnce_Fails(t *testing.T) {
	q := NewQueue()
	job := q.Submit("analyse_axial", func(comm.Communicator) error {
		return errors.New("no axial map")
	})
	if _, err := newWorker(q, Options{}).runOnce(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	got, _ := q.Get(job.ID)
	if got.Status != StatusFailed || got.Error != "no axial map" {
		t.Fatalf("expected failed with message, got %s %q", got.Status, got.Error)
	}
}

func TestWorker_RunOnce_RecoversPanic(t *testing.T) {
	q := NewQueue()
	job := q.Submit("analyse_axial", func(comm.Communicator) error {
		panic("boom")
	})
	processed, err := newWorker(q, Options{}).runOnce(context.Background())
	if !processed || err == nil {
		t.Fatalf("expected processed job with error, got %v/%v", processed, err)
	}
	got, _ := q.Get(job.ID)
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestQueue_CancelQueued(t *testing.T) {
	q := NewQueue()
	job := q.Submit("make_graph", func(comm.Communicator) error {
		t.Fatalf("cancelled job should not run")
		return nil
	})
	got, err := q.Cancel(job.ID)
	if err != nil || got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s/%v", got.Status, err)
	}
	if _, err := q.Cancel(job.ID); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
	if _, err := q.Cancel("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	processed, _ := newWorker(q, Options{}).runOnce(context.Background())
	if processed {
		t.Fatalf("expected nothing left to run")
	}
}

func TestQueue_CancelRunning(t *testing.T) {
	q := NewQueue()
	started := make(chan struct{})
	job := q.Submit("analyse_graph", untilCancelled(started))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = newWorker(q, Options{}).runOnce(context.Background())
	}()
	<-started

	running, err := q.Get(job.ID)
	if err != nil || running.Status != StatusRunning {
		t.Fatalf("expected running, got %s/%v", running.Status, err)
	}
	if _, err := q.Cancel(job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	<-done

	got, _ := q.Get(job.ID)
	if got.Status != StatusCancelled || got.Error != "" {
		t.Fatalf("expected cancelled without error, got %s %q", got.Status, got.Error)
	}
}

func TestWorker_MaxRuntime(t *testing.T) {
	q := NewQueue()
	job := q.Submit("analyse_graph", untilCancelled(make(chan struct{})))
	if _, err := newWorker(q, Options{MaxRuntime: 20 * time.Millisecond}).runOnce(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	got, _ := q.Get(job.ID)
	if got.Status != StatusCancelled || got.Error != "max runtime exceeded" {
		t.Fatalf("expected runtime cancellation, got %s %q", got.Status, got.Error)
	}
}

func TestWorker_RunPicksUpSubmittedJobs(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go newWorker(q, Options{PollInterval: time.Hour}).Run(ctx)

	first := q.Submit("a", func(comm.Communicator) error { return nil })
	second := q.Submit("b", func(comm.Communicator) error { return nil })
	waitStatus(t, q, first.ID, StatusSucceeded)
	waitStatus(t, q, second.ID, StatusSucceeded)

	list := q.List()
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest job first, got %+v", list)
	}
}

func TestQueue_PrunesFinishedHistory(t *testing.T) {
	q := NewQueue()
	w := newWorker(q, Options{})
	for i := 0; i < maxHistory+5; i++ {
		q.Submit("noop", func(comm.Communicator) error { return nil })
		if _, err := w.runOnce(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	if n := len(q.List()); n != maxHistory {
		t.Fatalf("expected %d remembered jobs, got %d", maxHistory, n)
	}
}

func TestBackoffDuration(t *testing.T) {
	if got := backoffDuration(100*time.Millisecond, 0); got != 100*time.Millisecond {
		t.Fatalf("expected base, got %s", got)
	}
	if got := backoffDuration(100*time.Millisecond, 2); got != 400*time.Millisecond {
		t.Fatalf("expected 400ms, got %s", got)
	}
	if got := backoffDuration(time.Second, 20); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}
