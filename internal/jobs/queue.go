// Package jobs runs long document operations in the background. Jobs are
// queued in memory and executed one at a time by a Worker, each under its
// own cancellable context.
package jobs

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"spatialdoc/core-go/internal/comm"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

var (
	ErrNotFound = errors.New("job not found")
	ErrFinished = errors.New("job already finished")
)

// maxHistory bounds how many finished jobs are remembered.
const maxHistory = 256

// Func is the body of a job. It should poll c and return comm.ErrCancelled
// when asked to stop.
type Func func(c comm.Communicator) error

type Job struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Progress   comm.Progress `json:"progress"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

type entry struct {
	job      Job
	fn       Func
	cancel   context.CancelFunc
	reporter *comm.Reporter
}

func (e *entry) snapshot() Job {
	j := e.job
	if e.reporter != nil {
		j.Progress = e.reporter.Progress()
	}
	return j
}

type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry
	pending []string
	order   []string
	wake    chan struct{}
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		entries: make(map[string]*entry),
		wake:    make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Submit queues fn and returns the queued job.
func (q *Queue) Submit(kind string, fn Func) Job {
	q.mu.Lock()
	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			Kind:      kind,
			Status:    StatusQueued,
			CreatedAt: q.now().UTC(),
		},
		fn: fn,
	}
	q.entries[e.job.ID] = e
	q.pending = append(q.pending, e.job.ID)
	q.order = append(q.order, e.job.ID)
	q.prune()
	j := e.snapshot()
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return j
}

// prune forgets the oldest finished jobs beyond maxHistory.
func (q *Queue) prune() {
	excess := len(q.order) - maxHistory
	if excess <= 0 {
		return
	}
	q.order = slices.DeleteFunc(q.order, func(id string) bool {
		if excess > 0 && q.entries[id].job.Status.Done() {
			delete(q.entries, id)
			excess--
			return true
		}
		return false
	})
}

func (q *Queue) Get(id string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return e.snapshot(), nil
}

// List returns known jobs, newest first.
func (q *Queue) List() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.order))
	for i := len(q.order) - 1; i >= 0; i-- {
		out = append(out, q.entries[q.order[i]].snapshot())
	}
	return out
}

// Cancel drops a queued job or asks a running one to stop. A running job is
// reported as cancelled once its body returns.
func (q *Queue) Cancel(id string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	switch e.job.Status {
	case StatusQueued:
		q.pending = slices.DeleteFunc(q.pending, func(p string) bool { return p == id })
		now := q.now().UTC()
		e.job.Status = StatusCancelled
		e.job.FinishedAt = &now
	case StatusRunning:
		e.cancel()
	default:
		return e.snapshot(), ErrFinished
	}
	return e.snapshot(), nil
}

// Pending is the number of queued jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// claim moves the oldest queued job to running.
func (q *Queue) claim(cancel context.CancelFunc, reporter *comm.Reporter) (*entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	id := q.pending[0]
	q.pending = q.pending[1:]
	e := q.entries[id]
	now := q.now().UTC()
	e.job.Status = StatusRunning
	e.job.StartedAt = &now
	e.cancel = cancel
	e.reporter = reporter
	return e, true
}

func (q *Queue) finish(e *entry, status Status, msg string) Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now().UTC()
	e.job.Progress = e.reporter.Progress()
	e.job.Status = status
	e.job.Error = msg
	e.job.FinishedAt = &now
	e.reporter = nil
	e.cancel = nil
	return e.job
}
