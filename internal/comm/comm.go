// Package comm carries progress and cancellation between the document and
// the long-running routines it invokes (conversions and analyses).
package comm

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrCancelled is returned by a routine that observed a cancellation request.
var ErrCancelled = errors.New("operation cancelled")

// Communicator is what routines poll for cancellation and report progress to.
type Communicator interface {
	PostSteps(n int)
	PostStep(i int)
	PostRecords(n int)
	// PostRecord reports progress within the current step and returns
	// ErrCancelled once cancellation has been requested.
	PostRecord(i int) error
	Err() error
}

type Progress struct {
	Steps   int64 `json:"steps"`
	Step    int64 `json:"step"`
	Records int64 `json:"records"`
	Record  int64 `json:"record"`
}

// Reporter is a Communicator driven by a context. Progress may be read from
// other goroutines while a routine runs.
type Reporter struct {
	ctx     context.Context
	log     zerolog.Logger
	steps   atomic.Int64
	step    atomic.Int64
	records atomic.Int64
	record  atomic.Int64
}

func NewReporter(ctx context.Context, log zerolog.Logger) *Reporter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Reporter{ctx: ctx, log: log}
}

// Background returns a Reporter that is never cancelled.
func Background() *Reporter {
	return NewReporter(context.Background(), zerolog.Nop())
}

func (r *Reporter) PostSteps(n int) {
	r.steps.Store(int64(n))
	r.step.Store(0)
}

func (r *Reporter) PostStep(i int) {
	r.step.Store(int64(i))
	r.records.Store(0)
	r.record.Store(0)
	r.log.Debug().Int("step", i).Int64("steps", r.steps.Load()).Msg("progress step")
}

func (r *Reporter) PostRecords(n int) { r.records.Store(int64(n)) }

func (r *Reporter) PostRecord(i int) error {
	r.record.Store(int64(i))
	return r.Err()
}

// Err returns ErrCancelled once the context is done.
func (r *Reporter) Err() error {
	if r.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

func (r *Reporter) Progress() Progress {
	return Progress{
		Steps:   r.steps.Load(),
		Step:    r.step.Load(),
		Records: r.records.Load(),
		Record:  r.record.Load(),
	}
}
