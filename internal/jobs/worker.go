package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/metrics"
)

type Worker struct {
	log          zerolog.Logger
	q            *Queue
	pollInterval time.Duration
	maxRuntime   time.Duration
	metrics      *metrics.Metrics
}

type Options struct {
	PollInterval time.Duration
	MaxRuntime   time.Duration
}

func New(log zerolog.Logger, q *Queue, opts Options, m *metrics.Metrics) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = 400 * time.Millisecond
	}
	mr := opts.MaxRuntime
	if mr <= 0 {
		mr = 5 * time.Minute
	}
	return &Worker{
		log:          log,
		q:            q,
		pollInterval: pi,
		maxRuntime:   mr,
		metrics:      m,
	}
}

// Run executes queued jobs until ctx is done. Submitting a job wakes the
// worker early; otherwise it polls every PollInterval.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.q == nil {
		return
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-w.q.wake:
		}

		for {
			processed, err := w.runOnce(ctx)
			if err != nil {
				consecutiveFailures++
				break
			}
			consecutiveFailures = 0
			if !processed {
				break
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 400 * time.Millisecond
	}
	if failures <= 0 {
		return base
	}

	// Exponential-ish backoff: base * 2^failures, capped.
	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > 10*time.Second {
		return 10 * time.Second
	}
	return d
}

// runOnce runs the oldest queued job. The error is non-nil only when the job
// body panicked.
func (w *Worker) runOnce(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	execCtx, cancel := context.WithTimeout(ctx, w.maxRuntime)
	defer cancel()

	reporter := comm.NewReporter(execCtx, w.log)
	e, ok := w.q.claim(cancel, reporter)
	if !ok {
		return false, nil
	}

	log := w.log.With().Str("job_id", e.job.ID).Str("kind", e.job.Kind).Logger()
	log.Info().Msg("job started")
	start := time.Now()

	err := safeRun(e.fn, reporter)

	status, msg := outcome(execCtx, err)
	job := w.q.finish(e, status, msg)
	w.metrics.ObserveJob(job.Kind, string(status), time.Since(start))

	ev := log.Info()
	if status == StatusFailed {
		ev = log.Warn().Str("error", msg)
	}
	ev.Str("status", string(status)).Dur("duration", time.Since(start)).Msg("job finished")

	var p *panicError
	if errors.As(err, &p) {
		return true, err
	}
	return true, nil
}

type panicError struct{ v any }

func (p *panicError) Error() string { return fmt.Sprintf("job panicked: %v", p.v) }

func safeRun(fn Func, c comm.Communicator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{v: r}
		}
	}()
	return fn(c)
}

func outcome(execCtx context.Context, err error) (Status, string) {
	switch {
	case err == nil:
		return StatusSucceeded, ""
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return StatusCancelled, "max runtime exceeded"
	case errors.Is(err, comm.ErrCancelled), errors.Is(err, context.Canceled):
		return StatusCancelled, ""
	default:
		return StatusFailed, err.Error()
	}
}
