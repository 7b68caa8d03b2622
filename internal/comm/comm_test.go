package comm

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestReporter_reportsProgress(t *testing.T) {
	r := Background()
	r.PostSteps(2)
	r.PostStep(1)
	r.PostRecords(10)
	if err := r.PostRecord(4); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := r.Progress()
	if got != (Progress{Steps: 2, Step: 1, Records: 10, Record: 4}) {
		t.Fatalf("unexpected progress %+v", got)
	}
}

func TestReporter_cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReporter(ctx, zerolog.Nop())
	if err := r.Err(); err != nil {
		t.Fatalf("expected nil before cancel, got %v", err)
	}
	cancel()
	if err := r.PostRecord(1); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
