// Package workspace owns the service's single document. Every access goes
// through one lock: the document is not safe for concurrent use, and jobs
// hold the lock for as long as their conversion or analysis runs. Callers
// with a context stop waiting for the lock when it is done.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/importer"
	"spatialdoc/core-go/internal/jobs"
	"spatialdoc/core-go/internal/store"
)

// ErrRefused is a job outcome for operations that left the document
// unchanged without being cancelled.
var ErrRefused = errors.New("operation refused")

// ErrBusy is returned, wrapping the context error, when a caller gave up
// waiting for the document while a job held it.
var ErrBusy = errors.New("document busy")

// Op is a document operation run as a job.
type Op func(d *document.Document, c comm.Communicator) bool

type Options struct {
	Document document.Options
	Store    store.Store
	Importer *importer.Importer
	Queue    *jobs.Queue
}

type Workspace struct {
	log     zerolog.Logger
	docOpts document.Options
	store   store.Store
	imp     *importer.Importer
	queue   *jobs.Queue

	sem *semaphore.Weighted
	doc *document.Document
}

func New(log zerolog.Logger, name string, opts Options) *Workspace {
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Importer == nil {
		opts.Importer = importer.New()
	}
	if opts.Queue == nil {
		opts.Queue = jobs.NewQueue()
	}
	opts.Document.Logger = log
	return &Workspace{
		log:     log,
		docOpts: opts.Document,
		store:   opts.Store,
		imp:     opts.Importer,
		queue:   opts.Queue,
		sem:     semaphore.NewWeighted(1),
		doc:     document.New(name, opts.Document),
	}
}

func (w *Workspace) Queue() *jobs.Queue { return w.queue }

// acquire takes the document lock, giving up with ErrBusy once ctx is done.
// A free lock is always taken, even with a cancelled ctx.
func (w *Workspace) acquire(ctx context.Context) error {
	if w.sem.TryAcquire(1) {
		return nil
	}
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return nil
}

func (w *Workspace) release() { w.sem.Release(1) }

// Do runs fn against the document while holding the lock. It returns an
// ErrBusy error without running fn when ctx ends first.
func (w *Workspace) Do(ctx context.Context, fn func(d *document.Document) error) error {
	if err := w.acquire(ctx); err != nil {
		return err
	}
	defer w.release()
	return fn(w.doc)
}

// Submit queues op. The job fails with ErrRefused when op returns false
// without a cancellation request.
func (w *Workspace) Submit(kind string, op Op) jobs.Job {
	return w.queue.Submit(kind, func(c comm.Communicator) error {
		_ = w.sem.Acquire(context.Background(), 1)
		defer w.release()
		if op(w.doc, c) {
			return nil
		}
		if err := c.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%s: %w", kind, ErrRefused)
	})
}

// SubmitErr is Submit for operations that explain their refusals.
func (w *Workspace) SubmitErr(kind string, op func(d *document.Document, c comm.Communicator) (bool, error)) jobs.Job {
	return w.queue.Submit(kind, func(c comm.Communicator) error {
		_ = w.sem.Acquire(context.Background(), 1)
		defer w.release()
		ok, err := op(w.doc, c)
		switch {
		case err != nil:
			return err
		case ok:
			return nil
		case c.Err() != nil:
			return c.Err()
		default:
			return fmt.Errorf("%s: %w", kind, ErrRefused)
		}
	})
}

// Reset replaces the document with an empty one.
func (w *Workspace) Reset(ctx context.Context, name string) error {
	doc := document.New(name, w.docOpts)
	if err := w.acquire(ctx); err != nil {
		return err
	}
	w.doc = doc
	w.release()
	w.log.Info().Str("name", name).Msg("document reset")
	return nil
}

// Import downloads a drawing file and adds it to the document, returning the
// new file's index.
func (w *Workspace) Import(ctx context.Context, url string) (int, error) {
	layers, err := w.imp.Load(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := w.acquire(ctx); err != nil {
		return 0, err
	}
	i := w.doc.AddDrawingFile(importer.FileName(url), layers)
	w.release()
	w.log.Info().Str("url", url).Int("layers", len(layers)).Msg("drawing imported")
	return i, nil
}

// Save stores a snapshot of the document. An empty name uses the document's.
func (w *Workspace) Save(ctx context.Context, name string) (store.Record, error) {
	if err := w.acquire(ctx); err != nil {
		return store.Record{}, err
	}
	snap := w.doc.Snapshot()
	w.release()

	if name == "" {
		name = snap.Name
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode snapshot: %w", err)
	}
	rec, err := w.store.Save(ctx, name, body)
	if err != nil {
		return store.Record{}, err
	}
	w.log.Info().Str("snapshot_id", rec.ID).Str("revision", rec.Revision).Msg("snapshot saved")
	return rec, nil
}

// Load replaces the document with a stored snapshot. The current document is
// kept when the snapshot is missing or inconsistent.
func (w *Workspace) Load(ctx context.Context, id string) (store.Record, error) {
	rec, err := w.store.Load(ctx, id)
	if err != nil {
		return store.Record{}, err
	}
	var snap document.Snapshot
	if err := json.Unmarshal(rec.Body, &snap); err != nil {
		return store.Record{}, fmt.Errorf("%w: %v", document.ErrBadSnapshot, err)
	}
	doc, err := document.FromSnapshot(snap, w.docOpts)
	if err != nil {
		return store.Record{}, err
	}

	if err := w.acquire(ctx); err != nil {
		return store.Record{}, err
	}
	w.doc = doc
	w.release()
	w.log.Info().Str("snapshot_id", rec.ID).Msg("snapshot loaded")
	rec.Body = nil
	return rec, nil
}

func (w *Workspace) Snapshots(ctx context.Context, limit int) ([]store.Record, error) {
	return w.store.List(ctx, limit)
}

func (w *Workspace) DeleteSnapshot(ctx context.Context, id string) error {
	return w.store.Delete(ctx, id)
}

func (w *Workspace) Ping(ctx context.Context) error {
	return w.store.Ping(ctx)
}
