package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/convert"
	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/jobs"
	"spatialdoc/core-go/internal/store"
	"spatialdoc/core-go/internal/viewstate"
)

const plan = `layer Walls
0 0 10 0
10 0 10 10
10 10 0 10
0 10 0 0
layer Cross
2 5 8 5
5 2 5 8
`

func newWorkspace(t *testing.T) (*Workspace, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	ws := New(zerolog.Nop(), "campus", Options{
		Document: document.Options{Converter: convert.Engine{}},
		Store:    st,
	})
	return ws, st
}

func importPlan(t *testing.T, ws *Workspace) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o600))
	i, err := ws.Import(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Equal(t, 0, i)
}

func runAll(t *testing.T, q *jobs.Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.New(zerolog.Nop(), q, jobs.Options{PollInterval: time.Millisecond}, nil).Run(ctx)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		busy := false
		for _, j := range q.List() {
			if !j.Status.Done() {
				busy = true
			}
		}
		if !busy {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("jobs did not finish")
}

func TestWorkspace_ImportAndConvert(t *testing.T) {
	ws, _ := newWorkspace(t)
	importPlan(t, ws)

	ok := ws.Submit("convert_drawing_axial", func(d *document.Document, c comm.Communicator) bool {
		return d.ConvertDrawingToAxial(c, "Axial Map")
	})
	refused := ws.Submit("convert_data_axial", func(d *document.Document, c comm.Communicator) bool {
		return d.ConvertDataToAxial(c, "From Data", false, false)
	})
	runAll(t, ws.Queue())

	job, err := ws.Queue().Get(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, job.Status)

	job, err = ws.Queue().Get(refused.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, ErrRefused.Error())

	require.NoError(t, ws.Do(context.Background(), func(d *document.Document) error {
		assert.True(t, d.State().Has(viewstate.StateShapeGraphs))
		assert.Equal(t, viewstate.KindAxial, d.ViewClass().Front())
		assert.Len(t, d.ShapeGraphs(), 1)
		return nil
	}))
}

func TestWorkspace_SubmitErrReportsReason(t *testing.T) {
	ws, _ := newWorkspace(t)
	sentinel := errors.New("needs a selection")
	job := ws.SubmitErr("step_depth", func(*document.Document, comm.Communicator) (bool, error) {
		return false, sentinel
	})
	runAll(t, ws.Queue())

	got, err := ws.Queue().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "needs a selection", got.Error)
}

func TestWorkspace_SaveAndLoad(t *testing.T) {
	ws, _ := newWorkspace(t)
	importPlan(t, ws)
	ctx := context.Background()

	rec, err := ws.Save(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "campus", rec.Name)

	require.NoError(t, ws.Reset(ctx, "blank"))
	require.NoError(t, ws.Do(context.Background(), func(d *document.Document) error {
		assert.Empty(t, d.DrawingFiles())
		return nil
	}))

	_, err = ws.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, ws.Do(context.Background(), func(d *document.Document) error {
		assert.Equal(t, "campus", d.Name())
		require.Len(t, d.DrawingFiles(), 1)
		assert.Len(t, d.DrawingFiles()[0].Layers(), 2)
		return nil
	}))

	list, err := ws.Snapshots(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, ws.DeleteSnapshot(ctx, rec.ID))
	_, err = ws.Load(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkspace_LoadRejectsBadSnapshot(t *testing.T) {
	ws, st := newWorkspace(t)
	importPlan(t, ws)
	ctx := context.Background()

	garbage, err := st.Save(ctx, "garbage", []byte("not json"))
	require.NoError(t, err)
	_, err = ws.Load(ctx, garbage.ID)
	assert.ErrorIs(t, err, document.ErrBadSnapshot)

	future, err := st.Save(ctx, "future", []byte(`{"version": 99}`))
	require.NoError(t, err)
	_, err = ws.Load(ctx, future.ID)
	assert.ErrorIs(t, err, document.ErrBadSnapshot)

	require.NoError(t, ws.Do(context.Background(), func(d *document.Document) error {
		assert.Len(t, d.DrawingFiles(), 1, "document kept after a failed load")
		return nil
	}))
}

func TestWorkspace_ImportErrors(t *testing.T) {
	ws, _ := newWorkspace(t)
	_, err := ws.Import(context.Background(), "file://"+filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	require.NoError(t, ws.Do(context.Background(), func(d *document.Document) error {
		assert.Empty(t, d.DrawingFiles())
		return nil
	}))
}

func TestWorkspace_DoGivesUpWhileJobHoldsDocument(t *testing.T) {
	ws, _ := newWorkspace(t)
	started := make(chan struct{})
	release := make(chan struct{})
	job := ws.Submit("hold", func(*document.Document, comm.Communicator) bool {
		close(started)
		<-release
		return true
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.New(zerolog.Nop(), ws.Queue(), jobs.Options{PollInterval: time.Millisecond}, nil).Run(ctx)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("job never started")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	ran := false
	err := ws.Do(waitCtx, func(*document.Document) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	_, err = ws.Save(waitCtx, "")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, ws.Reset(waitCtx, "blank"), ErrBusy)

	close(release)
	require.NoError(t, ws.Do(context.Background(), func(*document.Document) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	require.Eventually(t, func() bool {
		got, err := ws.Queue().Get(job.ID)
		return err == nil && got.Status == jobs.StatusSucceeded
	}, 5*time.Second, time.Millisecond)
}

func TestWorkspace_DoTakesFreeLockWithDoneContext(t *testing.T) {
	ws, _ := newWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, ws.Do(ctx, func(*document.Document) error { return nil }))
}
