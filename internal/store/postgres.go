package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"spatialdoc/core-go/internal/sqlcgen"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Postgres stores snapshots through the generated queries.
type Postgres struct {
	q    *sqlcgen.Queries
	ping pinger
	now  func() time.Time
}

func NewPostgres(q *sqlcgen.Queries, p pinger) *Postgres {
	return &Postgres{q: q, ping: p, now: time.Now}
}

// Migrate creates the snapshot table when it is missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	return s.q.CreateSnapshotsTable(ctx)
}

func (s *Postgres) Save(ctx context.Context, name string, body []byte) (Record, error) {
	rev, err := Revision(body)
	if err != nil {
		return Record{}, err
	}
	row, err := s.q.InsertSnapshot(ctx, sqlcgen.InsertSnapshotParams{
		ID:        uuid.NewString(),
		Name:      name,
		Revision:  rev,
		Body:      body,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return Record{}, err
	}
	return Record{ID: row.ID, Name: row.Name, Revision: row.Revision, CreatedAt: row.CreatedAt}, nil
}

func (s *Postgres) Load(ctx context.Context, id string) (Record, error) {
	row, err := s.q.GetSnapshot(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{ID: row.ID, Name: row.Name, Revision: row.Revision, CreatedAt: row.CreatedAt, Body: row.Body}, nil
}

func (s *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.q.ListSnapshots(ctx, int32(listLimit(limit)))
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{ID: row.ID, Name: row.Name, Revision: row.Revision, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	n, err := s.q.DeleteSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping.Ping(ctx)
}
