package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const createSnapshotsTable = `-- name: CreateSnapshotsTable :exec
CREATE TABLE IF NOT EXISTS document_snapshots (
  id         text PRIMARY KEY,
  name       text NOT NULL,
  revision   text NOT NULL,
  body       bytea NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now()
)
`

func (q *Queries) CreateSnapshotsTable(ctx context.Context) error {
	_, err := q.db.Exec(ctx, createSnapshotsTable)
	return err
}

const insertSnapshot = `-- name: InsertSnapshot :one
INSERT INTO document_snapshots (id, name, revision, body, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, revision, created_at
`

type InsertSnapshotParams struct {
	ID        string
	Name      string
	Revision  string
	Body      []byte
	CreatedAt time.Time
}

func (q *Queries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) (SnapshotSummary, error) {
	row := q.db.QueryRow(ctx, insertSnapshot, arg.ID, arg.Name, arg.Revision, arg.Body, arg.CreatedAt)
	var i SnapshotSummary
	err := row.Scan(&i.ID, &i.Name, &i.Revision, &i.CreatedAt)
	return i, err
}

const getSnapshot = `-- name: GetSnapshot :one
SELECT id, name, revision, body, created_at
FROM document_snapshots
WHERE id = $1
`

func (q *Queries) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, getSnapshot, id)
	var i Snapshot
	err := row.Scan(&i.ID, &i.Name, &i.Revision, &i.Body, &i.CreatedAt)
	return i, err
}

const listSnapshots = `-- name: ListSnapshots :many
SELECT id, name, revision, created_at
FROM document_snapshots
ORDER BY created_at DESC, id
LIMIT $1
`

func (q *Queries) ListSnapshots(ctx context.Context, limit int32) ([]SnapshotSummary, error) {
	rows, err := q.db.Query(ctx, listSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotSummary
	for rows.Next() {
		var i SnapshotSummary
		if err := rows.Scan(&i.ID, &i.Name, &i.Revision, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSnapshot = `-- name: DeleteSnapshot :execrows
DELETE FROM document_snapshots
WHERE id = $1
`

func (q *Queries) DeleteSnapshot(ctx context.Context, id string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteSnapshot, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
