package sqlcgen

import "time"

type Snapshot struct {
	ID        string
	Name      string
	Revision  string
	Body      []byte
	CreatedAt time.Time
}

type SnapshotSummary struct {
	ID        string
	Name      string
	Revision  string
	CreatedAt time.Time
}
