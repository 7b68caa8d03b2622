// Package store persists document snapshots. Bodies are opaque bytes; each
// saved body gets a fresh id and a content revision.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/highwayhash"
)

var ErrNotFound = errors.New("snapshot not found")

// DefaultListLimit caps List when the caller passes zero or less.
const DefaultListLimit = 100

type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Revision  string    `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	// Body is empty in List results.
	Body []byte `json:"-"`
}

type Store interface {
	Save(ctx context.Context, name string, body []byte) (Record, error)
	Load(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

var revisionKey = []byte("spatialdoc-snapshot-revision-key")

// Revision is a stable content hash of body, rendered as 16 hex digits.
func Revision(body []byte) (string, error) {
	h, err := highwayhash.New64(revisionKey)
	if err != nil {
		return "", err
	}
	if _, err := h.Write(body); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
