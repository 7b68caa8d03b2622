package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a process-local Store used when no database is configured.
type Memory struct {
	mu   sync.Mutex
	recs map[string]Record
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record), now: time.Now}
}

func (m *Memory) Save(_ context.Context, name string, body []byte) (Record, error) {
	rev, err := Revision(body)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Revision:  rev,
		CreatedAt: m.now().UTC(),
		Body:      slices.Clone(body),
	}
	m.mu.Lock()
	m.recs[rec.ID] = rec
	m.mu.Unlock()

	rec.Body = nil
	return rec, nil
}

func (m *Memory) Load(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Body = slices.Clone(rec.Body)
	return rec, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	out := make([]Record, 0, len(m.recs))
	for _, rec := range m.recs {
		rec.Body = nil
		out = append(out, rec)
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
