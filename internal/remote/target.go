package remote

import (
	"context"
	"sync"

	"github.com/mmynk/splitit/internal/syncer"
)

// Target stores pushed records with last-writer-wins semantics: a record replaces
// the stored one unless the stored one has a later updatedAt. Older records are
// still acknowledged because the target already holds a newer version.
//
// Store returns the IDs it acknowledged. On error the IDs returned so far are
// still valid.
type Target interface {
	Store(ctx context.Context, records []syncer.Record) ([]string, error)
	Get(ctx context.Context, kind syncer.Kind, id string) (syncer.Record, bool, error)
}

// Memory is an in-process Target. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]syncer.Record
}

var _ Target = (*Memory)(nil)

// NewMemory creates an empty in-memory target.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]syncer.Record)}
}

// Store implements Target.
func (m *Memory) Store(ctx context.Context, records []syncer.Record) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := make([]string, 0, len(records))
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		if cur, ok := m.records[r.Key()]; !ok || !cur.UpdatedAt.After(r.UpdatedAt) {
			m.records[r.Key()] = r
		}
		accepted = append(accepted, r.Key())
	}
	return accepted, nil
}

// Get implements Target.
func (m *Memory) Get(_ context.Context, kind syncer.Kind, id string) (syncer.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[syncer.Record{Kind: kind, ID: id}.Key()]
	return r, ok, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
