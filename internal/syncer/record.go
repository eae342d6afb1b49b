// Package syncer uploads dirty ledger records to a sync remote and marks them
// clean once the remote confirms them.
//
// A pass reads the dirty set, pushes it in batches and marks every accepted record
// with a compare-and-swap on updatedAt. A record edited while its batch was in
// flight keeps its newer updatedAt, so the mark is skipped and the record is
// pushed again on the next pass. No lock is held across the network call.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

// Kind identifies the entity carried by a Record.
type Kind string

const (
	KindGroup   Kind = "group"
	KindExpense Kind = "expense"
)

// Record is one entity as uploaded to a remote.
type Record struct {
	Kind      Kind            `json:"kind"`
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Key identifies a record across kinds.
func (r Record) Key() string {
	return string(r.Kind) + "/" + r.ID
}

// PushResult lists the keys (see Record.Key) of the records the remote stored.
type PushResult struct {
	Accepted []string `json:"accepted"`
}

// Remote is a sync target. Push may accept a subset of the records; anything
// not listed in Accepted is treated as failed. A non-nil error means the
// outcome of the records not listed is unknown.
type Remote interface {
	Push(ctx context.Context, records []Record) (PushResult, error)
}

// ExpenseRecord wraps an expense for upload.
func ExpenseRecord(e *models.Expense) (Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode expense %s: %w", e.ID, err)
	}
	return Record{Kind: KindExpense, ID: e.ID, UpdatedAt: e.UpdatedAt, Payload: payload}, nil
}

// GroupRecord wraps a group for upload.
func GroupRecord(g *models.Group) (Record, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode group %s: %w", g.ID, err)
	}
	return Record{Kind: KindGroup, ID: g.ID, UpdatedAt: g.UpdatedAt, Payload: payload}, nil
}
