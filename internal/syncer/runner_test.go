package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/pkg/logging"
)

func TestRunner(t *testing.T) {
	store := newTestStore(t)
	seedExpenses(t, store, 1)

	rec := newReconciler(store, &fakeRemote{})
	runner := NewRunner(rec, 0, logging.Discard())
	reports := make(chan *Report, 4)
	runner.passed = func(r *Report, _ error) { reports <- r }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	wait := func() *Report {
		t.Helper()
		select {
		case r := <-reports:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a sync pass")
			return nil
		}
	}

	if r := wait(); r.Confirmed != 1 {
		t.Errorf("startup pass confirmed %d, want 1", r.Confirmed)
	}

	e := &models.Expense{
		ID:           "late",
		Title:        "Late",
		Amount:       5,
		PaidBy:       "bob",
		SplitMode:    models.SplitEqual,
		Participants: []models.Participant{{ID: "ada", Share: 50}, {ID: "bob", Share: 50}},
		Date:         t0,
		CreatedAt:    t0,
		UpdatedAt:    t0,
		UserID:       "bob",
	}
	if err := store.CreateExpense(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	runner.Notify()
	runner.Notify() // merged with the pending one

	if r := wait(); r.Confirmed != 1 {
		t.Errorf("notified pass confirmed %d, want 1", r.Confirmed)
	}
	if !synced(t, store, "late") {
		t.Error("expense not synced after Notify")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
