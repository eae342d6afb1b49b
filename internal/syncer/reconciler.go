package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

// DefaultBatchSize is the number of records pushed per round trip when none is configured.
const DefaultBatchSize = 50

// Store is the part of the record store the reconciler reads and marks.
type Store interface {
	ListUnsyncedGroups(ctx context.Context, limit int) ([]*models.Group, error)
	ListUnsyncedExpenses(ctx context.Context, limit int) ([]*models.Expense, error)
	MarkGroupSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error)
	MarkExpenseSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error)
}

// Report summarizes one pass.
type Report struct {
	// Pushed is the number of records sent to the remote.
	Pushed int `json:"pushed"`
	// Confirmed records were accepted and marked clean.
	Confirmed int `json:"confirmed"`
	// Stale records were accepted but edited while in flight. They stay dirty.
	Stale int `json:"stale"`
	// Failed lists the keys of records that were not accepted or never pushed.
	Failed []string `json:"failed,omitempty"`
}

// Reconciler runs sync passes. Its zero value is not usable; call NewReconciler.
type Reconciler struct {
	mu sync.Mutex // held for a whole pass

	store     Store
	remote    Remote
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithBatchSize sets how many records go into one push. Values below 1 use DefaultBatchSize.
func WithBatchSize(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMetrics records pass outcomes into m.
func WithMetrics(m *Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

// WithReconcilerLogger sets the logger. The default is slog.Default().
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler creates a reconciler pushing the dirty records of store to remote.
func NewReconciler(store Store, remote Remote, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:     store,
		remote:    remote,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pass pushes every dirty record, groups first so a remote never sees an expense
// before the group it references.
//
// Records confirmed before a failure stay clean. When anything was not confirmed
// the report lists it and the error is a *models.SyncError; those records remain
// dirty and are picked up by the next pass.
//
// Concurrent calls run one after another, so a pass started while another is in
// flight sees only what the first one left dirty.
func (r *Reconciler) Pass(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	report, err := r.pass(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.metrics.pass(result, r.now().Sub(start).Seconds())

	if err != nil {
		r.logger.Warn("Sync pass incomplete",
			"pushed", report.Pushed,
			"confirmed", report.Confirmed,
			"stale", report.Stale,
			"failed", len(report.Failed),
			"error", err,
		)
		return report, err
	}
	if report.Pushed > 0 {
		r.logger.Info("Sync pass complete",
			"pushed", report.Pushed,
			"confirmed", report.Confirmed,
			"stale", report.Stale,
		)
	}
	return report, nil
}

func (r *Reconciler) pass(ctx context.Context) (*Report, error) {
	report := &Report{}

	records, err := r.dirtyRecords(ctx)
	if err != nil {
		return report, &models.SyncError{Err: err}
	}

	for start := 0; start < len(records); start += r.batchSize {
		batch := records[start:min(start+r.batchSize, len(records))]

		if err := ctx.Err(); err != nil {
			return report, r.abort(report, records[start:], err)
		}

		res, pushErr := r.remote.Push(ctx, batch)
		report.Pushed += len(batch)
		countByKind(batch, func(k Kind, n int) { r.metrics.record(k, outcomePushed, n) })

		// Anything accepted is marked even when the push reported an error.
		accepted := make(map[string]bool, len(res.Accepted))
		for _, key := range res.Accepted {
			accepted[key] = true
		}
		rest := records[start+len(batch):]
		var rejected []Record
		for i, rec := range batch {
			if !accepted[rec.Key()] {
				rejected = append(rejected, rec)
				continue
			}
			if err := r.mark(ctx, rec, report); err != nil {
				remaining := append(append(rejected, batch[i:]...), rest...)
				return report, r.abort(report, remaining, err)
			}
		}

		if pushErr != nil {
			r.logger.Error("Sync push failed", "batch", len(batch), "accepted", len(res.Accepted), "error", pushErr)
			return report, r.abort(report, append(rejected, rest...), pushErr)
		}
		for _, rec := range rejected {
			report.Failed = append(report.Failed, rec.Key())
			r.metrics.record(rec.Kind, outcomeFailed, 1)
		}
	}

	if len(report.Failed) > 0 {
		return report, &models.SyncError{Failed: report.Failed}
	}
	return report, nil
}

// mark applies the compare-and-swap for one accepted record.
func (r *Reconciler) mark(ctx context.Context, rec Record, report *Report) error {
	var (
		ok  bool
		err error
	)
	switch rec.Kind {
	case KindGroup:
		ok, err = r.store.MarkGroupSynced(ctx, rec.ID, rec.UpdatedAt)
	case KindExpense:
		ok, err = r.store.MarkExpenseSynced(ctx, rec.ID, rec.UpdatedAt)
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to mark %s synced: %w", rec.Key(), err)
	}

	if ok {
		report.Confirmed++
		r.metrics.record(rec.Kind, outcomeConfirmed, 1)
		return nil
	}
	report.Stale++
	r.metrics.record(rec.Kind, outcomeStale, 1)
	r.logger.Debug("Record changed during sync, keeping it dirty", "kind", rec.Kind, "id", rec.ID)
	return nil
}

// abort lists every remaining record as failed and wraps cause.
func (r *Reconciler) abort(report *Report, remaining []Record, cause error) error {
	for _, rec := range remaining {
		report.Failed = append(report.Failed, rec.Key())
	}
	countByKind(remaining, func(k Kind, n int) { r.metrics.record(k, outcomeFailed, n) })
	return &models.SyncError{Failed: report.Failed, Err: cause}
}

// dirtyRecords snapshots the dirty set, groups first.
func (r *Reconciler) dirtyRecords(ctx context.Context) ([]Record, error) {
	groups, err := r.store.ListUnsyncedGroups(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced groups: %w", err)
	}
	expenses, err := r.store.ListUnsyncedExpenses(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced expenses: %w", err)
	}
	r.metrics.setDirty(KindGroup, len(groups))
	r.metrics.setDirty(KindExpense, len(expenses))

	records := make([]Record, 0, len(groups)+len(expenses))
	for _, g := range groups {
		rec, err := GroupRecord(g)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	for _, e := range expenses {
		rec, err := ExpenseRecord(e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func countByKind(records []Record, fn func(Kind, int)) {
	counts := map[Kind]int{}
	for _, rec := range records {
		counts[rec.Kind]++
	}
	for _, k := range []Kind{KindGroup, KindExpense} {
		fn(k, counts[k])
	}
}
