// Package ledger implements the ledger operations: creating, editing and deleting
// expenses and groups, managing friends and profiles, and the read views built
// on the balance aggregator.
//
// Every operation takes the caller's *models.Session explicitly. Mutations always
// clear the synced flag and move updatedAt strictly forward so the sync reconciler's
// compare-and-swap can tell a record changed after it was uploaded.
package ledger

import (
	"log/slog"
	"time"

	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/money"
	"github.com/mmynk/splitit/internal/storage"
)

// Service runs ledger operations against a store.
type Service struct {
	store     storage.Store
	formatter *money.Formatter
	now       func() time.Time
	logger    *slog.Logger
	onChange  func()
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithFormatter sets the currency used in balance summaries. The default is USD.
func WithFormatter(f *money.Formatter) Option {
	return func(s *Service) { s.formatter = f }
}

// WithChangeHook registers fn to run after every successful mutation.
// The sync runner uses it to schedule a pass.
func WithChangeHook(fn func()) Option {
	return func(s *Service) { s.onChange = fn }
}

// New creates a ledger service.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		formatter: money.MustFormatter(money.DefaultCurrency),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Formatter returns the currency formatter used for summaries.
func (s *Service) Formatter() *money.Formatter { return s.formatter }

// stamp returns a timestamp strictly after prev.
func (s *Service) stamp(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func requireSession(session *models.Session) error {
	if session == nil || session.UserID == "" {
		return models.ErrForbidden
	}
	return nil
}
