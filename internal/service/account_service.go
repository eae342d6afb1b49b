package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/syncer"
)

const (
	AccountServiceName         = "splitit.v1.AccountService"
	GetDashboardProcedure      = "/" + AccountServiceName + "/GetDashboard"
	ExportProcedure            = "/" + AccountServiceName + "/Export"
	GetUnsyncedCountsProcedure = "/" + AccountServiceName + "/GetUnsyncedCounts"
	SyncNowProcedure           = "/" + AccountServiceName + "/SyncNow"
)

// ErrSyncDisabled is returned by SyncNow when no sync remote is configured.
var ErrSyncDisabled = errors.New("sync remote not configured")

// Passer runs one sync pass.
type Passer interface {
	Pass(ctx context.Context) (*syncer.Report, error)
}

// AccountService serves the dashboard, export and sync status of the caller.
type AccountService struct {
	ledger *ledger.Service
	sync   Passer
	logger *slog.Logger
}

// NewAccountService creates an AccountService. sync may be nil when sync is disabled.
func NewAccountService(ledgerSvc *ledger.Service, sync Passer, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{ledger: ledgerSvc, sync: sync, logger: logger}
}

// Handler returns the path prefix and handler serving the service.
func (s *AccountService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetDashboardProcedure, unary(GetDashboardProcedure, s.GetDashboard, s.logger, opts...))
	mux.Handle(ExportProcedure, unary(ExportProcedure, s.Export, s.logger, opts...))
	mux.Handle(GetUnsyncedCountsProcedure, unary(GetUnsyncedCountsProcedure, s.GetUnsyncedCounts, s.logger, opts...))
	mux.Handle(SyncNowProcedure, unary(SyncNowProcedure, s.SyncNow, s.logger, opts...))
	return servicePath(AccountServiceName), mux
}

// GetDashboard returns the caller's balances and recent activity.
func (s *AccountService) GetDashboard(ctx context.Context, req *DashboardRequest) (*ledger.Dashboard, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.Dashboard(ctx, session, req.Recent)
}

// Export returns a snapshot of the caller's records.
func (s *AccountService) Export(ctx context.Context, _ *Empty) (*models.Snapshot, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.Export(ctx, session)
}

// GetUnsyncedCounts reports how many records wait for the sync remote.
func (s *AccountService) GetUnsyncedCounts(ctx context.Context, _ *Empty) (*ledger.UnsyncedCounts, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	counts, err := s.ledger.UnsyncedCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// SyncNow runs a sync pass right away.
func (s *AccountService) SyncNow(ctx context.Context, _ *Empty) (*SyncResponse, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	if s.sync == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, ErrSyncDisabled)
	}
	report, err := s.sync.Pass(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncResponse{Report: report}, nil
}
