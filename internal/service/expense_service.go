package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/ledger"
)

const (
	ExpenseServiceName     = "splitit.v1.ExpenseService"
	CreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	UpdateExpenseProcedure = "/" + ExpenseServiceName + "/UpdateExpense"
	DeleteExpenseProcedure = "/" + ExpenseServiceName + "/DeleteExpense"
	GetExpenseProcedure    = "/" + ExpenseServiceName + "/GetExpense"
	ListActivityProcedure  = "/" + ExpenseServiceName + "/ListActivity"
	ClearExpensesProcedure = "/" + ExpenseServiceName + "/ClearExpenses"
)

// ExpenseService implements the ExpenseService RPC interface.
type ExpenseService struct {
	ledger *ledger.Service
	logger *slog.Logger
}

// NewExpenseService creates a new ExpenseService on top of the ledger.
func NewExpenseService(ledgerSvc *ledger.Service, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{ledger: ledgerSvc, logger: logger}
}

// Handler returns the path prefix and handler serving the service.
func (s *ExpenseService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateExpenseProcedure, unary(CreateExpenseProcedure, s.CreateExpense, s.logger, opts...))
	mux.Handle(UpdateExpenseProcedure, unary(UpdateExpenseProcedure, s.UpdateExpense, s.logger, opts...))
	mux.Handle(DeleteExpenseProcedure, unary(DeleteExpenseProcedure, s.DeleteExpense, s.logger, opts...))
	mux.Handle(GetExpenseProcedure, unary(GetExpenseProcedure, s.GetExpense, s.logger, opts...))
	mux.Handle(ListActivityProcedure, unary(ListActivityProcedure, s.ListActivity, s.logger, opts...))
	mux.Handle(ClearExpensesProcedure, unary(ClearExpensesProcedure, s.ClearExpenses, s.logger, opts...))
	return servicePath(ExpenseServiceName), mux
}

// CreateExpense records a new expense for the caller.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *ledger.ExpenseInput) (*ExpenseResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.CreateExpense(ctx, session, *req)
	if err != nil {
		return nil, err
	}
	return &ExpenseResponse{Expense: e}, nil
}

// UpdateExpense applies a partial update.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *UpdateExpenseRequest) (*ExpenseResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.UpdateExpense(ctx, session, req.ID, req.ExpenseUpdate)
	if err != nil {
		return nil, err
	}
	return &ExpenseResponse{Expense: e}, nil
}

// DeleteExpense removes an expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *IDRequest) (*Empty, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteExpense(ctx, session, req.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// GetExpense returns an expense with every participant's owed and net amount.
func (s *ExpenseService) GetExpense(ctx context.Context, req *IDRequest) (*ledger.ExpenseView, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetExpense(ctx, session, req.ID)
}

// ListActivity returns the caller's activity feed.
func (s *ExpenseService) ListActivity(ctx context.Context, req *ListActivityRequest) (*ListActivityResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := ledger.ParseActivityFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	items, err := s.ledger.ListActivity(ctx, session, filter)
	if err != nil {
		return nil, err
	}
	return &ListActivityResponse{Items: items}, nil
}

// ClearExpenses deletes every expense the caller recorded.
func (s *ExpenseService) ClearExpenses(ctx context.Context, _ *Empty) (*CountResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.ledger.ClearExpenses(ctx, session)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: n}, nil
}
