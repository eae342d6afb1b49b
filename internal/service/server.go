package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/middleware"
	"github.com/mmynk/splitit/internal/remote"
)

// Deps are the collaborators Mount wires into the handlers.
type Deps struct {
	Ledger        *ledger.Service
	Authenticator auth.Authenticator
	Sessions      *auth.SessionManager

	// Sync runs outbound passes for SyncNow. Nil disables it.
	Sync Passer

	// Target stores records pushed by other instances. Nil disables the endpoint.
	Target    remote.Target
	SyncToken string

	// Metrics is optional.
	Metrics *middleware.RPCMetrics
	Logger  *slog.Logger
}

// Mount registers every service on mux.
//
// Interceptors run metrics, then auth, then logging, so logged calls carry the
// caller's user ID.
func Mount(mux *http.ServeMux, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interceptors := func(authn connect.Interceptor) connect.HandlerOption {
		var list []connect.Interceptor
		if d.Metrics != nil {
			list = append(list, d.Metrics.Interceptor())
		}
		list = append(list, authn, middleware.LoggingInterceptor(logger))
		return connect.WithInterceptors(list...)
	}
	api := interceptors(middleware.RequireAuth(d.Sessions, PublicProcedures...))

	mux.Handle(NewAuthService(d.Authenticator, d.Sessions, d.Ledger, logger).Handler(api))
	mux.Handle(NewExpenseService(d.Ledger, logger).Handler(api))
	mux.Handle(NewGroupService(d.Ledger, logger).Handler(api))
	mux.Handle(NewAccountService(d.Ledger, d.Sync, logger).Handler(api))

	if d.Target != nil {
		mux.Handle(NewSyncService(d.Target, logger).Handler(interceptors(middleware.RequireToken(d.SyncToken))))
	}
}
