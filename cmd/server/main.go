package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/config"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/middleware"
	"github.com/mmynk/splitit/internal/money"
	"github.com/mmynk/splitit/internal/remote"
	"github.com/mmynk/splitit/internal/seed"
	"github.com/mmynk/splitit/internal/service"
	"github.com/mmynk/splitit/internal/storage/sqlite"
	"github.com/mmynk/splitit/internal/syncer"
	"github.com/mmynk/splitit/pkg/logging"
)

func main() {
	logging.Setup()
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	for _, warning := range cfg.InsecureDefaults() {
		slog.Warn("Insecure configuration", "detail", warning)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter, err := money.NewFormatter(cfg.Currency)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Outbound sync. The ledger pokes the runner after every local change.
	var (
		passer service.Passer
		runner *syncer.Runner
	)
	opts := []ledger.Option{ledger.WithFormatter(formatter)}
	if cfg.SyncRemoteURL != "" {
		client := remote.NewClient(cfg.SyncRemoteURL, remote.WithToken(cfg.SyncToken))
		rec := syncer.NewReconciler(store, client,
			syncer.WithBatchSize(cfg.SyncBatchSize),
			syncer.WithMetrics(syncer.NewMetrics(reg)),
			syncer.WithReconcilerLogger(slog.Default()),
		)
		runner = syncer.NewRunner(rec, cfg.SyncInterval, slog.Default())
		passer = rec
		opts = append(opts, ledger.WithChangeHook(runner.Notify))
		slog.Info("Outbound sync enabled", "remote", cfg.SyncRemoteURL, "interval", cfg.SyncInterval)
	}
	ledgerSvc := ledger.New(store, opts...)

	authenticator := auth.NewPasswordAuthenticator(store)
	sessions := auth.NewSessionManager(authenticator, store, auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), slog.Default())

	if cfg.SeedDemoData {
		if _, err := seed.Seed(ctx, store, authenticator, ledgerSvc, slog.Default()); err != nil {
			return err
		}
	}

	// Inbound sync target for records pushed by other instances.
	var target remote.Target = remote.NewMemory()
	if cfg.RedisAddr != "" {
		rdb, err := remote.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, slog.Default())
		if err != nil {
			return err
		}
		defer rdb.Close()
		target = rdb
		slog.Info("Sync target backed by redis", "address", cfg.RedisAddr)
	}

	mux := http.NewServeMux()
	service.Mount(mux, service.Deps{
		Ledger:        ledgerSvc,
		Authenticator: authenticator,
		Sessions:      sessions,
		Sync:          passer,
		Target:        target,
		SyncToken:     cfg.SyncToken,
		Metrics:       middleware.NewRPCMetrics(reg),
		Logger:        slog.Default(),
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect gRPC clients)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if runner != nil {
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Sync runner exited", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loggingMiddleware logs every request except metrics scrapes.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Authorization", "Connect-Protocol-Version", "Connect-Timeout-Ms",
		}, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
