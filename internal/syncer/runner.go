package syncer

import (
	"context"
	"log/slog"
	"time"
)

// Runner runs a pass at a fixed interval and whenever Notify is called.
// Passes never overlap, including ones started through Reconciler.Pass directly.
// Failures are logged and retried on the next trigger.
type Runner struct {
	rec      *Reconciler
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger

	// passed is called after every pass. Tests use it to wait for a pass.
	passed func(*Report, error)
}

// NewRunner creates a runner for rec. An interval of zero disables the ticker,
// leaving only Notify.
func NewRunner(rec *Reconciler, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		rec:      rec,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Notify schedules a pass. It never blocks; notifications arriving while one is
// pending are merged.
func (r *Runner) Notify() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done. It starts with a pass so records left dirty by a
// previous process are uploaded right away.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Sync runner started", "interval", r.interval)
	defer r.logger.Info("Sync runner stopped")

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		case <-r.trigger:
		}
		r.runPass(ctx)
	}
}

func (r *Runner) runPass(ctx context.Context) {
	report, err := r.rec.Pass(ctx)
	if r.passed != nil {
		r.passed(report, err)
	}
}
