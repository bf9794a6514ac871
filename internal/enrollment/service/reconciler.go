package service

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReconcileInterval is how often parked repairs are retried.
const DefaultReconcileInterval = 5 * time.Second

// Reconciler retries parked compensations and seat releases in the background.
type Reconciler struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewReconciler(service *Service, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{service: service, interval: interval, logger: logger}
}

// Run reconciles on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			settled, err := r.service.Reconcile(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "reconcile pass incomplete", "settled", settled, "error", err)
				continue
			}
			if settled > 0 {
				r.logger.InfoContext(ctx, "reconciled parked admissions", "settled", settled)
			}
		}
	}
}
