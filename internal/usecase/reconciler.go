package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"craftex/pkg/logger"
)

// SessionLister exposes which users currently hold a live push connection.
// Satisfied by the websocket manager.
type SessionLister interface {
	ConnectedUserIDs() []string
}

// Reconciler periodically sweeps the awaiting deliveries of every connected
// customer against the purchase ledger. Connected users are the only ones
// who can see a payment reflected live; everyone else catches up on their
// next connect.
type Reconciler struct {
	deliveries *DeliveryUseCase
	sessions   SessionLister
	interval   time.Duration
	// concurrent sweeps per tick
	parallelism int
}

func NewReconciler(deliveries *DeliveryUseCase, sessions SessionLister, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		deliveries:  deliveries,
		sessions:    sessions,
		interval:    interval,
		parallelism: 8,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval. Failed
// sweeps are logged and retried on the next tick; a payment is never lost,
// only delayed.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	userIDs := r.sessions.ConnectedUserIDs()
	if len(userIDs) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := r.deliveries.SweepCustomer(ctx, userID); err != nil {
				logger.Error("Delivery sweep failed for user %s: %v", userID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Delivery sweep aborted: %v", err)
	}
}
