package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
)

// Reconciler periodically sweeps orders stuck in PAYMENT_PENDING or
// AWAITING_CONFIRMATION past the configured deadline. The provider is always asked for the payment's actual
// status before the order is timed out: a callback lost in transit must not
// turn a settled payment into a failed order.
type Reconciler struct {
	orders         repository.OrderRepository
	providers      *provider.Registry
	bus            *events.Bus
	sweepInterval  time.Duration
	pendingMaxWait time.Duration
	batchSize      int
	workers        int
	logger         *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the sweep worker pool.
func NewReconciler(
	orders repository.OrderRepository,
	providers *provider.Registry,
	bus *events.Bus,
	sweepInterval, pendingMaxWait time.Duration,
	batchSize, workers int,
	logger *slog.Logger,
) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		orders:         orders,
		providers:      providers,
		bus:            bus,
		sweepInterval:  sweepInterval,
		pendingMaxWait: pendingMaxWait,
		batchSize:      batchSize,
		workers:        workers,
		logger:         logger,
		jobs:           make(chan model.Order, batchSize*workers),
	}
}

// Start launches background sweeping.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass immediately.
func (r *Reconciler) Sweep(ctx context.Context) {
	orders, err := r.orders.SelectStuckPending(ctx, r.pendingMaxWait, r.batchSize)
	if err != nil {
		r.logger.Error("select stuck orders failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- order:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-r.jobs:
			if !ok {
				return
			}
			r.reconcile(ctx, order)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context, order model.Order) {
	adapter, err := r.providers.Resolve(order.Provider)
	if err != nil {
		r.logger.Error("stuck order has no adapter",
			slog.String("order", order.ID.String()),
			slog.String("provider", string(order.Provider)),
		)
		return
	}
	if order.ProviderRef == nil {
		// Never reached the gateway; nothing to look up.
		r.timeout(ctx, order)
		return
	}

	status, err := adapter.Status(ctx, *order.ProviderRef)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			r.timeout(ctx, order)
			return
		}
		// Gateway unreachable: leave the order for the next pass rather
		// than failing a payment we cannot see.
		r.logger.Warn("status lookup failed, keeping order for next sweep",
			slog.String("order", order.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	switch status.State {
	case provider.PaymentStateSucceeded:
		r.settle(ctx, order, model.OrderStateCaptured, repository.TransitionPatch{})
	case provider.PaymentStateFailed:
		r.settle(ctx, order, model.OrderStateFailed, repository.TransitionPatch{
			LastErrorCode:    ptr("payment_failed"),
			LastErrorMessage: ptr("provider reported payment failure during reconciliation"),
		})
	case provider.PaymentStateCancelled:
		r.settle(ctx, order, model.OrderStateCancelled, repository.TransitionPatch{})
	default:
		r.timeout(ctx, order)
	}
}

func (r *Reconciler) timeout(ctx context.Context, order model.Order) {
	r.settle(ctx, order, model.OrderStateFailed, repository.TransitionPatch{
		LastErrorCode:    ptr("pending_timeout"),
		LastErrorMessage: ptr("no confirmation before the pending deadline"),
	})
}

// settle CASes the order out of the state it was selected in, so a sweep
// covering both PAYMENT_PENDING and AWAITING_CONFIRMATION never clobbers a
// transition that happened after selection.
func (r *Reconciler) settle(ctx context.Context, order model.Order, next model.OrderState, patch repository.TransitionPatch) {
	updated, err := r.orders.Transition(ctx, order.ID, order.State, next, patch)
	if err != nil {
		// A callback or a capture won the race; their outcome stands.
		if errors.Is(err, domainErrors.ErrConflict) || errors.Is(err, domainErrors.ErrNotFound) {
			return
		}
		r.logger.Error("reconcile transition failed",
			slog.String("order", order.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	r.logger.Info("stuck order reconciled",
		slog.String("order", order.ID.String()),
		slog.String("state", string(updated.State)),
	)
	if r.bus != nil {
		r.bus.Publish(events.OrderStatusChanged{
			OrderID:  updated.ID,
			Provider: updated.Provider,
			From:     order.State,
			To:       updated.State,
		})
	}
}

func ptr(s string) *string { return &s }
