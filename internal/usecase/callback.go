package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
)

// CallbackOutcome tells the webhook handler what happened, so it can pick
// the response that stops or allows provider-side redelivery.
type CallbackOutcome string

const (
	// CallbackApplied means the notification caused an order transition.
	CallbackApplied CallbackOutcome = "applied"
	// CallbackDuplicate means the notification was recorded but inert: the
	// order is already terminal or this (providerRef, eventType) pair has
	// already been consumed.
	CallbackDuplicate CallbackOutcome = "duplicate"
	// CallbackOrphan means no order matches the provider reference yet; the
	// event is kept for manual reconciliation.
	CallbackOrphan CallbackOutcome = "orphan"
	// CallbackRejected means authenticity could not be established.
	CallbackRejected CallbackOutcome = "rejected"
)

// CallbackUseCase consumes asynchronous provider notifications and feeds
// confirmed outcomes into the order state machine.
type CallbackUseCase struct {
	orders    repository.OrderRepository
	callbacks repository.CallbackEventRepository
	providers *provider.Registry
	bus       *events.Bus
	logger    *slog.Logger
}

// NewCallbackUseCase constructs the callback processor.
func NewCallbackUseCase(
	orders repository.OrderRepository,
	callbacks repository.CallbackEventRepository,
	providers *provider.Registry,
	bus *events.Bus,
	logger *slog.Logger,
) *CallbackUseCase {
	return &CallbackUseCase{
		orders:    orders,
		callbacks: callbacks,
		providers: providers,
		bus:       bus,
		logger:    logger,
	}
}

// Process verifies and applies one provider notification. Every delivery is
// recorded; only the first verified event per (providerRef, eventType) moves
// the order.
func (u *CallbackUseCase) Process(ctx context.Context, providerName model.Provider, payload []byte, header http.Header) (CallbackOutcome, error) {
	adapter, err := u.providers.Resolve(providerName)
	if err != nil {
		return "", err
	}

	eventType, providerRef, verifyErr := adapter.VerifyCallback(payload, header)
	event := &model.CallbackEvent{
		ID:          uuid.New(),
		Provider:    providerName,
		ProviderRef: providerRef,
		EventType:   eventType,
		RawPayload:  payload,
		Verified:    verifyErr == nil,
	}
	stored, err := u.callbacks.Record(ctx, event)
	if err != nil {
		return "", err
	}
	if verifyErr != nil {
		u.logger.Warn("callback verification failed",
			slog.String("provider", string(providerName)),
		)
		return CallbackRejected, nil
	}

	consumed, err := u.callbacks.HasProcessed(ctx, providerName, providerRef, eventType)
	if err != nil {
		return "", err
	}
	if consumed {
		return u.markDuplicate(ctx, stored.ID)
	}

	order, err := u.orders.GetByProviderRef(ctx, providerName, providerRef)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// The notification outran the local PaymentPending record.
			// Keep the event unprocessed for a later pass.
			u.logger.Warn("callback for unknown provider reference",
				slog.String("provider", string(providerName)),
				slog.String("provider_ref", providerRef),
			)
			return CallbackOrphan, nil
		}
		return "", err
	}

	return u.apply(ctx, stored.ID, order, eventType)
}

func (u *CallbackUseCase) apply(ctx context.Context, eventID uuid.UUID, order *model.Order, eventType model.CallbackEventType) (CallbackOutcome, error) {
	next, patch := targetState(eventType)

	for i := 0; i < 2; i++ {
		if order.State.Terminal() {
			return u.markDuplicate(ctx, eventID)
		}

		updated, err := u.orders.Transition(ctx, order.ID, order.State, next, patch)
		if err != nil {
			if errors.Is(err, domainErrors.ErrConflict) {
				order, err = u.orders.Get(ctx, order.ID)
				if err != nil {
					return "", err
				}
				continue
			}
			return "", err
		}

		if err := u.callbacks.MarkProcessed(ctx, eventID); err != nil {
			return "", err
		}
		if u.bus != nil {
			u.bus.Publish(events.OrderStatusChanged{
				OrderID:  updated.ID,
				Provider: updated.Provider,
				From:     order.State,
				To:       updated.State,
			})
		}
		return CallbackApplied, nil
	}

	// Two lost races in a row means another consumer settled the order.
	return u.markDuplicate(ctx, eventID)
}

func (u *CallbackUseCase) markDuplicate(ctx context.Context, eventID uuid.UUID) (CallbackOutcome, error) {
	if err := u.callbacks.MarkProcessed(ctx, eventID); err != nil {
		return "", err
	}
	return CallbackDuplicate, nil
}

func targetState(eventType model.CallbackEventType) (model.OrderState, repository.TransitionPatch) {
	switch eventType {
	case model.CallbackPaymentFailed:
		return model.OrderStateFailed, repository.TransitionPatch{
			LastErrorCode:    ptr("payment_failed"),
			LastErrorMessage: ptr("provider reported payment failure"),
		}
	case model.CallbackPaymentCancelled:
		return model.OrderStateCancelled, repository.TransitionPatch{}
	default:
		return model.OrderStateCaptured, repository.TransitionPatch{}
	}
}
