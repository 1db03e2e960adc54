package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
	"github.com/vendano/payflow/internal/retry"
)

// BeginRequest is a checkout submission from the storefront.
type BeginRequest struct {
	IdempotencyKey string
	Provider       model.Provider
	Amount         int64
	Currency       string
	Customer       model.Customer
}

// CheckoutUseCase drives the create -> confirm -> capture lifecycle. It is
// the only writer of order state together with the callback processor, and
// every write goes through the store's compare-and-swap transition.
type CheckoutUseCase struct {
	orders      repository.OrderRepository
	providers   *provider.Registry
	bus         *events.Bus
	policy      retry.Policy
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewCheckoutUseCase constructs the orchestrator.
func NewCheckoutUseCase(
	orders repository.OrderRepository,
	providers *provider.Registry,
	bus *events.Bus,
	policy retry.Policy,
	callTimeout time.Duration,
	logger *slog.Logger,
) *CheckoutUseCase {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &CheckoutUseCase{
		orders:      orders,
		providers:   providers,
		bus:         bus,
		policy:      policy,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Begin starts a checkout. A repeated call with an idempotency key that
// already has an order returns that order unchanged, whatever its state:
// exactly one order ever exists per key.
func (u *CheckoutUseCase) Begin(ctx context.Context, req BeginRequest) (*model.Order, error) {
	if err := validateBegin(req); err != nil {
		return nil, err
	}

	adapter, err := u.providers.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	order, created, err := u.orders.Create(ctx, &model.Order{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Provider:       req.Provider,
		Amount:         req.Amount,
		Currency:       strings.ToUpper(req.Currency),
		State:          model.OrderStateCreated,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return order, nil
	}

	if !adapter.SupportsCurrency(order.Currency) {
		unsupported := &domainErrors.ProviderError{
			Kind:     domainErrors.UnsupportedCurrency,
			Provider: string(req.Provider),
			Code:     "unsupported_currency",
			Message:  fmt.Sprintf("%s does not settle in %s", req.Provider, order.Currency),
		}
		u.failOrder(ctx, order, unsupported)
		return nil, unsupported
	}

	order, err = u.transition(ctx, order, model.OrderStateCustomerPending, repository.TransitionPatch{})
	if err != nil {
		return order, err
	}
	if order.State != model.OrderStateCustomerPending {
		// Lost a race with a concurrent cancel; nothing left to drive.
		return order, nil
	}

	customerRef, err := u.createCustomer(ctx, adapter, order, req.Customer)
	if err != nil {
		u.failOrder(ctx, order, err)
		return nil, err
	}

	order, err = u.transition(ctx, order, model.OrderStateCustomerReady, repository.TransitionPatch{CustomerRef: &customerRef})
	if err != nil {
		return order, err
	}
	if order.State != model.OrderStateCustomerReady {
		return order, nil
	}

	intent, err := u.createIntent(ctx, adapter, order)
	if err != nil {
		u.failOrder(ctx, order, err)
		return nil, err
	}

	order, err = u.transition(ctx, order, model.OrderStatePaymentPending, repository.TransitionPatch{
		ProviderRef: &intent.ProviderRef,
		RedirectURL: &intent.RedirectURL,
	})
	if err != nil {
		return order, err
	}
	return order, nil
}

// Capture finalizes a card-style payment after the payer authorized it. The
// order is moved to AwaitingConfirmation before the outbound call so that
// concurrent capture requests serialize on the compare-and-swap.
func (u *CheckoutUseCase) Capture(ctx context.Context, orderID uuid.UUID, providerToken string) (*model.Order, error) {
	order, err := u.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.State.Terminal() {
		return order, domainErrors.ErrOrderTerminal
	}
	if order.State != model.OrderStatePaymentPending {
		return order, domainErrors.ErrConflict
	}

	adapter, err := u.providers.Resolve(order.Provider)
	if err != nil {
		return nil, err
	}
	if !adapter.SupportsCapture() {
		// Gateway settles via callback only; the order keeps waiting in
		// PAYMENT_PENDING and no outbound call is attempted.
		return order, domainErrors.ErrCaptureUnsupported
	}

	order, err = u.transition(ctx, order, model.OrderStateAwaitingConfirmation, repository.TransitionPatch{})
	if err != nil {
		return order, err
	}
	if order.State != model.OrderStateAwaitingConfirmation {
		return order, domainErrors.ErrConflict
	}

	var status *provider.Status
	err = u.policy.Do(ctx, u.recordAttempt(ctx, order.ID), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()
		var callErr error
		status, callErr = adapter.Capture(callCtx, *order.ProviderRef, providerToken)
		return callErr
	})
	if err != nil {
		u.failOrder(ctx, order, err)
		return nil, err
	}

	switch status.State {
	case provider.PaymentStateSucceeded:
		return u.transition(ctx, order, model.OrderStateCaptured, repository.TransitionPatch{})
	case provider.PaymentStateFailed:
		return u.transition(ctx, order, model.OrderStateFailed, repository.TransitionPatch{
			LastErrorCode:    ptr("capture_failed"),
			LastErrorMessage: ptr("provider reported capture failure"),
		})
	case provider.PaymentStateCancelled:
		return u.transition(ctx, order, model.OrderStateCancelled, repository.TransitionPatch{})
	default:
		// Still pending provider-side; the callback or the reconciliation
		// sweep settles it.
		return order, nil
	}
}

// Cancel aborts a checkout while it is still non-terminal. Once captured,
// cancellation is a refund concern and is rejected here.
func (u *CheckoutUseCase) Cancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	for i := 0; i < 3; i++ {
		order, err := u.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.State.Terminal() {
			return order, domainErrors.ErrOrderTerminal
		}

		updated, err := u.orders.Transition(ctx, orderID, order.State, model.OrderStateCancelled, repository.TransitionPatch{})
		if err != nil {
			if errors.Is(err, domainErrors.ErrConflict) {
				continue
			}
			return nil, err
		}
		u.publish(order, updated)
		return updated, nil
	}
	return nil, domainErrors.ErrConflict
}

// Get returns the current order record.
func (u *CheckoutUseCase) Get(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return u.orders.Get(ctx, orderID)
}

func (u *CheckoutUseCase) createCustomer(ctx context.Context, adapter provider.Adapter, order *model.Order, customer model.Customer) (string, error) {
	var customerRef string
	err := u.policy.Do(ctx, u.recordAttempt(ctx, order.ID), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()
		ref, callErr := adapter.CreateCustomer(callCtx, customer)
		if callErr != nil {
			return callErr
		}
		customerRef = ref
		return nil
	})
	return customerRef, err
}

// createIntent retries intent creation with a status lookup first on every
// attempt after the first: a transient failure may have landed after the
// gateway recorded the intent, and blindly re-sending would risk a duplicate
// charge for one order.
func (u *CheckoutUseCase) createIntent(ctx context.Context, adapter provider.Adapter, order *model.Order) (*provider.Intent, error) {
	req := provider.IntentRequest{
		RequestID:   order.ID.String(),
		Amount:      order.Amount,
		Currency:    order.Currency,
		CustomerRef: derefString(order.CustomerRef),
		Metadata:    map[string]string{"order_id": order.ID.String()},
	}

	sent := false
	var intent *provider.Intent
	err := u.policy.Do(ctx, u.recordAttempt(ctx, order.ID), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()

		if sent {
			if found, lookupErr := adapter.FindIntent(callCtx, req.RequestID); lookupErr == nil {
				intent = found
				return nil
			}
		}

		sent = true
		created, callErr := adapter.CreateIntent(callCtx, req)
		if callErr != nil {
			return callErr
		}
		intent = created
		return nil
	})
	return intent, err
}

// transition applies a CAS step from the order's current state. A lost race
// is not surfaced: the caller gets the re-read order and decides from its
// state. ErrConflict never reaches the end user.
func (u *CheckoutUseCase) transition(ctx context.Context, order *model.Order, next model.OrderState, patch repository.TransitionPatch) (*model.Order, error) {
	if !model.CanTransition(order.State, next) {
		return order, domainErrors.ErrConflict
	}
	updated, err := u.orders.Transition(ctx, order.ID, order.State, next, patch)
	if err != nil {
		if errors.Is(err, domainErrors.ErrConflict) {
			return u.orders.Get(ctx, order.ID)
		}
		return nil, err
	}
	u.publish(order, updated)
	return updated, nil
}

// failOrder moves the order to Failed preserving the structured error for
// audit. Losing the race to another terminal transition is fine.
func (u *CheckoutUseCase) failOrder(ctx context.Context, order *model.Order, cause error) {
	code := "provider_error"
	message := cause.Error()
	var pe *domainErrors.ProviderError
	if errors.As(cause, &pe) {
		message = pe.Message
		if pe.Code != "" {
			code = pe.Code
		} else {
			code = string(pe.Kind)
		}
	}
	if errors.Is(cause, domainErrors.ErrRetriesExhausted) {
		code = "retries_exhausted"
	}

	updated, err := u.orders.Transition(ctx, order.ID, order.State, model.OrderStateFailed, repository.TransitionPatch{
		LastErrorCode:    &code,
		LastErrorMessage: &message,
	})
	if err != nil {
		u.logger.Warn("failed order transition lost",
			slog.String("order", order.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	u.publish(order, updated)
}

func (u *CheckoutUseCase) recordAttempt(ctx context.Context, orderID uuid.UUID) func(int) {
	return func(int) {
		if err := u.orders.RecordAttempt(ctx, orderID); err != nil {
			u.logger.Warn("record attempt failed",
				slog.String("order", orderID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (u *CheckoutUseCase) publish(before, after *model.Order) {
	if u.bus == nil || before.State == after.State {
		return
	}
	u.bus.Publish(events.OrderStatusChanged{
		OrderID:  after.ID,
		Provider: after.Provider,
		From:     before.State,
		To:       after.State,
	})
}

func validateBegin(req BeginRequest) error {
	switch {
	case req.IdempotencyKey == "":
		return fmt.Errorf("%w: idempotency key is required", domainErrors.ErrValidation)
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", domainErrors.ErrValidation)
	case len(req.Currency) != 3:
		return fmt.Errorf("%w: currency must be an ISO 4217 code", domainErrors.ErrValidation)
	case req.Customer.Name == "":
		return fmt.Errorf("%w: customer name is required", domainErrors.ErrValidation)
	case !strings.Contains(req.Customer.Email, "@"):
		return fmt.Errorf("%w: customer email is malformed", domainErrors.ErrValidation)
	case req.Customer.Phone == "":
		return fmt.Errorf("%w: customer phone is required", domainErrors.ErrValidation)
	}
	switch req.Provider {
	case model.ProviderMobileMoney, model.ProviderCard:
		return nil
	}
	return fmt.Errorf("%w: unknown provider %q", domainErrors.ErrValidation, req.Provider)
}

func ptr(s string) *string { return &s }

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
