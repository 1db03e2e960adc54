package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
)

// TransitionPatch carries the fields a state transition may set alongside the
// new state. Nil fields are left untouched. ProviderRef is write-once: the
// store refuses to overwrite an already assigned reference.
type TransitionPatch struct {
	CustomerRef      *string
	ProviderRef      *string
	RedirectURL      *string
	LastErrorCode    *string
	LastErrorMessage *string
}

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	// Create inserts a new order or, when the idempotency key is already
	// taken, returns the existing order with created=false.
	Create(ctx context.Context, order *model.Order) (*model.Order, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByProviderRef(ctx context.Context, provider model.Provider, ref string) (*model.Order, error)
	// Transition is a compare-and-swap on the stored state: it applies the
	// patch and moves to next only if the row still holds expected, and
	// fails with ErrConflict otherwise.
	Transition(ctx context.Context, id uuid.UUID, expected, next model.OrderState, patch TransitionPatch) (*model.Order, error)
	// RecordAttempt increments the outbound provider call counter.
	RecordAttempt(ctx context.Context, id uuid.UUID) error
	// SelectStuckPending returns orders sitting in PAYMENT_PENDING longer
	// than olderThan, for the reconciliation sweep.
	SelectStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error)
}
