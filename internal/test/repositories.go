package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
)

// MemoryOrderRepository is a thread-safe in-memory OrderRepository with the
// same compare-and-swap semantics as the PostgreSQL implementation.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*model.Order
	byKey  map[string]uuid.UUID
}

// NewMemoryOrderRepository constructs an empty repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[uuid.UUID]*model.Order),
		byKey:  make(map[string]uuid.UUID),
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[order.IdempotencyKey]; ok {
		clone := *r.orders[id]
		return &clone, false, nil
	}

	stored := *order
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.orders[stored.ID] = &stored
	r.byKey[stored.IdempotencyKey] = stored.ID

	clone := stored
	return &clone, true, nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *MemoryOrderRepository) GetByProviderRef(ctx context.Context, provider model.Provider, ref string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.Provider == provider && order.ProviderRef != nil && *order.ProviderRef == ref {
			clone := *order
			return &clone, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *MemoryOrderRepository) Transition(ctx context.Context, id uuid.UUID, expected, next model.OrderState, patch repository.TransitionPatch) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if order.State != expected {
		return nil, domainErrors.ErrConflict
	}

	order.State = next
	if patch.CustomerRef != nil {
		order.CustomerRef = patch.CustomerRef
	}
	if patch.ProviderRef != nil && order.ProviderRef == nil {
		order.ProviderRef = patch.ProviderRef
	}
	if patch.RedirectURL != nil {
		order.RedirectURL = patch.RedirectURL
	}
	if patch.LastErrorCode != nil {
		order.LastErrorCode = patch.LastErrorCode
	}
	if patch.LastErrorMessage != nil {
		order.LastErrorMessage = patch.LastErrorMessage
	}
	order.UpdatedAt = time.Now()

	clone := *order
	return &clone, nil
}

func (r *MemoryOrderRepository) RecordAttempt(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Attempts++
	return nil
}

func (r *MemoryOrderRepository) SelectStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var result []model.Order
	for _, order := range r.orders {
		stuck := order.State == model.OrderStatePaymentPending || order.State == model.OrderStateAwaitingConfirmation
		if stuck && order.UpdatedAt.Before(cutoff) {
			result = append(result, *order)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// Count returns the number of stored orders.
func (r *MemoryOrderRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// ByKey looks an order up by its idempotency key.
func (r *MemoryOrderRepository) ByKey(key string) (*model.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, false
	}
	clone := *r.orders[id]
	return &clone, true
}

// Backdate rewinds an order's updated_at so sweeps see it as stuck.
func (r *MemoryOrderRepository) Backdate(id uuid.UUID, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.UpdatedAt = order.UpdatedAt.Add(-d)
	}
}

// MemoryCallbackRepository is an in-memory CallbackEventRepository.
type MemoryCallbackRepository struct {
	mu     sync.Mutex
	Events []*model.CallbackEvent
}

// NewMemoryCallbackRepository constructs an empty repository.
func NewMemoryCallbackRepository() *MemoryCallbackRepository {
	return &MemoryCallbackRepository{}
}

func (r *MemoryCallbackRepository) Record(ctx context.Context, event *model.CallbackEvent) (*model.CallbackEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	stored.ReceivedAt = time.Now()
	r.Events = append(r.Events, &stored)

	clone := stored
	return &clone, nil
}

func (r *MemoryCallbackRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.Events {
		if event.ID == id {
			event.Processed = true
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

func (r *MemoryCallbackRepository) HasProcessed(ctx context.Context, provider model.Provider, providerRef string, eventType model.CallbackEventType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.Events {
		if event.Provider == provider && event.ProviderRef == providerRef && event.EventType == eventType && event.Processed {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns copies of all recorded events.
func (r *MemoryCallbackRepository) Snapshot() []model.CallbackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.CallbackEvent, 0, len(r.Events))
	for _, event := range r.Events {
		out = append(out, *event)
	}
	return out
}
