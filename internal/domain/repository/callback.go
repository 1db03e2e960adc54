package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
)

// CallbackEventRepository persists received provider notifications.
type CallbackEventRepository interface {
	Record(ctx context.Context, event *model.CallbackEvent) (*model.CallbackEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	// HasProcessed reports whether an event with the same provider reference
	// and type has already caused a transition.
	HasProcessed(ctx context.Context, provider model.Provider, providerRef string, eventType model.CallbackEventType) (bool, error)
}
