package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/usecase"
)

// CheckoutFacade encapsulates order lifecycle operations exposed via HTTP.
type CheckoutFacade interface {
	BeginCheckout(ctx context.Context, req usecase.BeginRequest) (*model.Order, error)
	Order(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Capture(ctx context.Context, id uuid.UUID, providerToken string) (*model.Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// WebhookFacade consumes provider notifications.
type WebhookFacade interface {
	ProcessCallback(ctx context.Context, provider model.Provider, payload []byte, header http.Header) (usecase.CallbackOutcome, error)
}

// HealthFacade reports storage availability.
type HealthFacade interface {
	Ping(ctx context.Context) error
}

// PaymentFacade aggregates the full set of operations used across handlers.
type PaymentFacade interface {
	CheckoutFacade
	WebhookFacade
	HealthFacade
}
