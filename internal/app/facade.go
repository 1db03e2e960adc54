package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/usecase"
)

// StoragePinger reports persistence availability.
type StoragePinger interface {
	HealthCheck(ctx context.Context) error
}

// PaymentFacade exposes the orchestration use cases to the HTTP layer as one
// surface.
type PaymentFacade struct {
	checkout  *usecase.CheckoutUseCase
	callbacks *usecase.CallbackUseCase
	storage   StoragePinger
}

func NewPaymentFacade(checkout *usecase.CheckoutUseCase, callbacks *usecase.CallbackUseCase, storage StoragePinger) *PaymentFacade {
	return &PaymentFacade{checkout: checkout, callbacks: callbacks, storage: storage}
}

func (f *PaymentFacade) BeginCheckout(ctx context.Context, req usecase.BeginRequest) (*model.Order, error) {
	return f.checkout.Begin(ctx, req)
}

func (f *PaymentFacade) Order(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return f.checkout.Get(ctx, id)
}

func (f *PaymentFacade) Capture(ctx context.Context, id uuid.UUID, providerToken string) (*model.Order, error) {
	return f.checkout.Capture(ctx, id, providerToken)
}

func (f *PaymentFacade) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return f.checkout.Cancel(ctx, id)
}

func (f *PaymentFacade) ProcessCallback(ctx context.Context, provider model.Provider, payload []byte, header http.Header) (usecase.CallbackOutcome, error) {
	return f.callbacks.Process(ctx, provider, payload, header)
}

func (f *PaymentFacade) Ping(ctx context.Context) error {
	return f.storage.HealthCheck(ctx)
}
