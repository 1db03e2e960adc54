package test

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/usecase"
)

// PaymentFacadeStub implements the HTTP handler facade with overridable funcs.
type PaymentFacadeStub struct {
	BeginCheckoutFn   func(ctx context.Context, req usecase.BeginRequest) (*model.Order, error)
	OrderFn           func(ctx context.Context, id uuid.UUID) (*model.Order, error)
	CaptureFn         func(ctx context.Context, id uuid.UUID, providerToken string) (*model.Order, error)
	CancelFn          func(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ProcessCallbackFn func(ctx context.Context, provider model.Provider, payload []byte, header http.Header) (usecase.CallbackOutcome, error)
	PingFn            func(ctx context.Context) error
}

func (s *PaymentFacadeStub) BeginCheckout(ctx context.Context, req usecase.BeginRequest) (*model.Order, error) {
	if s.BeginCheckoutFn != nil {
		return s.BeginCheckoutFn(ctx, req)
	}
	return &model.Order{ID: uuid.New(), State: model.OrderStatePaymentPending}, nil
}

func (s *PaymentFacadeStub) Order(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return &model.Order{ID: id, State: model.OrderStatePaymentPending}, nil
}

func (s *PaymentFacadeStub) Capture(ctx context.Context, id uuid.UUID, providerToken string) (*model.Order, error) {
	if s.CaptureFn != nil {
		return s.CaptureFn(ctx, id, providerToken)
	}
	return &model.Order{ID: id, State: model.OrderStateCaptured}, nil
}

func (s *PaymentFacadeStub) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, id)
	}
	return &model.Order{ID: id, State: model.OrderStateCancelled}, nil
}

func (s *PaymentFacadeStub) ProcessCallback(ctx context.Context, provider model.Provider, payload []byte, header http.Header) (usecase.CallbackOutcome, error) {
	if s.ProcessCallbackFn != nil {
		return s.ProcessCallbackFn(ctx, provider, payload, header)
	}
	return usecase.CallbackApplied, nil
}

func (s *PaymentFacadeStub) Ping(ctx context.Context) error {
	if s.PingFn != nil {
		return s.PingFn(ctx)
	}
	return nil
}
