package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
	"github.com/vendano/payflow/internal/retry"
	testhelpers "github.com/vendano/payflow/internal/test"
	"github.com/vendano/payflow/internal/usecase"
)

type pingerStub struct {
	err error
}

func (p pingerStub) HealthCheck(context.Context) error { return p.err }

func newTestFacade(pinger StoragePinger) *PaymentFacade {
	orders := testhelpers.NewMemoryOrderRepository()
	callbacks := testhelpers.NewMemoryCallbackRepository()
	registry := provider.NewRegistry(&testhelpers.StubAdapter{Provider: model.ProviderMobileMoney})
	bus := events.NewBus()
	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	checkout := usecase.NewCheckoutUseCase(orders, registry, bus, policy, time.Second, testLogger())
	callbackUC := usecase.NewCallbackUseCase(orders, callbacks, registry, bus, testLogger())
	return NewPaymentFacade(checkout, callbackUC, pinger)
}

func TestFacadeCheckoutLifecycle(t *testing.T) {
	facade := newTestFacade(pingerStub{})
	ctx := context.Background()

	order, err := facade.BeginCheckout(ctx, usecase.BeginRequest{
		IdempotencyKey: "cart-1",
		Provider:       model.ProviderMobileMoney,
		Amount:         5000,
		Currency:       "XOF",
		Customer:       model.Customer{Name: "Awa", Email: "awa@example.com", Phone: "+226", Country: "BF"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.State != model.OrderStatePaymentPending {
		t.Fatalf("expected PAYMENT_PENDING, got %s", order.State)
	}

	got, err := facade.Order(ctx, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("expected order %s, got %s", order.ID, got.ID)
	}

	outcome, err := facade.ProcessCallback(ctx, model.ProviderMobileMoney, []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err = facade.Order(ctx, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != model.OrderStateCaptured {
		t.Fatalf("expected CAPTURED, got %s", got.State)
	}
}

func TestFacadeCancel(t *testing.T) {
	facade := newTestFacade(pingerStub{})
	ctx := context.Background()

	order, err := facade.BeginCheckout(ctx, usecase.BeginRequest{
		IdempotencyKey: "cart-2",
		Provider:       model.ProviderMobileMoney,
		Amount:         1000,
		Currency:       "XOF",
		Customer:       model.Customer{Name: "Awa", Email: "awa@example.com", Phone: "+226", Country: "BF"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := facade.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.State != model.OrderStateCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.State)
	}
}

func TestFacadePing(t *testing.T) {
	if err := newTestFacade(pingerStub{}).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("down")
	if err := newTestFacade(pingerStub{err: wantErr}).Ping(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected ping error, got %v", err)
	}
}
