package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
	testhelpers "github.com/vendano/payflow/internal/test"
	"github.com/vendano/payflow/internal/usecase"
)

var errBadSignature = errors.New("signature mismatch")

func newCallbackFixture(t *testing.T, adapter *testhelpers.StubAdapter) (*usecase.CallbackUseCase, *testhelpers.MemoryOrderRepository, *testhelpers.MemoryCallbackRepository, *model.Order) {
	t.Helper()

	orders := testhelpers.NewMemoryOrderRepository()
	callbacks := testhelpers.NewMemoryCallbackRepository()
	registry := provider.NewRegistry(adapter)
	bus := events.NewBus()

	checkout := usecase.NewCheckoutUseCase(orders, registry, bus, testPolicy(), time.Second, testLogger())
	req := validRequest()
	req.Provider = adapter.Name()
	order, err := checkout.Begin(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return usecase.NewCallbackUseCase(orders, callbacks, registry, bus, testLogger()), orders, callbacks, order
}

func TestProcessAppliesSucceededCallback(t *testing.T) {
	adapter := &testhelpers.StubAdapter{Provider: model.ProviderMobileMoney}
	uc, orders, callbacks, order := newCallbackFixture(t, adapter)

	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{"reference":"ref_stub","status":"succeeded"}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	updated, err := orders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != model.OrderStateCaptured {
		t.Fatalf("expected CAPTURED, got %s", updated.State)
	}

	recorded := callbacks.Snapshot()
	if len(recorded) != 1 || !recorded[0].Verified || !recorded[0].Processed {
		t.Fatalf("expected one verified processed event, got %+v", recorded)
	}
}

func TestProcessAppliesFailedCallback(t *testing.T) {
	adapter := &testhelpers.StubAdapter{
		Provider: model.ProviderMobileMoney,
		VerifyCallbackFn: func([]byte, http.Header) (model.CallbackEventType, string, error) {
			return model.CallbackPaymentFailed, "ref_stub", nil
		},
	}
	uc, orders, _, order := newCallbackFixture(t, adapter)

	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	updated, _ := orders.Get(context.Background(), order.ID)
	if updated.State != model.OrderStateFailed {
		t.Fatalf("expected FAILED, got %s", updated.State)
	}
	if updated.LastErrorCode == nil || *updated.LastErrorCode != "payment_failed" {
		t.Fatalf("expected payment_failed code, got %v", updated.LastErrorCode)
	}
}

func TestProcessDuplicateDeliveryIsInert(t *testing.T) {
	adapter := &testhelpers.StubAdapter{Provider: model.ProviderMobileMoney}
	uc, orders, callbacks, order := newCallbackFixture(t, adapter)

	payload := []byte(`{"reference":"ref_stub","status":"succeeded"}`)
	if outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, payload, http.Header{}); err != nil || outcome != usecase.CallbackApplied {
		t.Fatalf("first delivery: outcome=%v err=%v", outcome, err)
	}

	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, payload, http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}

	updated, _ := orders.Get(context.Background(), order.ID)
	if updated.State != model.OrderStateCaptured {
		t.Fatalf("duplicate must not move the order, got %s", updated.State)
	}
	// Both deliveries are kept for audit.
	if len(callbacks.Snapshot()) != 2 {
		t.Fatalf("expected two recorded events, got %d", len(callbacks.Snapshot()))
	}
}

func TestProcessConcurrentDuplicatesApplyOnce(t *testing.T) {
	adapter := &testhelpers.StubAdapter{Provider: model.ProviderMobileMoney}
	uc, orders, _, order := newCallbackFixture(t, adapter)

	const n = 8
	outcomes := make(chan usecase.CallbackOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{}`), http.Header{})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	applied := 0
	for outcome := range outcomes {
		if outcome == usecase.CallbackApplied {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied delivery, got %d", applied)
	}

	updated, _ := orders.Get(context.Background(), order.ID)
	if updated.State != model.OrderStateCaptured {
		t.Fatalf("expected CAPTURED, got %s", updated.State)
	}
}

func TestProcessUnverifiableCallbackRejected(t *testing.T) {
	adapter := &testhelpers.StubAdapter{
		Provider: model.ProviderMobileMoney,
		VerifyCallbackFn: func([]byte, http.Header) (model.CallbackEventType, string, error) {
			return "", "", errBadSignature
		},
	}
	uc, orders, callbacks, order := newCallbackFixture(t, adapter)

	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{"forged":true}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackRejected {
		t.Fatalf("expected rejected, got %s", outcome)
	}

	recorded := callbacks.Snapshot()
	if len(recorded) != 1 {
		t.Fatalf("rejected delivery must still be recorded, got %d", len(recorded))
	}
	if recorded[0].Verified || recorded[0].Processed {
		t.Fatalf("rejected event must stay unverified and unprocessed, got %+v", recorded[0])
	}

	updated, _ := orders.Get(context.Background(), order.ID)
	if updated.State != model.OrderStatePaymentPending {
		t.Fatalf("rejected callback must not move the order, got %s", updated.State)
	}
}

func TestProcessOrphanCallbackKept(t *testing.T) {
	adapter := &testhelpers.StubAdapter{
		Provider: model.ProviderMobileMoney,
		VerifyCallbackFn: func([]byte, http.Header) (model.CallbackEventType, string, error) {
			return model.CallbackPaymentSucceeded, "ref_unknown", nil
		},
	}
	uc, _, callbacks, _ := newCallbackFixture(t, adapter)

	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackOrphan {
		t.Fatalf("expected orphan, got %s", outcome)
	}

	recorded := callbacks.Snapshot()
	if len(recorded) != 1 || !recorded[0].Verified || recorded[0].Processed {
		t.Fatalf("orphan must be kept verified but unprocessed, got %+v", recorded)
	}
}

func TestProcessCancelledCallbackOnTerminalOrder(t *testing.T) {
	adapter := &testhelpers.StubAdapter{Provider: model.ProviderMobileMoney}
	uc, orders, _, order := newCallbackFixture(t, adapter)

	// Succeeded arrives first, then a late cancelled notification.
	if outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{}`), http.Header{}); err != nil || outcome != usecase.CallbackApplied {
		t.Fatalf("first delivery: outcome=%v err=%v", outcome, err)
	}

	adapter.VerifyCallbackFn = func([]byte, http.Header) (model.CallbackEventType, string, error) {
		return model.CallbackPaymentCancelled, "ref_stub", nil
	}
	outcome, err := uc.Process(context.Background(), model.ProviderMobileMoney, []byte(`{}`), http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != usecase.CallbackDuplicate {
		t.Fatalf("expected duplicate on terminal order, got %s", outcome)
	}

	updated, _ := orders.Get(context.Background(), order.ID)
	if updated.State != model.OrderStateCaptured {
		t.Fatalf("terminal state must not change, got %s", updated.State)
	}
}

func TestProcessUnknownProvider(t *testing.T) {
	adapter := &testhelpers.StubAdapter{Provider: model.ProviderMobileMoney}
	uc, _, _, _ := newCallbackFixture(t, adapter)

	if _, err := uc.Process(context.Background(), model.ProviderCard, []byte(`{}`), http.Header{}); err == nil {
		t.Fatal("expected unknown provider error")
	}
}
