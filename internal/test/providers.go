package test

import (
	"context"
	"net/http"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/provider"
)

// StubAdapter implements provider.Adapter with overridable behavior.
// Nil funcs fall back to a permissive default.
type StubAdapter struct {
	Provider         model.Provider
	Currencies       []string
	NoCapture        bool
	CreateCustomerFn func(ctx context.Context, customer model.Customer) (string, error)
	CreateIntentFn   func(ctx context.Context, req provider.IntentRequest) (*provider.Intent, error)
	FindIntentFn     func(ctx context.Context, requestID string) (*provider.Intent, error)
	StatusFn         func(ctx context.Context, providerRef string) (*provider.Status, error)
	CaptureFn        func(ctx context.Context, providerRef, token string) (*provider.Status, error)
	VerifyCallbackFn func(payload []byte, header http.Header) (model.CallbackEventType, string, error)
}

func (s *StubAdapter) Name() model.Provider {
	if s.Provider == "" {
		return model.ProviderMobileMoney
	}
	return s.Provider
}

func (s *StubAdapter) SupportsCurrency(code string) bool {
	if len(s.Currencies) == 0 {
		return true
	}
	for _, c := range s.Currencies {
		if c == code {
			return true
		}
	}
	return false
}

func (s *StubAdapter) CreateCustomer(ctx context.Context, customer model.Customer) (string, error) {
	if s.CreateCustomerFn != nil {
		return s.CreateCustomerFn(ctx, customer)
	}
	return "cus_stub", nil
}

func (s *StubAdapter) CreateIntent(ctx context.Context, req provider.IntentRequest) (*provider.Intent, error) {
	if s.CreateIntentFn != nil {
		return s.CreateIntentFn(ctx, req)
	}
	return &provider.Intent{ProviderRef: "ref_stub", RedirectURL: "https://pay.example/ref_stub"}, nil
}

func (s *StubAdapter) FindIntent(ctx context.Context, requestID string) (*provider.Intent, error) {
	if s.FindIntentFn != nil {
		return s.FindIntentFn(ctx, requestID)
	}
	return nil, errNotFound
}

func (s *StubAdapter) Status(ctx context.Context, providerRef string) (*provider.Status, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, providerRef)
	}
	return &provider.Status{State: provider.PaymentStatePending}, nil
}

func (s *StubAdapter) SupportsCapture() bool {
	return !s.NoCapture
}

func (s *StubAdapter) Capture(ctx context.Context, providerRef, token string) (*provider.Status, error) {
	if s.CaptureFn != nil {
		return s.CaptureFn(ctx, providerRef, token)
	}
	return &provider.Status{State: provider.PaymentStateSucceeded}, nil
}

func (s *StubAdapter) VerifyCallback(payload []byte, header http.Header) (model.CallbackEventType, string, error) {
	if s.VerifyCallbackFn != nil {
		return s.VerifyCallbackFn(payload, header)
	}
	return model.CallbackPaymentSucceeded, "ref_stub", nil
}
