// Package provider defines the uniform capability set implemented by each
// payment gateway adapter. Adapters normalize provider-specific request and
// response shapes into this contract; everything above them is
// provider-agnostic.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/vendano/payflow/internal/domain/model"
)

// Intent is the provider's record of a payment to be authorized by the payer.
type Intent struct {
	ProviderRef string
	RedirectURL string
}

// IntentRequest carries everything needed to create a payment intent.
// RequestID is a client-supplied deduplication id (the order id): a gateway
// receiving the same RequestID twice must not create a second intent.
type IntentRequest struct {
	RequestID   string
	Amount      int64
	Currency    string
	CustomerRef string
	Metadata    map[string]string
}

// PaymentState is the provider's canonical view of a payment.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateSucceeded PaymentState = "succeeded"
	PaymentStateFailed    PaymentState = "failed"
	PaymentStateCancelled PaymentState = "cancelled"
)

// Status is the result of a status or capture call, including the raw
// provider response for audit.
type Status struct {
	State PaymentState
	Raw   []byte
}

// Adapter is implemented once per payment gateway. Adapters make network
// calls only; they never mutate local state, and attempt accounting is owned
// by the caller.
type Adapter interface {
	Name() model.Provider

	// SupportsCurrency reports whether the gateway settles in the given
	// ISO 4217 currency. Checked before any network call.
	SupportsCurrency(code string) bool

	// CreateCustomer registers the payer with the gateway and returns the
	// gateway-side customer reference.
	CreateCustomer(ctx context.Context, customer model.Customer) (string, error)

	// CreateIntent creates a payment intent and returns the provider
	// reference plus the URL the payer is redirected to.
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)

	// FindIntent looks up an intent by the client request id. Returns
	// ErrNotFound when the gateway has no record of it. Used before
	// re-sending an intent creation whose first attempt ended ambiguously.
	FindIntent(ctx context.Context, requestID string) (*Intent, error)

	// Status returns the gateway's canonical view of a payment.
	Status(ctx context.Context, providerRef string) (*Status, error)

	// SupportsCapture reports whether the gateway has an explicit capture
	// step. Gateways that settle via callback only report false, and their
	// Capture returns ErrCaptureUnsupported.
	SupportsCapture() bool

	// Capture finalizes a previously authorized payment.
	Capture(ctx context.Context, providerRef, providerToken string) (*Status, error)

	// VerifyCallback authenticates a webhook delivery and extracts the
	// event type and provider reference. Returns ErrVerificationFailed
	// when authenticity cannot be established.
	VerifyCallback(payload []byte, header http.Header) (model.CallbackEventType, string, error)
}

// Settings is the per-gateway configuration injected at construction.
type Settings struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}
