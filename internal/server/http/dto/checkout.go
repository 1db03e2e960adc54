package dto

import "time"

// CustomerPayload carries the payer identity forwarded to the provider.
type CustomerPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Country string `json:"country"`
}

// CheckoutRequest describes a checkout submission.
type CheckoutRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Provider       string          `json:"provider"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Customer       CustomerPayload `json:"customer"`
}

// CaptureRequest carries the provider-issued confirmation token.
type CaptureRequest struct {
	ProviderToken string `json:"provider_token"`
}

// OrderResponse is the order projection returned to the storefront,
// including the audit fields.
type OrderResponse struct {
	OrderID     string    `json:"order_id"`
	Provider    string    `json:"provider"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	State       string    `json:"state"`
	RedirectURL *string   `json:"redirect_url,omitempty"`
	ProviderRef *string   `json:"provider_ref,omitempty"`
	Attempts    int       `json:"attempts"`
	LastError   *string   `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrorResponse is the error payload for non-2xx responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WebhookResponse acknowledges a provider notification.
type WebhookResponse struct {
	Outcome string `json:"outcome"`
}
