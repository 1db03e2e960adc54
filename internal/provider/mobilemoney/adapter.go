// Package mobilemoney implements the provider adapter for the mobile money
// gateway. The gateway settles asynchronously: payments are confirmed by
// webhook only, there is no capture call.
package mobilemoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/pkg/signature"
	"github.com/vendano/payflow/internal/provider"
)

const tokenHeader = "X-Momo-Token"

var currencies = map[string]struct{}{
	"XOF": {}, "XAF": {}, "GHS": {}, "KES": {}, "UGX": {},
}

// Gateway talks to the mobile money provider's HTTP API.
type Gateway struct {
	baseURL       *url.URL
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
	logger        *slog.Logger
}

// New builds the mobile money gateway adapter from injected settings.
func New(settings provider.Settings, logger *slog.Logger) (*Gateway, error) {
	parsed, err := url.Parse(settings.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse mobile money url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("mobile money url must be absolute")
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		baseURL:       parsed,
		apiKey:        settings.APIKey,
		webhookSecret: settings.WebhookSecret,
		logger:        logger,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *Gateway) Name() model.Provider {
	return model.ProviderMobileMoney
}

func (g *Gateway) SupportsCurrency(code string) bool {
	_, ok := currencies[code]
	return ok
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Country string `json:"country,omitempty"`
}

type customerResponse struct {
	CustomerID string `json:"customer_id"`
}

// CreateCustomer registers the payer with the gateway.
func (g *Gateway) CreateCustomer(ctx context.Context, customer model.Customer) (string, error) {
	body := customerRequest{
		Name:    customer.Name,
		Email:   customer.Email,
		Phone:   customer.Phone,
		Country: customer.Country,
	}
	var resp customerResponse
	if err := g.post(ctx, "/v1/customers", "", body, &resp); err != nil {
		return "", err
	}
	return resp.CustomerID, nil
}

type chargeRequest struct {
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	CustomerID string            `json:"customer_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type chargeResponse struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

// CreateIntent creates a charge. The request id travels in the
// Idempotency-Key header so the gateway deduplicates repeated sends.
func (g *Gateway) CreateIntent(ctx context.Context, req provider.IntentRequest) (*provider.Intent, error) {
	body := chargeRequest{
		Amount:     req.Amount,
		Currency:   req.Currency,
		CustomerID: req.CustomerRef,
		Metadata:   req.Metadata,
	}
	var resp chargeResponse
	if err := g.post(ctx, "/v1/charges", req.RequestID, body, &resp); err != nil {
		return nil, err
	}
	return &provider.Intent{ProviderRef: resp.Reference, RedirectURL: resp.CheckoutURL}, nil
}

// FindIntent looks up a charge by the idempotency key of its creation.
func (g *Gateway) FindIntent(ctx context.Context, requestID string) (*provider.Intent, error) {
	var resp chargeResponse
	if err := g.get(ctx, "/v1/charges/by-request/"+requestID, &resp, nil); err != nil {
		return nil, err
	}
	return &provider.Intent{ProviderRef: resp.Reference, RedirectURL: resp.CheckoutURL}, nil
}

// Status returns the gateway's canonical charge status.
func (g *Gateway) Status(ctx context.Context, providerRef string) (*provider.Status, error) {
	var resp chargeResponse
	var raw []byte
	if err := g.get(ctx, "/v1/charges/"+providerRef, &resp, &raw); err != nil {
		return nil, err
	}
	return &provider.Status{State: mapChargeStatus(resp.Status), Raw: raw}, nil
}

// SupportsCapture reports false: mobile money settles via callback only.
func (g *Gateway) SupportsCapture() bool {
	return false
}

// Capture is not part of the mobile money flow.
func (g *Gateway) Capture(ctx context.Context, providerRef, providerToken string) (*provider.Status, error) {
	return nil, domainErrors.ErrCaptureUnsupported
}

type callbackPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// VerifyCallback authenticates the webhook by constant-time comparison of the
// shared-secret header.
func (g *Gateway) VerifyCallback(payload []byte, header http.Header) (model.CallbackEventType, string, error) {
	if !signature.SecretsEqual(header.Get(tokenHeader), g.webhookSecret) {
		return "", "", domainErrors.ErrVerificationFailed
	}
	var body callbackPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", "", domainErrors.ErrVerificationFailed
	}
	if body.Reference == "" {
		return "", "", domainErrors.ErrVerificationFailed
	}
	switch mapChargeStatus(body.Status) {
	case provider.PaymentStateSucceeded:
		return model.CallbackPaymentSucceeded, body.Reference, nil
	case provider.PaymentStateFailed:
		return model.CallbackPaymentFailed, body.Reference, nil
	case provider.PaymentStateCancelled:
		return model.CallbackPaymentCancelled, body.Reference, nil
	}
	return "", "", domainErrors.ErrVerificationFailed
}

func mapChargeStatus(status string) provider.PaymentState {
	switch status {
	case "success", "succeeded":
		return provider.PaymentStateSucceeded
	case "failed", "declined":
		return provider.PaymentStateFailed
	case "cancelled", "expired":
		return provider.PaymentStateCancelled
	default:
		return provider.PaymentStatePending
	}
}

func (g *Gateway) post(ctx context.Context, p, idempotencyKey string, body, out any) error {
	endpoint := *g.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return g.do(req, out, nil)
}

func (g *Gateway) get(ctx context.Context, p string, out any, raw *[]byte) error {
	endpoint := *g.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	return g.do(req, out, raw)
}

func (g *Gateway) do(req *http.Request, out any, raw *[]byte) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &domainErrors.ProviderError{
			Kind:     domainErrors.ProviderUnavailable,
			Provider: string(model.ProviderMobileMoney),
			Message:  err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domainErrors.ProviderError{
			Kind:     domainErrors.ProviderUnavailable,
			Provider: string(model.ProviderMobileMoney),
			Message:  err.Error(),
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if raw != nil {
			*raw = body
		}
		return json.Unmarshal(body, out)
	case resp.StatusCode == http.StatusNotFound:
		return domainErrors.ErrNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return g.rejectedError(resp.StatusCode, body)
	default:
		g.logger.Error("mobile money request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("path", req.URL.Path),
		)
		return &domainErrors.ProviderError{
			Kind:       domainErrors.ProviderUnavailable,
			Provider:   string(model.ProviderMobileMoney),
			Message:    resp.Status,
			HTTPStatus: resp.StatusCode,
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *Gateway) rejectedError(status int, body []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return &domainErrors.ProviderError{
		Kind:       domainErrors.ProviderRejected,
		Provider:   string(model.ProviderMobileMoney),
		Code:       apiErr.Code,
		Message:    apiErr.Message,
		HTTPStatus: status,
	}
}
