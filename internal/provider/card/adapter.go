// Package card implements the provider adapter for the card gateway. Card
// payments require an explicit capture call after the payer authorizes the
// intent; webhooks are authenticated by an HMAC signature header.
package card

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

const signatureHeader = "X-Card-Signature"

var currencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "NGN": {}, "XOF": {},
}

// Gateway talks to the card provider's HTTP API.
type Gateway struct {
	baseURL    *url.URL
	apiKey     string
	verifier   *signature.HMACVerifier
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds the card gateway adapter from injected settings.
func New(settings provider.Settings, logger *slog.Logger) (*Gateway, error) {
	parsed, err := url.Parse(settings.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse card gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("card gateway url must be absolute")
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		baseURL:    parsed,
		apiKey:     settings.APIKey,
		verifier:   signature.NewHMACVerifier(settings.WebhookSecret),
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (g *Gateway) Name() model.Provider {
	return model.ProviderCard
}

func (g *Gateway) SupportsCurrency(code string) bool {
	_, ok := currencies[code]
	return ok
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

type customerResponse struct {
	ID string `json:"id"`
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
	return resp.ID, nil
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

// CreateIntent creates a payment intent. The request id travels in the
// X-Request-Id header so the gateway deduplicates repeated sends.
func (g *Gateway) CreateIntent(ctx context.Context, req provider.IntentRequest) (*provider.Intent, error) {
	body := intentRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Customer: req.CustomerRef,
		Metadata: req.Metadata,
	}
	var resp intentResponse
	if err := g.post(ctx, "/v1/payment_intents", req.RequestID, body, &resp); err != nil {
		return nil, err
	}
	return &provider.Intent{ProviderRef: resp.ID, RedirectURL: resp.RedirectURL}, nil
}

// FindIntent looks up an intent by the request id of its creation.
func (g *Gateway) FindIntent(ctx context.Context, requestID string) (*provider.Intent, error) {
	endpoint := *g.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/payment_intents/lookup")
	q := endpoint.Query()
	q.Set("request_id", requestID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	var resp intentResponse
	if err := g.do(req, &resp, nil); err != nil {
		return nil, err
	}
	return &provider.Intent{ProviderRef: resp.ID, RedirectURL: resp.RedirectURL}, nil
}

// Status returns the gateway's canonical intent status.
func (g *Gateway) Status(ctx context.Context, providerRef string) (*provider.Status, error) {
	var resp intentResponse
	var raw []byte
	if err := g.get(ctx, "/v1/payment_intents/"+providerRef, &resp, &raw); err != nil {
		return nil, err
	}
	return &provider.Status{State: mapIntentStatus(resp.Status), Raw: raw}, nil
}

type captureRequest struct {
	Token string `json:"token"`
}

// SupportsCapture reports true: card payments carry an explicit capture step.
func (g *Gateway) SupportsCapture() bool {
	return true
}

// Capture finalizes a previously authorized intent.
func (g *Gateway) Capture(ctx context.Context, providerRef, providerToken string) (*provider.Status, error) {
	var resp intentResponse
	if err := g.post(ctx, "/v1/payment_intents/"+providerRef+"/capture", "", captureRequest{Token: providerToken}, &resp); err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(resp)
	return &provider.Status{State: mapIntentStatus(resp.Status), Raw: raw}, nil
}

type callbackPayload struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// VerifyCallback authenticates the webhook via the HMAC signature header.
func (g *Gateway) VerifyCallback(payload []byte, header http.Header) (model.CallbackEventType, string, error) {
	if err := g.verifier.Verify(payload, header.Get(signatureHeader)); err != nil {
		return "", "", domainErrors.ErrVerificationFailed
	}
	var body callbackPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", "", domainErrors.ErrVerificationFailed
	}
	if body.Data.ID == "" {
		return "", "", domainErrors.ErrVerificationFailed
	}
	switch body.Type {
	case "payment_intent.succeeded":
		return model.CallbackPaymentSucceeded, body.Data.ID, nil
	case "payment_intent.failed":
		return model.CallbackPaymentFailed, body.Data.ID, nil
	case "payment_intent.cancelled":
		return model.CallbackPaymentCancelled, body.Data.ID, nil
	}
	return "", "", domainErrors.ErrVerificationFailed
}

func mapIntentStatus(status string) provider.PaymentState {
	switch status {
	case "succeeded", "captured":
		return provider.PaymentStateSucceeded
	case "failed", "declined":
		return provider.PaymentStateFailed
	case "cancelled", "expired":
		return provider.PaymentStateCancelled
	default:
		return provider.PaymentStatePending
	}
}

func (g *Gateway) post(ctx context.Context, p, requestID string, body, out any) error {
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
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
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
			Provider: string(model.ProviderCard),
			Message:  err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domainErrors.ProviderError{
			Kind:     domainErrors.ProviderUnavailable,
			Provider: string(model.ProviderCard),
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
		g.logger.Error("card gateway request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("path", req.URL.Path),
		)
		return &domainErrors.ProviderError{
			Kind:       domainErrors.ProviderUnavailable,
			Provider:   string(model.ProviderCard),
			Message:    resp.Status,
			HTTPStatus: resp.StatusCode,
		}
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) rejectedError(status int, body []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		apiErr.Error.Message = http.StatusText(status)
	}
	return &domainErrors.ProviderError{
		Kind:       domainErrors.ProviderRejected,
		Provider:   string(model.ProviderCard),
		Code:       apiErr.Error.Code,
		Message:    apiErr.Error.Message,
		HTTPStatus: status,
	}
}
