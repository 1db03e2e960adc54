package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/server/http/handlers"
	testhelpers "github.com/vendano/payflow/internal/test"
	"github.com/vendano/payflow/internal/usecase"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.PaymentFacadeStub{
		BeginCheckoutFn: func(context.Context, usecase.BeginRequest) (*model.Order, error) {
			return &model.Order{ID: uuid.New(), Provider: model.ProviderMobileMoney, State: model.OrderStatePaymentPending}, nil
		},
	}
	engine := Setup(facade, logger)

	body, _ := json.Marshal(map[string]any{
		"idempotency_key": "cart-1",
		"provider":        "mobile_money",
		"amount":          5000,
		"currency":        "XOF",
		"customer":        map[string]string{"name": "Awa", "email": "awa@example.com", "phone": "+226", "country": "BF"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for checkout, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/"+uuid.NewString(), nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for order lookup, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/mobile_money", bytes.NewReader([]byte(`{}`)))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for webhook, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for health, got %d", resp.Code)
	}
}

var _ handlers.PaymentFacade = (*testhelpers.PaymentFacadeStub)(nil)
