package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/server/http/dto"
	"github.com/vendano/payflow/internal/usecase"
)

// CheckoutHandler manages order lifecycle endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Begin handles POST /api/checkout.
func (h *CheckoutHandler) Begin(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "bad_request", Message: "malformed json body"})
		return
	}

	order, err := h.facade.BeginCheckout(c.Request.Context(), usecase.BeginRequest{
		IdempotencyKey: req.IdempotencyKey,
		Provider:       model.Provider(req.Provider),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Customer: model.Customer{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Country: req.Customer.Country,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /api/orders/:id.
func (h *CheckoutHandler) Get(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.facade.Order(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Capture handles POST /api/checkout/:id/capture.
func (h *CheckoutHandler) Capture(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "bad_request", Message: "malformed json body"})
		return
	}

	order, err := h.facade.Capture(c.Request.Context(), id, req.ProviderToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Cancel handles POST /api/checkout/:id/cancel.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.facade.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "bad_request", Message: "order id must be a uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var pe *domainErrors.ProviderError
	switch {
	case errors.Is(err, domainErrors.ErrValidation), errors.Is(err, domainErrors.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation_failed", Message: err.Error()})
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: "not_found", Message: "order not found"})
	case errors.Is(err, domainErrors.ErrCaptureUnsupported):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "capture_unsupported", Message: "provider settles via callback only"})
	case errors.Is(err, domainErrors.ErrOrderTerminal):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "order_terminal", Message: "order already reached a final state"})
	case errors.Is(err, domainErrors.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "conflict", Message: "order state changed concurrently"})
	case errors.Is(err, domainErrors.ErrRetriesExhausted):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Code: "provider_unavailable", Message: "payment provider did not respond"})
	case errors.As(err, &pe):
		switch pe.Kind {
		case domainErrors.ProviderUnavailable:
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{Code: "provider_unavailable", Message: pe.Message})
		default:
			c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{Code: pe.Code, Message: pe.Message})
		}
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: "internal", Message: "internal error"})
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		OrderID:     order.ID.String(),
		Provider:    string(order.Provider),
		Amount:      order.Amount,
		Currency:    order.Currency,
		State:       string(order.State),
		RedirectURL: order.RedirectURL,
		ProviderRef: order.ProviderRef,
		Attempts:    order.Attempts,
		LastError:   order.LastErrorCode,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}
