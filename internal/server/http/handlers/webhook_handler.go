package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/server/http/dto"
	"github.com/vendano/payflow/internal/usecase"
)

// WebhookHandler receives asynchronous provider notifications.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhooks/:provider. Applied, duplicate and orphan
// deliveries are all acknowledged with 200 so the gateway stops redelivering;
// only an unverifiable payload is refused.
func (h *WebhookHandler) Receive(c *gin.Context) {
	providerName := model.Provider(c.Param("provider"))
	switch providerName {
	case model.ProviderMobileMoney, model.ProviderCard:
	default:
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: "unknown_provider", Message: "no such provider"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "bad_request", Message: "unreadable body"})
		return
	}

	outcome, err := h.facade.ProcessCallback(c.Request.Context(), providerName, payload, c.Request.Header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: "internal", Message: "internal error"})
		return
	}

	if outcome == usecase.CallbackRejected {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Code: "verification_failed", Message: "callback authenticity could not be established"})
		return
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{Outcome: string(outcome)})
}
