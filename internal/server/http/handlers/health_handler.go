package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendano/payflow/internal/server/http/dto"
)

// HealthHandler reports service readiness.
type HealthHandler struct {
	facade HealthFacade
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(facade HealthFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Check handles GET /api/health.
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.facade.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: "storage_unavailable", Message: "storage ping failed"})
		return
	}
	c.Status(http.StatusOK)
}
