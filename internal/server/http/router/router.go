package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/vendano/payflow/internal/server/http/handlers"
	"github.com/vendano/payflow/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.PaymentFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	checkoutHandler := handlers.NewCheckoutHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.POST("/checkout", checkoutHandler.Begin)
	api.GET("/orders/:id", checkoutHandler.Get)
	api.POST("/checkout/:id/capture", checkoutHandler.Capture)
	api.POST("/checkout/:id/cancel", checkoutHandler.Cancel)
	api.POST("/webhooks/:provider", webhookHandler.Receive)
	api.GET("/health", healthHandler.Check)

	return engine
}
