package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/vendano/payflow/internal/config"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
	"github.com/vendano/payflow/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewPaymentFacade,
		newHTTPServer,
		newReconciler,
	),
	fx.Invoke(
		registerStatusLogging,
		registerLifecycle,
	),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Orders    repository.OrderRepository
	Providers *provider.Registry
	Bus       *events.Bus
	Config    *config.Config
	Logger    *slog.Logger
}

func newReconciler(p workerParams) *worker.Reconciler {
	return worker.NewReconciler(
		p.Orders,
		p.Providers,
		p.Bus,
		p.Config.ReconcileInterval,
		p.Config.PendingMaxWait,
		p.Config.SweepBatch,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

// registerStatusLogging subscribes an audit log line for every order state
// change, whichever component caused it.
func registerStatusLogging(bus *events.Bus, logger *slog.Logger) {
	bus.Subscribe(func(e events.OrderStatusChanged) {
		logger.Info("order state changed",
			slog.String("order", e.OrderID.String()),
			slog.String("provider", string(e.Provider)),
			slog.String("from", string(e.From)),
			slog.String("to", string(e.To)),
		)
	})
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.Reconciler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting payflow", slog.String("addr", p.Server.Addr))
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("payflow stopped")
			return nil
		},
	})
}
