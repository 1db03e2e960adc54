package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/vendano/payflow/internal/app"
	"github.com/vendano/payflow/internal/config"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/storage/postgres"
	"github.com/vendano/payflow/internal/test"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:         ":0",
		DatabaseURI:        "postgres://stub",
		MobileMoneyBaseURL: "https://momo.local",
		CardBaseURL:        "https://cards.local",
		ProviderTimeout:    time.Second,
		RetryMaxAttempts:   1,
		RetryBaseDelay:     time.Millisecond,
		RetryMaxDelay:      time.Millisecond,
		PendingMaxWait:     time.Minute,
		ReconcileInterval:  time.Millisecond,
		WorkerPoolSize:     1,
		SweepBatch:         1,
		ShutdownTimeout:    time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orderRepo := test.NewMemoryOrderRepository()
	callbackRepo := test.NewMemoryCallbackRepository()

	var facade *app.PaymentFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(context.Background()),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.OrderRepository(orderRepo)),
			fx.Replace(repository.CallbackEventRepository(callbackRepo)),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected payment facade instance")
	}
}
