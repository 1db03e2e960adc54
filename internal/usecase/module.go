package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/vendano/payflow/internal/config"
	"github.com/vendano/payflow/internal/domain/repository"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/provider"
	"github.com/vendano/payflow/internal/retry"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newCheckoutUseCase,
	NewCallbackUseCase,
)

type checkoutParams struct {
	fx.In

	Orders    repository.OrderRepository
	Providers *provider.Registry
	Bus       *events.Bus
	Config    *config.Config
	Logger    *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	policy := retry.Policy{
		MaxAttempts: p.Config.RetryMaxAttempts,
		BaseDelay:   p.Config.RetryBaseDelay,
		MaxDelay:    p.Config.RetryMaxDelay,
	}
	return NewCheckoutUseCase(p.Orders, p.Providers, p.Bus, policy, p.Config.ProviderTimeout, p.Logger)
}
