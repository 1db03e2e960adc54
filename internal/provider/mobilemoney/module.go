package mobilemoney

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/vendano/payflow/internal/config"
	"github.com/vendano/payflow/internal/provider"
)

// Module exposes the mobile money adapter to the fx graph.
var Module = fx.Provide(
	fx.Annotate(
		newAdapter,
		fx.As(new(provider.Adapter)),
		fx.ResultTags(`group:"providers"`),
	),
)

type adapterParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newAdapter(p adapterParams) (*Gateway, error) {
	return New(provider.Settings{
		BaseURL:       p.Config.MobileMoneyBaseURL,
		APIKey:        p.Config.MobileMoneyAPIKey,
		WebhookSecret: p.Config.MobileMoneyWebhookSecret,
		Timeout:       p.Config.ProviderTimeout,
	}, p.Logger)
}
