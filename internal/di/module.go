package di

import (
	"go.uber.org/fx"

	"github.com/vendano/payflow/internal/app"
	"github.com/vendano/payflow/internal/config"
	"github.com/vendano/payflow/internal/events"
	"github.com/vendano/payflow/internal/logger"
	"github.com/vendano/payflow/internal/provider"
	"github.com/vendano/payflow/internal/provider/card"
	"github.com/vendano/payflow/internal/provider/mobilemoney"
	"github.com/vendano/payflow/internal/server/http/handlers"
	"github.com/vendano/payflow/internal/server/http/router"
	"github.com/vendano/payflow/internal/storage/postgres"
	"github.com/vendano/payflow/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		events.Module,
		mobilemoney.Module,
		card.Module,
		provider.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.StoragePinger { return s }),
		fx.Provide(func(f *app.PaymentFacade) handlers.PaymentFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
