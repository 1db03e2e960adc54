package provider

import "go.uber.org/fx"

// Module builds the adapter registry from every gateway adapter tagged into
// the "providers" group.
var Module = fx.Provide(newRegistry)

type registryParams struct {
	fx.In

	Adapters []Adapter `group:"providers"`
}

func newRegistry(p registryParams) *Registry {
	return NewRegistry(p.Adapters...)
}
