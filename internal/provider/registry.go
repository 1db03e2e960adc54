package provider

import (
	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
)

// Registry resolves adapters by provider name.
type Registry struct {
	adapters map[model.Provider]Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[model.Provider]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Resolve returns the adapter for the provider or ErrUnknownProvider.
func (r *Registry) Resolve(p model.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, domainErrors.ErrUnknownProvider
	}
	return a, nil
}
