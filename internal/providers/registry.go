// Package providers implements the dynamic secret provider registry and the
// built-in providers.
//
// Each provider owns one input schema and the semantic checks behind it.
// Validation is side-effect free: no provider here ever opens a connection
// to its target system. The set of variants is resolved once at startup, so
// unknown-type handling stays explicit and testable.
package providers

import (
	"sort"

	"github.com/systmms/leasevault/pkg/provider"
)

// Registry maps provider type identifiers to their implementations.
type Registry struct {
	providers map[string]provider.Provider
}

// NewRegistry creates a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]provider.Provider)}

	r.Register(NewPostgresProvider())
	r.Register(NewMySQLProvider())
	r.Register(NewAWSIAMProvider())
	r.Register(NewMockProvider())

	return r
}

// Register adds a provider, replacing any previous registration of the same
// type.
func (r *Registry) Register(p provider.Provider) {
	r.providers[p.Type()] = p
}

// Get resolves a provider by type, failing with UnknownProviderError when no
// implementation is registered.
func (r *Registry) Get(providerType string) (provider.Provider, error) {
	p, ok := r.providers[providerType]
	if !ok {
		return nil, provider.UnknownProviderError{Type: providerType}
	}
	return p, nil
}

// IsSupported checks if a provider type is registered.
func (r *Registry) IsSupported(providerType string) bool {
	_, ok := r.providers[providerType]
	return ok
}

// Types returns the registered provider types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
