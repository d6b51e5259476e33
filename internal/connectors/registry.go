// Package connectors maps stored connector endpoints to live adapter
// instances. The registry is explicit and injected: the server builds one
// at startup with the factories it supports, and nothing registers itself
// through package init.
package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/sync/engine"
)

// Factory builds a connector from a stored endpoint with decrypted
// credentials.
type Factory func(ep *models.ConnectorEndpoint) (engine.Connector, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Build instantiates the adapter for the endpoint's kind.
func (r *Registry) Build(ep *models.ConnectorEndpoint) (engine.Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[ep.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connector registered for kind %q", ep.Kind)
	}
	return factory(ep)
}

// Kinds lists the registered connector kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
