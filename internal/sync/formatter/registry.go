package formatter

import (
	"fmt"
	"sync"
	"time"
)

// Spec is a stored mapping-based formatter definition, addressable by id.
type Spec struct {
	ID        string     `json:"id"`
	Resource  string     `json:"resource"`
	Origin    string     `json:"origin"`
	Target    string     `json:"target"`
	Mapping   []FieldMap `json:"mapping"`
	CreatedAt time.Time  `json:"created_at"`
}

// Formatter materializes the spec into a mapping formatter.
func (s Spec) Formatter() Formatter {
	return FromMapping(s.Mapping)
}

// Registry is the process-wide formatter spec store. It is created at
// startup and injected into the API and CLI layers; access is guarded so
// concurrent HTTP handlers can share one instance.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

func (r *Registry) Put(spec Spec) error {
	if spec.ID == "" {
		return fmt.Errorf("formatter spec id is required")
	}
	if len(spec.Mapping) == 0 {
		return fmt.Errorf("formatter spec %q has an empty mapping", spec.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
	return nil
}

func (r *Registry) Get(id string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[id]
	return spec, ok
}

func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	return out
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, id)
}
