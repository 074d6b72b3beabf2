package persistence

import (
	"fmt"
	"sync"
)

// Registry holds the persistence units an application may open, by name.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Unit
	order []string
}

// NewRegistry creates a registry holding units. Duplicate names are rejected.
func NewRegistry(units ...Unit) (*Registry, error) {
	r := &Registry{units: make(map[string]Unit, len(units))}
	for _, u := range units {
		if err := r.Add(u); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a unit.
func (r *Registry) Add(u Unit) error {
	if u.Name == "" {
		return fmt.Errorf("persistence unit name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[u.Name]; exists {
		return fmt.Errorf("persistence unit %q already registered", u.Name)
	}
	r.units[u.Name] = u
	r.order = append(r.order, u.Name)
	return nil
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnitNotFound, name)
	}
	return u, nil
}

// Names returns the registered unit names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
