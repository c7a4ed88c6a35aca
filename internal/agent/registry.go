package agent

import "fmt"

// Registry holds the known invokers in registration order. It is
// assembled once at startup; registration order is the detection
// preference order.
type Registry struct {
	invokers []Invoker
}

// NewRegistry creates an empty invoker registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an invoker. Names must be unique.
func (r *Registry) Register(inv Invoker) error {
	name := inv.Name()
	for _, have := range r.invokers {
		if have.Name() == name {
			return fmt.Errorf("agent already registered: %s", name)
		}
	}
	r.invokers = append(r.invokers, inv)
	return nil
}

// Get returns an invoker by name.
func (r *Registry) Get(name string) (Invoker, error) {
	for _, inv := range r.invokers {
		if inv.Name() == name {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("agent not found: %s", name)
}

// List returns the registered invoker names in registration order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.invokers))
	for _, inv := range r.invokers {
		names = append(names, inv.Name())
	}
	return names
}

// Detect returns the configured invoker when named, otherwise the
// first registered one that passes its availability check.
func (r *Registry) Detect(name string) (Invoker, error) {
	if name != "" {
		inv, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		if err := inv.Available(); err != nil {
			return nil, fmt.Errorf("agent %s not available: %w", name, err)
		}
		return inv, nil
	}
	for _, inv := range r.invokers {
		if err := inv.Available(); err == nil {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("no available agents found")
}
