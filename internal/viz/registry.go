package viz

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownStrategy and related errors describe registry failures.
var (
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrDuplicateStrategy = errors.New("duplicate strategy")
)

// Factory constructs one strategy instance.
type Factory func(Options) Strategy

// Descriptor describes one registered strategy.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Factory     Factory
}

// Registry is a lookup table of strategy factories keyed by id.
type Registry struct {
	order   []string
	entries map[string]Descriptor
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Descriptor{}}
}

// Register adds one descriptor.
func (r *Registry) Register(d Descriptor) error {
	id := strings.TrimSpace(strings.ToLower(d.ID))
	if id == "" || d.Factory == nil {
		return fmt.Errorf("register strategy %q: id and factory are required", d.ID)
	}
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("register strategy %q: %w", id, ErrDuplicateStrategy)
	}
	d.ID = id
	if strings.TrimSpace(d.Name) == "" {
		d.Name = id
	}
	r.entries[id] = d
	r.order = append(r.order, id)
	return nil
}

// New instantiates the strategy registered under id.
func (r *Registry) New(id string, opts Options) (Strategy, error) {
	d, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, id)
	}
	return d.Factory(opts), nil
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.entries[strings.TrimSpace(strings.ToLower(id))]
	return d, ok
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

// Next returns the id registered after id, wrapping around.
func (r *Registry) Next(id string, delta int) string {
	if len(r.order) == 0 {
		return ""
	}
	idx := slices.Index(r.order, strings.TrimSpace(strings.ToLower(id)))
	if idx < 0 {
		return r.order[0]
	}
	n := len(r.order)
	return r.order[((idx+delta)%n+n)%n]
}
