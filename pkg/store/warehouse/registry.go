package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/store"
)

// Factory opens a warehouse from a connection profile.
type Factory func(ctx context.Context, profile store.Profile, timeout time.Duration) (Warehouse, error)

// Registry maps profile types to warehouse factories.
type Registry interface {
	// Register adds a factory for a profile type
	Register(kind string, factory Factory) error
	// Open connects to the warehouse described by the profile
	Open(ctx context.Context, profile store.Profile, timeout time.Duration) (Warehouse, error)
	// Types returns the registered profile types, sorted
	Types() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]Factory),
	}
}

func (r *registry) Register(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("warehouse type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("warehouse type %q is already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

func (r *registry) Open(ctx context.Context, profile store.Profile, timeout time.Duration) (Warehouse, error) {
	r.mu.RLock()
	factory, exists := r.factories[profile.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("profile %q: warehouse type %q is not registered", profile.Name, profile.Type)
	}

	return factory(ctx, profile, timeout)
}

func (r *registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
