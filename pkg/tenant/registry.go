package tenant

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Registry holds the tenant configurations. Readers never block: every
// write publishes a new immutable snapshot.
type Registry struct {
	mu       sync.Mutex // serializes writers
	snapshot atomic.Pointer[map[string]Config]
}

// NewRegistry creates a registry seeded with configs.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{}
	empty := map[string]Config{}
	r.snapshot.Store(&empty)
	if len(configs) > 0 {
		if err := r.Replace(configs...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get returns a copy of the tenant's configuration.
func (r *Registry) Get(id string) (Config, error) {
	cfg, ok := (*r.snapshot.Load())[id]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	return cfg.clone(), nil
}

// Put validates cfg and adds or replaces it as a whole.
func (r *Registry) Put(cfg Config) error {
	cfg, err := prepare(cfg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(*r.snapshot.Load())
	next[cfg.ID] = cfg
	r.snapshot.Store(&next)
	return nil
}

// Delete removes a tenant. It reports whether the tenant existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.snapshot.Load()
	if _, ok := current[id]; !ok {
		return false
	}
	next := maps.Clone(current)
	delete(next, id)
	r.snapshot.Store(&next)
	return true
}

// Replace swaps the full tenant set. Nothing changes if any config is invalid.
func (r *Registry) Replace(configs ...Config) error {
	next := make(map[string]Config, len(configs))
	for _, cfg := range configs {
		cfg, err := prepare(cfg)
		if err != nil {
			return err
		}
		if _, dup := next[cfg.ID]; dup {
			return fmt.Errorf("%w: duplicate tenant %s", ErrInvalidConfig, cfg.ID)
		}
		next[cfg.ID] = cfg
	}

	r.mu.Lock()
	r.snapshot.Store(&next)
	r.mu.Unlock()
	return nil
}

// IDs returns the registered tenant ids in sorted order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(*r.snapshot.Load()))
}

func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

func prepare(cfg Config) (Config, error) {
	cfg = cfg.WithDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) clone() Config {
	c.OAuth.Scopes = slices.Clone(c.OAuth.Scopes)
	return c
}
