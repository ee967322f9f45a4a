package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/loykin/bridges/internal/common"
)

// Registry keeps one Store per name. Stores are opened on first use and
// closed together by Shutdown.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	open   func(context.Context, Config) (*Store, error)
}

func NewRegistry() *Registry {
	return &Registry{stores: map[string]*Store{}, open: Open}
}

// Get returns the store registered under name, opening it with cfg when it
// does not exist yet. cfg is ignored for an existing store.
func (r *Registry) Get(ctx context.Context, name string, cfg Config) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.stores[name]; ok {
		return st, nil
	}
	st, err := r.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.stores[name] = st
	common.GetLogger().WithStore(st.Driver()).Debug("store registered", "name", name)
	return st, nil
}

// Lookup returns an already opened store.
func (r *Registry) Lookup(name string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[name]
	return st, ok
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.stores))
	for n := range r.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Shutdown closes every store and empties the registry.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, st := range r.stores {
		if err := st.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.stores, name)
	}
	return errors.Join(errs...)
}
