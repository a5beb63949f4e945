package fragment

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry collects resolver fragments in registration order. That order is
// the discovery order used for last-write-wins resolver merging.
type Registry struct {
	mu        sync.Mutex
	fragments []ResolverFragment
	names     map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register appends f. Names must be unique and non-empty.
func (r *Registry) Register(f ResolverFragment) error {
	if f.Name == "" {
		return errors.New("resolver fragment name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[f.Name]; ok {
		return errors.Errorf("resolver fragment %q is already registered", f.Name)
	}
	r.names[f.Name] = struct{}{}
	r.fragments = append(r.fragments, f)
	return nil
}

// MustRegister is Register for package init code.
func (r *Registry) MustRegister(f ResolverFragment) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Fragments returns a copy of the registered fragments.
func (r *Registry) Fragments() []ResolverFragment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResolverFragment, len(r.fragments))
	copy(out, r.fragments)
	return out
}
