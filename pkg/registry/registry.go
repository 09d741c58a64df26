package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Registry maps behavior names to predicates and actions. It implements
// ports.Behaviors and is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]domain.Predicate
	actions    map[string]domain.ActionFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]domain.Predicate),
		actions:    make(map[string]domain.ActionFunc),
	}
}

// NewWithBuiltins creates a registry preloaded with the builtin behaviors.
func NewWithBuiltins() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterPredicate adds a predicate. An existing one with the same name is overwritten.
func (r *Registry) RegisterPredicate(name string, fn domain.Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = fn
}

// RegisterAction adds an action. An existing one with the same name is overwritten.
func (r *Registry) RegisterAction(name string, fn domain.ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Predicate looks up a predicate by name.
func (r *Registry) Predicate(name string) (domain.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.predicates[name]
	return fn, ok
}

// Action looks up an action by name.
func (r *Registry) Action(name string) (domain.ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns the registered predicate and action names, sorted.
func (r *Registry) Names() (predicates, actions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.predicates {
		predicates = append(predicates, name)
	}
	for name := range r.actions {
		actions = append(actions, name)
	}
	sort.Strings(predicates)
	sort.Strings(actions)
	return predicates, actions
}
