package gameflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/registry"
)

// DefaultSubflowSteps bounds a subflow run when the library is given no limit.
const DefaultSubflowSteps = 1000

// Library holds the engines a subflow action may run, keyed by flow name.
// It implements registry.FlowRunner.
type Library struct {
	mu       sync.RWMutex
	flows    map[string]*Engine
	maxSteps int
}

var _ registry.FlowRunner = (*Library)(nil)

// NewLibrary returns an empty library. Each subflow run may commit at most
// maxSteps transitions.
func NewLibrary(maxSteps int) *Library {
	if maxSteps <= 0 {
		maxSteps = DefaultSubflowSteps
	}
	return &Library{flows: make(map[string]*Engine), maxSteps: maxSteps}
}

// Add registers e under its flow name, replacing any engine of that name.
// A flow with a subflow node naming itself is rejected.
func (l *Library) Add(e *Engine) error {
	flow := e.Flow()
	payloads := make([]domain.Payload, len(flow.Nodes))
	for i := range flow.Nodes {
		payloads[i] = flow.Nodes[i].Payload
	}
	for _, target := range registry.SubflowTargets(payloads) {
		if target == flow.Name {
			return fmt.Errorf("flow %q: %w", flow.Name, domain.ErrSubflowRecursion)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.flows[flow.Name] = e
	return nil
}

// Names returns the registered flow names in order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.flows))
	for name := range l.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunFlow starts a fresh instance of the named flow, ticks it to an exit
// node and returns its final variables.
func (l *Library) RunFlow(ctx context.Context, name string, bindings map[string]any) (map[string]any, error) {
	l.mu.RLock()
	e, ok := l.flows[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("flow %q: %w", name, domain.ErrNotFound)
	}

	state, err := e.Start(ctx, name+"-"+uuid.NewString(), bindings)
	if err != nil {
		return nil, err
	}
	state, err = e.Advance(ctx, state, l.maxSteps)
	if err != nil {
		return nil, err
	}
	return state.Variables, nil
}
