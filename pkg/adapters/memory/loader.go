package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Loader implements ports.GraphLoader and ports.Watchable over a graph held
// in memory. Hosts that edit graphs in process call Set after each edit.
type Loader struct {
	mu       sync.RWMutex
	graph    *domain.Graph
	watchers []chan struct{}
}

// NewLoader creates a loader serving a copy of g.
func NewLoader(g *domain.Graph) *Loader {
	l := &Loader{}
	if g != nil {
		l.graph = g.Clone()
	}
	return l
}

// LoadGraph returns a copy of the current graph.
func (l *Loader) LoadGraph(ctx context.Context) (*domain.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.graph == nil {
		return nil, fmt.Errorf("memory loader: no graph: %w", domain.ErrNotFound)
	}
	return l.graph.Clone(), nil
}

// Set replaces the served graph and signals every watcher.
func (l *Loader) Set(g *domain.Graph) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graph = g.Clone()
	for _, ch := range l.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// a signal is already pending
		}
	}
}

// Watch returns a channel signaled after each Set. It is closed when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
