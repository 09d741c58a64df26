package ports

import (
	"context"

	"github.com/aretw0/gameflow/pkg/domain"
)

// GraphLoader defines how hosts retrieve an editable flow graph.
// This decouples the engine from the storage layer (files, memory, assets).
type GraphLoader interface {
	// LoadGraph returns a freshly decoded graph. Callers own the result.
	LoadGraph(ctx context.Context) (*domain.Graph, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is used for live recompilation while a graph is being edited.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying graph changes.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
