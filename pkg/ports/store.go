package ports

import (
	"context"

	"github.com/aretw0/gameflow/pkg/domain"
)

// StateStore persists flow states so running instances survive restarts.
type StateStore interface {
	// Save persists the state for a given instance ID.
	Save(ctx context.Context, instanceID string, state *domain.FlowState) error

	// Load retrieves the state for a given instance ID.
	// Returns domain.ErrInstanceNotFound if the instance does not exist.
	Load(ctx context.Context, instanceID string) (*domain.FlowState, error)

	// Delete removes the state for a given instance ID. Deleting an unknown
	// instance is not an error.
	Delete(ctx context.Context, instanceID string) error

	// List returns the IDs of all stored instances.
	List(ctx context.Context) ([]string, error)
}
