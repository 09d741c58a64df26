package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil, memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("instance-%d", i)
		_ = mgr.Save(ctx, id, &domain.FlowState{InstanceID: id})
		_ = mgr.Terminate(ctx, id)
	}

	assert.Empty(t, mgr.locks, "locks are released once unused")
}
