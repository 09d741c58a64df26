package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// GraphLoaderContractTest verifies that an adapter complies with ports.GraphLoader:
// it returns a graph structurally equal to want, and every call hands out an
// independent copy.
func GraphLoaderContractTest(t *testing.T, loader ports.GraphLoader, want *domain.Graph) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadGraph", func(t *testing.T) {
		g, err := loader.LoadGraph(ctx)
		require.NoError(t, err)
		assert.True(t, domain.Equal(want, g), "loaded graph differs:\nwant %+v\ngot  %+v", want.Document(), g.Document())
	})

	t.Run("LoadGraph_Independent", func(t *testing.T) {
		first, err := loader.LoadGraph(ctx)
		require.NoError(t, err)
		first.AddNode(domain.KindState, domain.Payload{})

		second, err := loader.LoadGraph(ctx)
		require.NoError(t, err)
		assert.True(t, domain.Equal(want, second), "mutating a loaded graph must not affect the loader")
	})
}
