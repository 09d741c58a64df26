package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/internal/presentation/graph"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
)

func diceFlow(t *testing.T) *compiler.Flow {
	t.Helper()
	b := dsl.New("dice")
	b.Event("roll", map[string]string{"roll": "int"})
	b.Entry("start").Go("roll")
	b.Action("roll").Do("from_event", map[string]any{"fields": map[string]any{"roll": "score"}}).
		Output("score", "int").
		Go("gate")
	b.Condition("gate").When("compare", map[string]any{"left": "input.value", "op": ">=", "value": 4}).
		Input("value", "int").
		True("win").
		False("lose")
	b.Exit("win")
	b.Exit("lose")
	b.Link("roll.score", "gate.value")
	g, err := b.Build()
	require.NoError(t, err)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)
	return flow
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(diceFlow(t), nil)

	// indices: start 0, roll 1, gate 2, win 3, lose 4
	for _, want := range []string{
		"graph TD\n",
		`n0(("start"))`,
		`n1[["roll<br/><i>from_event</i>"]]`,
		`n2{"gate<br/><i>compare</i>"}`,
		`n3(["win"])`,
		"n0 --> n1",
		`n2 -- "true" --> n3`,
		`n2 -- "false" --> n4`,
		`n1 -. "score → value" .-> n2`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	flow := diceFlow(t)
	state := &domain.FlowState{Current: 2, History: []int{0, 1, 2, 1, 2, 99}}

	out := graph.GenerateMermaid(flow, graph.OverlayOf(state))
	assert.Equal(t, 1, strings.Count(out, "class n1 visited;"), "visited nodes are deduplicated")
	assert.Contains(t, out, "class n2 current;")
	assert.NotContains(t, out, "n99", "out of range history is ignored")

	assert.Nil(t, graph.OverlayOf(nil))
}
