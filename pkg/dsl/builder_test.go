package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
)

func TestBuilder_Branching(t *testing.T) {
	b := dsl.New("door")
	b.Variable("open", "bool")
	b.Entry("start").Go("check")
	b.Condition("check").When("var", map[string]any{"name": "open"}).
		True("enter").
		False("knock")
	b.Action("knock").Do("set", map[string]any{"values": map[string]any{"open": true}}).Go("check")
	b.Exit("enter")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "door", g.Name())
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, map[string]string{"open": "bool"}, g.Variables())

	// ids follow declaration order
	nodes := g.Nodes()
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"start", "check", "knock", "enter"}, names)

	check := nodes[1]
	assert.Equal(t, domain.KindCondition, check.Kind)
	assert.Equal(t, "var", check.Payload.Behavior)

	out := g.OutEdges(check.ID)
	require.Len(t, out, 2)
	assert.Equal(t, nodes[3].ID, out[0].To, "true branch leads to enter")
	assert.Equal(t, nodes[2].ID, out[1].To, "false branch leads to knock")
}

func TestBuilder_DataLink(t *testing.T) {
	b := dsl.New("dice")
	b.Entry("start").Go("roll")
	b.Action("roll").Do("set", map[string]any{"values": map[string]any{"score": 5}}).
		Output("score", "int").
		Go("gate")
	b.Condition("gate").
		Input("value", "data<int>").
		InputDefault("threshold", "int", 3).
		When("compare", map[string]any{"left": "input.value", "op": ">=", "right": "input.threshold"}).
		True("win").
		False("lose")
	b.Exit("win")
	b.Exit("lose")
	b.Link("roll.score", "gate.value")

	g, err := b.Build()
	require.NoError(t, err)

	var link *domain.Edge
	for _, e := range g.Edges() {
		if e.FromPort == 1 && e.ToPort == 1 {
			e := e
			link = &e
		}
	}
	require.NotNil(t, link, "value edge roll.score -> gate.value")

	gate, ok := g.Node(link.To)
	require.True(t, ok)
	threshold, ok := gate.Port(domain.In, gate.PortIndex(domain.In, "threshold"))
	require.True(t, ok)
	assert.True(t, threshold.HasDefault)
	assert.Equal(t, float64(3), threshold.Default)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("unknown target", func(t *testing.T) {
		b := dsl.New("broken")
		b.Entry("start").Go("nowhere")
		_, err := b.Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "nowhere")
	})

	t.Run("kind conflict", func(t *testing.T) {
		b := dsl.New("broken")
		b.Entry("start")
		b.Exit("start")
		_, err := b.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declared as both")
	})

	t.Run("second edge without fan out", func(t *testing.T) {
		b := dsl.New("broken")
		b.Entry("start").Go("a").Go("b")
		b.Exit("a")
		b.Exit("b")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrPortOccupied)
	})

	t.Run("fan out allowed", func(t *testing.T) {
		b := dsl.New("fan")
		b.Entry("start").FanOut("out").Go("a").Go("b")
		b.Exit("a")
		b.Exit("b")
		g, err := b.Build()
		require.NoError(t, err)
		assert.Len(t, g.Edges(), 2)
	})

	t.Run("type mismatch on link", func(t *testing.T) {
		b := dsl.New("broken")
		b.Entry("start").Go("a")
		b.Action("a").Output("name", "string").Go("b")
		b.Condition("b").Input("n", "int").True("end").False("end")
		b.Exit("end")
		b.Link("a.name", "b.n")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	})

	t.Run("malformed link", func(t *testing.T) {
		b := dsl.New("broken")
		b.Entry("start")
		b.Link("start", "other.port")
		_, err := b.Build()
		assert.ErrorContains(t, err, "must be node.port")
	})
}

func TestParsePortType(t *testing.T) {
	vt, err := dsl.ParsePortType("bool")
	require.NoError(t, err)
	assert.Equal(t, domain.Bool(), vt)

	vt, err = dsl.ParsePortType("data<[string]>")
	require.NoError(t, err)
	assert.Equal(t, domain.Data("[string]"), vt)

	vt, err = dsl.ParsePortType("float")
	require.NoError(t, err)
	assert.Equal(t, domain.Data("float"), vt)

	_, err = dsl.ParsePortType("  ")
	assert.Error(t, err)
}
