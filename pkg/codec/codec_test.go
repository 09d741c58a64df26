package codec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
)

func dice(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New("dice")
	b.Variable("best", "int")
	b.Event("roll", map[string]string{"roll": "int"})
	b.Entry("start").Go("roll")
	b.Action("roll").Do("from_event", map[string]any{"fields": map[string]any{"roll": "score"}}).
		Output("score", "int").
		Go("gate")
	b.Condition("gate").
		When("compare", map[string]any{"left": "input.value", "op": ">=", "right": "input.threshold"}).
		Input("value", "int").
		InputDefault("threshold", "int", 3).
		True("win").
		False("lose")
	b.Exit("win")
	b.Exit("lose")
	b.Link("roll.score", "gate.value")
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

const diceYAML = `
name: dice
variables:
  best: int
events:
  roll:
    roll: int
nodes:
  - name: start
    kind: entry
    next: roll
  - name: roll
    kind: action
    behavior: from_event
    params:
      fields: {roll: score}
    outputs:
      - {name: score, type: int}
    next: [gate]
  - name: gate
    kind: condition
    behavior: compare
    params: {left: input.value, op: ">=", right: input.threshold}
    inputs:
      - {name: value, type: int}
      - {name: threshold, type: int, default: 3}
    on_true: win
    on_false: lose
  - name: win
    kind: exit
  - name: lose
    kind: exit
links:
  - {from: roll.score, to: gate.value}
`

const diceHCL = `
name      = "dice"
variables = { best = "int" }

event "roll" {
  fields = { roll = "int" }
}

node "start" {
  kind = "entry"
  next = "roll"
}

node "roll" {
  kind     = "action"
  behavior = "from_event"
  params   = { fields = { roll = "score" } }
  next     = ["gate"]

  output "score" {
    type = "int"
  }
}

node "gate" {
  kind     = "condition"
  behavior = "compare"
  params   = { left = "input.value", op = ">=", right = "input.threshold" }
  on_true  = "win"
  on_false = "lose"

  input "value" {
    type = "int"
  }
  input "threshold" {
    type    = "int"
    default = 3
  }
}

node "win" {
  kind = "exit"
}

node "lose" {
  kind = "exit"
}

link {
  from = "roll.score"
  to   = "gate.value"
}
`

func TestGraphJSON_RoundTrip(t *testing.T) {
	g := dice(t)
	data, err := codec.MarshalGraph(g)
	require.NoError(t, err)

	decoded, err := codec.UnmarshalGraph(data)
	require.NoError(t, err)
	assert.True(t, domain.Equal(g, decoded))

	again, err := codec.MarshalGraph(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestUnmarshalGraph_RechecksInvariants(t *testing.T) {
	g := dice(t)
	doc := g.Document()
	// rewire the value link onto the exec input of gate
	for i, e := range doc.Edges {
		if e.FromPort == 1 {
			doc.Edges[i].ToPort = 0
		}
	}
	broken, err := domain.FromDocument(doc)
	assert.Nil(t, broken)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = codec.UnmarshalGraph([]byte(`{"name": "x", "nodes": [{"id": 1, "kind": "portal"}]}`))
	assert.Error(t, err)
}

func TestFlowAndState_RoundTrip(t *testing.T) {
	flow, err := compiler.Compile(dice(t))
	require.NoError(t, err)

	data, err := codec.MarshalFlow(flow)
	require.NoError(t, err)
	decoded, err := codec.UnmarshalFlow(data)
	require.NoError(t, err)
	assert.Equal(t, flow, decoded)

	again, err := codec.MarshalFlow(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	state := &domain.FlowState{
		InstanceID: "i-1",
		Flow:       "dice",
		Current:    2,
		Status:     domain.StatusActive,
		Variables:  map[string]any{"score": float64(4), "bag": []any{"sword", float64(2)}},
		History:    []int{0, 1, 2},
		Steps:      2,
	}
	raw, err := codec.MarshalState(state)
	require.NoError(t, err)
	back, err := codec.UnmarshalState(raw)
	require.NoError(t, err)
	assert.Equal(t, state, back)
}

func TestDecodeYAML(t *testing.T) {
	d, err := codec.DecodeYAML([]byte(diceYAML))
	require.NoError(t, err)
	g, err := d.Build()
	require.NoError(t, err)
	assert.True(t, domain.Equal(dice(t), g))

	_, err = codec.DecodeYAML([]byte("name: x\nnodez: []\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = codec.DecodeYAML(nil)
	assert.ErrorContains(t, err, "empty document")
}

func TestDecodeHCL(t *testing.T) {
	d, err := codec.DecodeHCL([]byte(diceHCL), "dice.hcl")
	require.NoError(t, err)
	g, err := d.Build()
	require.NoError(t, err)
	assert.True(t, domain.Equal(dice(t), g))

	_, err = codec.DecodeHCL([]byte(`node "x" {`), "bad.hcl")
	assert.ErrorContains(t, err, "bad.hcl")

	_, err = codec.DecodeHCL([]byte("node \"x\" {\n  kind = \"exit\"\n  next = 3\n}\n"), "next.hcl")
	assert.Error(t, err)
}

func TestDefinitionOf_YAMLRoundTrip(t *testing.T) {
	g := dice(t)
	data, err := codec.EncodeGraph(g, codec.FormatYAML)
	require.NoError(t, err)

	back, err := codec.DecodeGraph(data, codec.FormatYAML, "dice.yaml")
	require.NoError(t, err)
	assert.True(t, domain.Equal(g, back), string(data))

	_, err = codec.EncodeGraph(g, codec.FormatHCL)
	assert.Error(t, err)
}

func TestDefinitionOf_DuplicateNames(t *testing.T) {
	g := domain.NewGraph("dup")
	a := g.AddNode(domain.KindEntry, domain.Payload{})
	b := g.AddNode(domain.KindExit, domain.Payload{})
	require.NoError(t, g.SetName(a, "same"))
	require.NoError(t, g.SetName(b, "same"))

	_, err := codec.DefinitionOf(g)
	assert.ErrorContains(t, err, "not unique")
}

func TestDefinition_BuildErrors(t *testing.T) {
	d := &codec.Definition{Name: "x", Nodes: []codec.NodeDefinition{{Name: "a", Kind: "portal"}}}
	_, err := d.Build()
	assert.ErrorContains(t, err, "unknown node kind")

	d = &codec.Definition{Name: "x", Nodes: []codec.NodeDefinition{{Kind: "entry"}}}
	_, err = d.Build()
	assert.ErrorContains(t, err, "without a name")
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]codec.Format{
		"a.json":      codec.FormatJSON,
		"b.YAML":      codec.FormatYAML,
		"dir/c.yml":   codec.FormatYAML,
		"flows/d.hcl": codec.FormatHCL,
	} {
		got, err := codec.FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := codec.FormatOf("graph.txt")
	assert.Error(t, err)
}

func TestReadGraphFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "dice.hcl")
	require.NoError(t, os.WriteFile(path, []byte(diceHCL), 0o644))
	g, err := codec.ReadGraphFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dice", g.Name())

	unnamed := filepath.Join(dir, "door.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("nodes:\n  - {name: start, kind: entry, next: end}\n  - {name: end, kind: exit}\n"), 0o644))
	g, err = codec.ReadGraphFile(unnamed)
	require.NoError(t, err)
	assert.Equal(t, "door", g.Name())
	assert.Equal(t, 2, g.NodeCount())

	_, err = codec.ReadGraphFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
