package compiler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
)

// branching builds Entry -> CondA -> (true) StateB -> Exit, (false) StateC -> Exit.
func branching(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph("branching")
	require.NoError(t, g.DeclareVariable("open", "bool"))
	entry := g.AddNode(domain.KindEntry, domain.Payload{})
	cond := g.AddNode(domain.KindCondition, domain.Payload{Behavior: "var", Params: map[string]any{"name": "open"}})
	b := g.AddNode(domain.KindState, domain.Payload{})
	c := g.AddNode(domain.KindState, domain.Payload{})
	exit := g.AddNode(domain.KindExit, domain.Payload{})
	require.NoError(t, g.SetName(cond, "CondA"))
	require.NoError(t, g.SetName(b, "StateB"))
	require.NoError(t, g.SetName(c, "StateC"))

	// wired out of order on purpose: compiled order must not depend on it
	require.NoError(t, g.Connect(c, 0, exit, 0))
	require.NoError(t, g.Connect(cond, 1, c, 0))
	require.NoError(t, g.Connect(b, 0, exit, 0))
	require.NoError(t, g.Connect(cond, 0, b, 0))
	require.NoError(t, g.Connect(entry, 0, cond, 0))
	return g
}

func names(f *compiler.Flow) []string {
	out := make([]string, len(f.Nodes))
	for i, n := range f.Nodes {
		out[i] = n.Name
	}
	return out
}

func TestCompile_BranchingExample(t *testing.T) {
	flow, err := compiler.Compile(branching(t))
	require.NoError(t, err)

	assert.Equal(t, 0, flow.Entry)
	assert.Equal(t, compiler.Version, flow.Version)
	assert.Equal(t, []string{"entry_1", "CondA", "StateB", "StateC", "exit_5"}, names(flow))

	cond := flow.Nodes[1]
	assert.Equal(t, domain.KindCondition, cond.Kind)
	assert.Equal(t, []int{2, 3}, cond.Next, "true -> StateB, false -> StateC")
	assert.Equal(t, []int{4}, flow.Nodes[2].Next)
	assert.Equal(t, []int{4}, flow.Nodes[3].Next)
	assert.Nil(t, flow.Nodes[4].Next)

	assert.Equal(t, []compiler.CompiledEdge{
		{From: 0, FromPort: 0, To: 1, ToPort: 0},
		{From: 1, FromPort: 0, To: 2, ToPort: 0},
		{From: 1, FromPort: 1, To: 3, ToPort: 0},
		{From: 2, FromPort: 0, To: 4, ToPort: 0},
		{From: 3, FromPort: 0, To: 4, ToPort: 0},
	}, flow.Edges)
	assert.Equal(t, map[string]string{"open": "bool"}, flow.Variables)
}

func TestCompile_Deterministic(t *testing.T) {
	g := branching(t)

	first, err := compiler.Compile(g)
	require.NoError(t, err)
	second, err := compiler.Compile(g)
	require.NoError(t, err)

	a, err := first.MarshalBinary()
	require.NoError(t, err)
	b, err := second.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	third, err := compiler.Compile(g.Clone())
	require.NoError(t, err)
	c, err := third.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, a, c, "a cloned graph compiles to the same bytes")
}

func TestCompile_PayloadIsCopied(t *testing.T) {
	g := branching(t)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)

	require.NoError(t, g.SetPayload(2, domain.Payload{Behavior: "other"}))
	assert.Equal(t, "var", flow.Nodes[1].Payload.Behavior)
	assert.Equal(t, map[string]any{"name": "open"}, flow.Nodes[1].Payload.Params)
}

func TestCompile_RefusesInfiniteLoop(t *testing.T) {
	g := domain.NewGraph("loop")
	entry := g.AddNode(domain.KindEntry, domain.Payload{})
	a := g.AddNode(domain.KindState, domain.Payload{})
	b := g.AddNode(domain.KindState, domain.Payload{})
	require.NoError(t, g.Connect(entry, 0, a, 0))
	require.NoError(t, g.Connect(a, 0, b, 0))
	require.NoError(t, g.Connect(b, 0, a, 0))

	flow, err := compiler.Compile(g)
	assert.Nil(t, flow)
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	var verr *compiler.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Report.Fatal(), 1)
	assert.Equal(t, domain.IssueInfiniteLoop, verr.Report.Fatal()[0].Kind)

	report, ok := compiler.Report(err)
	assert.True(t, ok)
	assert.Equal(t, verr.Report, report)
}

func TestCompile_UnreachableNodesAppended(t *testing.T) {
	g := domain.NewGraph("orphans")
	orphan := g.AddNode(domain.KindState, domain.Payload{})
	entry := g.AddNode(domain.KindEntry, domain.Payload{})
	exit := g.AddNode(domain.KindExit, domain.Payload{})
	require.NoError(t, g.Connect(entry, 0, exit, 0))

	flow, err := compiler.Compile(g)
	require.NoError(t, err, "unreachable nodes are only a warning")
	assert.Equal(t, []string{"entry_2", "exit_3", "state_1"}, names(flow))

	idx, ok := flow.IndexOf(orphan)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []int{compiler.NoTarget}, flow.Nodes[idx].Next)
}

func TestCompile_DataBinding(t *testing.T) {
	g := domain.NewGraph("data")
	entry := g.AddNode(domain.KindEntry, domain.Payload{})
	roll := g.AddNode(domain.KindAction, domain.Payload{Behavior: "set", Params: map[string]any{"values": map[string]any{"score": 7}}})
	gate := g.AddNode(domain.KindCondition, domain.Payload{Behavior: "compare"})
	win := g.AddNode(domain.KindExit, domain.Payload{})
	lose := g.AddNode(domain.KindExit, domain.Payload{})

	out, err := g.AddPort(roll, domain.Port{Name: "score", Direction: domain.Out, Type: domain.Data("int"), Variable: "last_roll"})
	require.NoError(t, err)
	in, err := g.AddPort(gate, domain.Port{Name: "value", Direction: domain.In, Type: domain.Data("int")})
	require.NoError(t, err)
	_, err = g.AddPort(gate, domain.Port{Name: "threshold", Direction: domain.In, Type: domain.Data("int"), Default: 5, HasDefault: true})
	require.NoError(t, err)

	require.NoError(t, g.Connect(entry, 0, roll, 0))
	require.NoError(t, g.Connect(roll, 0, gate, 0))
	require.NoError(t, g.Connect(roll, out, gate, in))
	require.NoError(t, g.Connect(gate, 0, win, 0))
	require.NoError(t, g.Connect(gate, 1, lose, 0))

	flow, err := compiler.Compile(g)
	require.NoError(t, err)

	gateNode := flow.Nodes[2]
	require.Equal(t, "condition_3", gateNode.Name)
	assert.Equal(t, "last_roll", gateNode.Inputs[1].Source)
	assert.Equal(t, "", gateNode.Inputs[2].Source)
	assert.True(t, gateNode.Inputs[2].HasDefault)
	assert.Equal(t, 5.0, gateNode.Inputs[2].Default)

	rollNode := flow.Nodes[1]
	assert.Equal(t, []int{2, compiler.NoTarget}, rollNode.Next)
	assert.Equal(t, "last_roll", rollNode.Outputs[1].Variable)
}

func TestFlow_BinaryRoundTrip(t *testing.T) {
	flow, err := compiler.Compile(branching(t))
	require.NoError(t, err)

	data, err := flow.MarshalBinary()
	require.NoError(t, err)

	var decoded compiler.Flow
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *flow, decoded)
}

func TestFlow_UnmarshalRejectsCorruptFlows(t *testing.T) {
	var f compiler.Flow
	assert.Error(t, f.UnmarshalBinary([]byte(`{"version":1,"name":"x","entry":3,"nodes":[{"index":0,"source_id":1,"kind":"entry","name":"e"}]}`)))
	assert.Error(t, f.UnmarshalBinary([]byte(`{"version":9,"name":"x","entry":0,"nodes":[{"index":0,"source_id":1,"kind":"exit","name":"e"}]}`)))
	assert.Error(t, f.UnmarshalBinary([]byte(`not json`)))

	// entry points at an exit node
	assert.ErrorContains(t, f.UnmarshalBinary([]byte(`{"version":1,"name":"x","entry":0,"nodes":[{"index":0,"source_id":1,"kind":"exit","name":"e"}]}`)), "entry index 0")
	// entry without its execution output
	assert.ErrorContains(t, f.UnmarshalBinary([]byte(`{"version":1,"name":"x","entry":0,"nodes":[{"index":0,"source_id":1,"kind":"entry","name":"e"}]}`)), "single leading execution output")
}

func TestFlow_CheckRejectsBrokenLayouts(t *testing.T) {
	corrupt := map[string]func(f *compiler.Flow){
		"condition without false branch": func(f *compiler.Flow) {
			cond := &f.Nodes[1]
			cond.Outputs = cond.Outputs[:1]
			cond.Next = cond.Next[:1]
		},
		"edge from unknown port": func(f *compiler.Flow) {
			f.Edges[0].FromPort = 7
		},
		"edge into unknown port": func(f *compiler.Flow) {
			f.Edges[0].ToPort = -1
		},
	}
	for name, mutate := range corrupt {
		t.Run(name, func(t *testing.T) {
			flow, err := compiler.Compile(branching(t))
			require.NoError(t, err)
			mutate(flow)
			assert.Error(t, flow.Check())

			data, err := flow.MarshalBinary()
			require.NoError(t, err)
			var decoded compiler.Flow
			assert.Error(t, decoded.UnmarshalBinary(data))
		})
	}
}
