package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
	"github.com/aretw0/gameflow/pkg/validator"
)

func TestValidationReport(t *testing.T) {
	b := dsl.New("loop")
	b.Entry("start").Go("a")
	b.State("a").Go("b")
	b.State("b").Go("a")
	b.Exit("orphan")
	g, err := b.Build()
	require.NoError(t, err)

	out := ValidationReport("loop.yaml", g, validator.Validate(g))
	assert.Contains(t, out, "# loop.yaml")
	assert.Contains(t, out, "❌")
	assert.Contains(t, out, "InfiniteLoop")
	assert.Contains(t, out, "orphan (4)")

	b = dsl.New("ok")
	b.Entry("start").Go("end")
	b.Exit("end")
	g, err = b.Build()
	require.NoError(t, err)
	assert.Contains(t, ValidationReport("ok.yaml", g, validator.Validate(g)), "No issues")
}

func TestFlowReport(t *testing.T) {
	b := dsl.New("shop")
	b.Variable("gold", "int")
	b.Event("buy", map[string]string{"item": "string", "price": "int"})
	b.Entry("start").Go("pay")
	b.Action("pay").Do("increment", map[string]any{"var": "gold", "by": -5}).Go("end")
	b.Exit("end")
	g, err := b.Build()
	require.NoError(t, err)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)

	state := &domain.FlowState{InstanceID: "p1", Current: 1, Status: domain.StatusActive, Variables: map[string]any{"gold": 7.0}}
	out := FlowReport(flow, state)
	assert.Contains(t, out, "# Flow shop")
	assert.Contains(t, out, "| 1 ▶ | pay | action | increment | out→2 |")
	assert.Contains(t, out, "- `gold`: int")
	assert.Contains(t, out, "- `buy` {item: string, price: int}")
	assert.Contains(t, out, "- `gold` = 7")
}

func TestRendering(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "____")

	out, err := Plain("# x")
	require.NoError(t, err)
	assert.Equal(t, "# x", out)

	render, err := NewRenderer(40)
	require.NoError(t, err)
	out, err = render("**bold**")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
}
