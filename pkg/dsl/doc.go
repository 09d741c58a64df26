/*
Package dsl provides a fluent Go builder for flow graphs.

Nodes are addressed by name instead of id, which keeps hand-written graphs,
tests and code generators readable:

	b := dsl.New("door")
	b.Variable("open", "bool")
	b.Entry("start").Go("check")
	b.Condition("check").When("var", map[string]any{"name": "open"}).
		True("enter").
		False("knock")
	b.Action("knock").Do("set", map[string]any{"values": map[string]any{"open": true}}).Go("check")
	b.Exit("enter")

	g, err := b.Build()

Build reports every declaration error at once, joined with errors.Join.
*/
package dsl
