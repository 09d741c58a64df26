package codec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclDefinition is the top-level structure of an HCL graph file:
//
//	name      = "door"
//	variables = { open = "bool" }
//
//	event "hit" {
//	  fields = { damage = "int" }
//	}
//
//	node "check" {
//	  kind     = "condition"
//	  behavior = "var"
//	  params   = { name = "open" }
//	  on_true  = "enter"
//	  on_false = "knock"
//	}
//
//	link {
//	  from = "roll.score"
//	  to   = "gate.value"
//	}
type hclDefinition struct {
	Name      string            `hcl:"name,optional"`
	Variables map[string]string `hcl:"variables,optional"`
	Events    []*hclEvent       `hcl:"event,block"`
	Nodes     []*hclNode        `hcl:"node,block"`
	Links     []*hclLink        `hcl:"link,block"`
}

type hclEvent struct {
	Name   string            `hcl:"name,label"`
	Fields map[string]string `hcl:"fields,optional"`
}

type hclNode struct {
	Name     string     `hcl:"name,label"`
	Kind     string     `hcl:"kind"`
	Behavior string     `hcl:"behavior,optional"`
	Params   cty.Value  `hcl:"params,optional"`
	Next     cty.Value  `hcl:"next,optional"`
	FanOut   bool       `hcl:"fan_out,optional"`
	OnTrue   string     `hcl:"on_true,optional"`
	OnFalse  string     `hcl:"on_false,optional"`
	Inputs   []*hclPort `hcl:"input,block"`
	Outputs  []*hclPort `hcl:"output,block"`
}

type hclPort struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Variable string    `hcl:"variable,optional"`
	Default  cty.Value `hcl:"default,optional"`
}

type hclLink struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// DecodeHCL parses an HCL graph definition. filename is used in diagnostics.
func DecodeHCL(data []byte, filename string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var raw hclDefinition
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	d := &Definition{Name: raw.Name, Variables: raw.Variables}
	if len(raw.Events) > 0 {
		d.Events = make(map[string]map[string]string, len(raw.Events))
		for _, ev := range raw.Events {
			d.Events[ev.Name] = ev.Fields
		}
	}
	for _, l := range raw.Links {
		d.Links = append(d.Links, LinkDefinition{From: l.From, To: l.To})
	}

	for _, n := range raw.Nodes {
		nd := NodeDefinition{
			Name:     n.Name,
			Kind:     n.Kind,
			Behavior: n.Behavior,
			FanOut:   n.FanOut,
			OnTrue:   n.OnTrue,
			OnFalse:  n.OnFalse,
		}
		params, err := ctyToNative(n.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q params: %w", filename, n.Name, err)
		}
		if params != nil {
			m, ok := params.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: node %q params must be an object", filename, n.Name)
			}
			nd.Params = m
		}
		if nd.Next, err = targets(n.Next); err != nil {
			return nil, fmt.Errorf("%s: node %q next: %w", filename, n.Name, err)
		}

		for _, p := range n.Inputs {
			pd, err := portDefinition(p)
			if err != nil {
				return nil, fmt.Errorf("%s: node %q input %q: %w", filename, n.Name, p.Name, err)
			}
			nd.Inputs = append(nd.Inputs, pd)
		}
		for _, p := range n.Outputs {
			pd, err := portDefinition(p)
			if err != nil {
				return nil, fmt.Errorf("%s: node %q output %q: %w", filename, n.Name, p.Name, err)
			}
			nd.Outputs = append(nd.Outputs, pd)
		}
		d.Nodes = append(d.Nodes, nd)
	}
	return d, nil
}

func portDefinition(p *hclPort) (PortDefinition, error) {
	def, err := ctyToNative(p.Default)
	if err != nil {
		return PortDefinition{}, err
	}
	return PortDefinition{Name: p.Name, Type: p.Type, Variable: p.Variable, Default: def}, nil
}

// targets accepts a single node name or a list of names.
func targets(v cty.Value) (Targets, error) {
	native, err := ctyToNative(v)
	if err != nil || native == nil {
		return nil, err
	}
	switch t := native.(type) {
	case string:
		return Targets{t}, nil
	case []any:
		out := make(Targets, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("target %v is not a node name", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("must be a node name or a list of names")
}

// ctyToNative converts a cty value into the canonical Go shape: float64
// numbers, []any sequences and map[string]any objects. Null and absent
// values convert to nil.
func ctyToNative(val cty.Value) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		}
		return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}
