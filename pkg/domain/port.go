package domain

import (
	"fmt"
	"strings"
)

// Direction tells whether a port receives (In) or emits (Out).
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "in", "input":
		*d = In
	case "out", "output":
		*d = Out
	default:
		return fmt.Errorf("unknown port direction %q", string(text))
	}
	return nil
}

// ValueKind separates control ports from value-carrying ports.
type ValueKind uint8

const (
	// KindExec carries control transfer only.
	KindExec ValueKind = iota + 1
	// KindBool carries a boolean.
	KindBool
	// KindData carries a typed value described by a schema tag.
	KindData
)

// ValueType is the type tag of a port: Exec, Bool or Data<T>.
type ValueType struct {
	Kind ValueKind
	// Elem is the schema type tag for Data ports ("int", "string", "[float]", ...).
	Elem string
}

// Exec returns the execution-flow type.
func Exec() ValueType { return ValueType{Kind: KindExec} }

// Bool returns the boolean type.
func Bool() ValueType { return ValueType{Kind: KindBool} }

// Data returns the Data<elem> type.
func Data(elem string) ValueType { return ValueType{Kind: KindData, Elem: elem} }

// IsExec reports whether the type carries control flow.
func (t ValueType) IsExec() bool { return t.Kind == KindExec }

// IsValue reports whether the type carries a value (Bool or Data).
func (t ValueType) IsValue() bool { return t.Kind == KindBool || t.Kind == KindData }

// SchemaTag returns the schema type tag used to validate values of this type.
// Exec ports have no tag.
func (t ValueType) SchemaTag() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindData:
		return t.Elem
	}
	return ""
}

func (t ValueType) String() string {
	switch t.Kind {
	case KindExec:
		return "exec"
	case KindBool:
		return "bool"
	case KindData:
		return "data<" + t.Elem + ">"
	}
	return "invalid"
}

// ParseValueType parses "exec", "bool" or "data<T>".
func ParseValueType(s string) (ValueType, error) {
	clean := strings.TrimSpace(s)
	lower := strings.ToLower(clean)
	switch {
	case lower == "exec":
		return Exec(), nil
	case lower == "bool" || lower == "boolean":
		return Bool(), nil
	case strings.HasPrefix(lower, "data<") && strings.HasSuffix(lower, ">"):
		elem := strings.TrimSpace(clean[len("data<") : len(clean)-1])
		if elem == "" {
			return ValueType{}, fmt.Errorf("data type %q is missing its element type", s)
		}
		return Data(elem), nil
	}
	return ValueType{}, fmt.Errorf("unknown value type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	if t.Kind == 0 {
		return nil, fmt.Errorf("cannot marshal empty value type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ValueType) UnmarshalText(text []byte) error {
	parsed, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Port is a typed connection point on a node.
type Port struct {
	// Node is the owning node. It is restored from the node on load.
	Node      NodeID    `json:"-" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Direction Direction `json:"direction" yaml:"direction"`
	Type      ValueType `json:"type" yaml:"type"`

	// FanOut allows an Exec output to carry several edges.
	FanOut bool `json:"fan_out,omitempty" yaml:"fan_out,omitempty"`

	// Variable is the flow variable a value output writes to.
	Variable string `json:"variable,omitempty" yaml:"variable,omitempty"`

	// Default is used by an unconnected value input.
	Default    any  `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool `json:"has_default,omitempty" yaml:"has_default,omitempty"`
}

// Clone returns a deep copy of the port.
func (p Port) Clone() Port {
	out := p
	out.Default = NormalizeValue(p.Default)
	return out
}
