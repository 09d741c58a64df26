package codec

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
)

// MarshalGraph encodes a graph as its canonical JSON document.
func MarshalGraph(g *domain.Graph) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("marshal graph: nil graph")
	}
	data, err := sonic.ConfigStd.Marshal(g.Document())
	if err != nil {
		return nil, fmt.Errorf("marshal graph %q: %w", g.Name(), err)
	}
	return data, nil
}

// UnmarshalGraph decodes a JSON graph document, re-checking every structural
// invariant of the graph model.
func UnmarshalGraph(data []byte) (*domain.Graph, error) {
	var doc domain.GraphDocument
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	g, err := domain.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("unmarshal graph %q: %w", doc.Name, err)
	}
	return g, nil
}

// MarshalFlow encodes a compiled flow. Equal flows produce identical bytes.
func MarshalFlow(f *compiler.Flow) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("marshal flow: nil flow")
	}
	return f.MarshalBinary()
}

// UnmarshalFlow decodes and checks a compiled flow.
func UnmarshalFlow(data []byte) (*compiler.Flow, error) {
	var f compiler.Flow
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &f, nil
}

// MarshalState encodes a flow state.
func MarshalState(s *domain.FlowState) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("marshal state: nil state")
	}
	data, err := sonic.ConfigStd.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state %q: %w", s.InstanceID, err)
	}
	return data, nil
}

// UnmarshalState decodes a flow state with variables in canonical form.
func UnmarshalState(data []byte) (*domain.FlowState, error) {
	var s domain.FlowState
	if err := sonic.ConfigStd.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	s.Variables = domain.NormalizeMap(s.Variables)
	return &s, nil
}
