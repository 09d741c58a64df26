package domain

// Status is the lifecycle position of a flow instance.
type Status string

const (
	StatusActive     Status = "active"     // Cursor is on a non-exit node
	StatusTerminated Status = "terminated" // An exit node was reached
	StatusInvalid    Status = "invalid"    // Halted by a broken transition
)

// FlowState is the runtime cursor of one executing flow instance.
// It is owned by a single driver and mutated only through the engine.
type FlowState struct {
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	// Flow is the name of the compiled flow this state belongs to.
	Flow string `json:"flow,omitempty" yaml:"flow,omitempty"`

	// Current is the compiled index of the active node.
	Current int    `json:"current" yaml:"current"`
	Status  Status `json:"status" yaml:"status"`

	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`

	// History holds the most recent visited indices, oldest first.
	History []int `json:"history,omitempty" yaml:"history,omitempty"`
	// Steps counts the transitions committed since Start.
	Steps int `json:"steps" yaml:"steps"`
}

// Terminated reports whether the instance reached an exit node.
func (s *FlowState) Terminated() bool { return s.Status == StatusTerminated }

// Clone returns a deep copy of the state.
func (s *FlowState) Clone() *FlowState {
	if s == nil {
		return nil
	}
	out := *s
	out.Variables = NormalizeMap(s.Variables)
	if s.History != nil {
		out.History = make([]int, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}
