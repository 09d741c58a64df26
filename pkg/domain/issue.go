package domain

import "fmt"

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueMissingEntry        IssueKind = "MissingEntry"
	IssueMultipleEntry       IssueKind = "MultipleEntry"
	IssueUnreachableNode     IssueKind = "UnreachableNode"
	IssueInfiniteLoop        IssueKind = "InfiniteLoop"
	IssueUnboundInput        IssueKind = "UnboundInput"
	IssueDeadEnd             IssueKind = "DeadEnd"
	IssueAmbiguousTransition IssueKind = "AmbiguousTransition"
	IssueUnknownBehavior     IssueKind = "UnknownBehavior"
	IssueInvalidDefault      IssueKind = "InvalidDefault"
)

// Severity tells whether an issue blocks compilation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// ValidationIssue is a single finding keyed by node id.
// NodeID is zero for graph-level issues such as a missing entry.
type ValidationIssue struct {
	NodeID   NodeID    `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Severity Severity  `json:"severity" yaml:"severity"`
	Message  string    `json:"message" yaml:"message"`
}

// Fatal reports whether the issue blocks compilation.
func (i ValidationIssue) Fatal() bool { return i.Severity == SeverityFatal }

func (i ValidationIssue) String() string {
	if i.NodeID == 0 {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Kind, i.Message)
	}
	return fmt.Sprintf("[%s] %s (node %d): %s", i.Severity, i.Kind, i.NodeID, i.Message)
}
