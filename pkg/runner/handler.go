package runner

import (
	"context"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Frame is what a handler shows after each committed state.
type Frame struct {
	State *domain.FlowState `json:"state"`
	Node  string            `json:"node"`
	Kind  domain.NodeKind   `json:"kind"`
	// Diff is nil for the first frame of a run.
	Diff *domain.StateDiff `json:"diff,omitempty"`
}

// IOHandler defines the strategy for interacting with the player or host.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a frame.
	Output(ctx context.Context, frame Frame) error

	// Input reads the next event. io.EOF ends the run.
	Input(ctx context.Context) (domain.Event, error)

	// SystemOutput presents a meta-message (rejections, pauses, reloads),
	// distinct from frame rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms markdown before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
