package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/gameflow/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Prompt is written before each read; empty disables it.
	Prompt string
	Limits InputLimits
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
		Limits: DefaultInputLimits(),
	}
}

// SetInputLimits replaces the input limits.
func (h *TextHandler) SetInputLimits(l InputLimits) { h.Limits = l }

func (h *TextHandler) Output(ctx context.Context, frame Frame) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** _(%s)_", frame.Node, frame.Kind)
	if frame.State.Status != domain.StatusActive {
		fmt.Fprintf(&sb, " %s", frame.State.Status)
	}
	if frame.Diff != nil && len(frame.Diff.Variables) > 0 {
		sb.WriteString("\n")
		for _, k := range domain.SortedKeys(frame.Diff.Variables) {
			if v := frame.Diff.Variables[k]; v == nil {
				fmt.Fprintf(&sb, "\n- `%s` unset", k)
			} else {
				fmt.Fprintf(&sb, "\n- `%s` = %v", k, v)
			}
		}
	}
	return h.write(sb.String())
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[%s]\n", msg)
	return err
}

func (h *TextHandler) write(markdown string) error {
	output := markdown
	if h.Renderer != nil {
		if rendered, err := h.Renderer(markdown); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}

func (h *TextHandler) Input(ctx context.Context) (domain.Event, error) {
	if h.Prompt != "" {
		fmt.Fprint(h.Writer, h.Prompt)
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return domain.Event{}, err
	}
	clean, err := h.Limits.cleanLine(strings.TrimRight(text, "\r\n"))
	if err != nil {
		return domain.Event{}, err
	}
	ev, err := ParseEvent(clean)
	if err != nil {
		return domain.Event{}, err
	}
	return ev, h.Limits.checkEvent(ev)
}

// ParseEvent parses a text command: an event name followed by key=value
// payload fields. Values are YAML scalars, so 5 is a number, true a bool and
// "a b" a quoted string. An empty line is a tick. Errors match
// ErrMalformedEvent.
func ParseEvent(line string) (domain.Event, error) {
	fields, err := splitFields(strings.TrimSpace(line))
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(fields) == 0 {
		return domain.Tick(), nil
	}

	ev := domain.Event{Name: fields[0]}
	for _, f := range fields[1:] {
		key, raw, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return domain.Event{}, fmt.Errorf("%w: field %q, want key=value", ErrMalformedEvent, f)
		}
		if _, dup := ev.Payload[key]; dup {
			return domain.Event{}, fmt.Errorf("%w: field %q given twice", ErrMalformedEvent, key)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return domain.Event{}, fmt.Errorf("%w: field %q: %v", ErrMalformedEvent, key, err)
		}
		if ev.Payload == nil {
			ev.Payload = make(map[string]any)
		}
		ev.Payload[key] = domain.NormalizeValue(v)
	}
	return ev, nil
}

// splitFields splits on spaces outside double quotes, keeping the quotes.
func splitFields(s string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		quote bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quote = !quote
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !quote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quote {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out, nil
}
