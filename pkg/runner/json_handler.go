package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/aretw0/gameflow/pkg/domain"
)

// JSONHandler implements the IOHandler interface for JSON-Lines communication.
// Each frame and system message is one line on the writer; each input line
// is an event object. Blank lines are ticks.
type JSONHandler struct {
	Reader *bufio.Reader
	Writer io.Writer
	Limits InputLimits
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Limits: DefaultInputLimits(),
	}
}

// SetInputLimits replaces the input limits.
func (h *JSONHandler) SetInputLimits(l InputLimits) { h.Limits = l }

type jsonLine struct {
	Type  string `json:"type"`
	Frame *Frame `json:"frame,omitempty"`
	Msg   string `json:"message,omitempty"`
}

func (h *JSONHandler) Output(ctx context.Context, frame Frame) error {
	return h.emit(jsonLine{Type: "frame", Frame: &frame})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(jsonLine{Type: "system", Msg: msg})
}

func (h *JSONHandler) emit(line jsonLine) error {
	data, err := sonic.ConfigStd.Marshal(line)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = h.Writer.Write(data)
	return err
}

func (h *JSONHandler) Input(ctx context.Context) (domain.Event, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return domain.Event{}, err
	}
	text, err = h.Limits.cleanLine(strings.TrimSpace(text))
	if err != nil {
		return domain.Event{}, err
	}
	if text == "" {
		return domain.Tick(), nil
	}

	var ev domain.Event
	if err := sonic.ConfigStd.UnmarshalFromString(text, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ev.Payload = domain.NormalizeMap(ev.Payload)
	return ev, h.Limits.checkEvent(ev)
}
