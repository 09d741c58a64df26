package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/domain"
)

func TestInputLimits_LineSize(t *testing.T) {
	limits := InputLimits{MaxLineSize: 10}

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under limit", 9, false},
		{"at limit", 10, false},
		{"over limit", 11, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := limits.cleanLine(strings.Repeat("a", tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := InputLimits{}.cleanLine(strings.Repeat("a", DefaultMaxLineSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge, "zero limits fall back to the defaults")
}

func TestInputLimits_ControlChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "roll roll=5", "roll roll=5"},
		{"tab separates fields", "roll\troll=5", "roll\troll=5"},
		{"ansi escape", "\x1b[31mbribe\x1b[0m", "[31mbribe[0m"},
		{"null byte", "bri\x00be", "bribe"},
		{"bell", "knock\x07", "knock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultInputLimits().cleanLine(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DefaultInputLimits().cleanLine("\xbd\xb2\x3d\xbc")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestInputLimits_CheckEvent(t *testing.T) {
	limits := InputLimits{MaxFields: 2}

	assert.NoError(t, limits.checkEvent(domain.Tick()))
	assert.NoError(t, limits.checkEvent(domain.Event{Name: "bribe", Payload: map[string]any{"amount": 3.0}}))
	assert.NoError(t, limits.checkEvent(domain.Event{Name: "door.open_2"}))

	assert.ErrorIs(t, limits.checkEvent(domain.Event{Payload: map[string]any{"amount": 3.0}}), ErrMalformedEvent)
	assert.ErrorIs(t, limits.checkEvent(domain.Event{Name: "9lives"}), ErrMalformedEvent)
	assert.ErrorIs(t, limits.checkEvent(domain.Event{Name: "say", Payload: map[string]any{"a b": 1.0}}), ErrMalformedEvent)
	assert.ErrorIs(t, limits.checkEvent(domain.Event{Name: "say", Payload: map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}}), ErrInputTooLarge)
}

func TestTextHandler_Input(t *testing.T) {
	h := NewTextHandler(strings.NewReader("bribe amount=1 amount=2\nbribe amount=12\r\n"), &strings.Builder{})
	h.Prompt = ""

	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, ErrMalformedEvent, "repeated fields are rejected")
	assert.True(t, recoverable(err))

	ev, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Event{Name: "bribe", Payload: map[string]any{"amount": 12.0}}, ev)
}

func TestJSONHandler_InputLimits(t *testing.T) {
	h := NewJSONHandler(strings.NewReader(`{"name":"bribe","payload":{"a":1,"b":2}}`+"\n"), &strings.Builder{})
	h.SetInputLimits(InputLimits{MaxFields: 1})

	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, ErrInputTooLarge)
}
