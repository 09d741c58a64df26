package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Defaults for InputLimits.
const (
	DefaultMaxLineSize = 4096
	DefaultMaxFields   = 32
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	// ErrMalformedEvent marks a line that does not parse as an event. The
	// runner reports it and keeps reading.
	ErrMalformedEvent = errors.New("malformed event")
)

// InputLimits bounds one line of player input. Zero fields take the defaults.
type InputLimits struct {
	// MaxLineSize is the largest accepted line in bytes. Longer lines are
	// rejected, never truncated, so a replayed session sees the same events.
	MaxLineSize int
	// MaxFields is the largest number of payload fields in one event.
	MaxFields int
}

// DefaultInputLimits returns the limits used by new handlers.
func DefaultInputLimits() InputLimits {
	return InputLimits{MaxLineSize: DefaultMaxLineSize, MaxFields: DefaultMaxFields}
}

func (l InputLimits) normalized() InputLimits {
	if l.MaxLineSize <= 0 {
		l.MaxLineSize = DefaultMaxLineSize
	}
	if l.MaxFields <= 0 {
		l.MaxFields = DefaultMaxFields
	}
	return l
}

// cleanLine enforces the size limit, rejects invalid UTF-8 and drops control
// characters such as ANSI escapes so they never reach logs or the terminal.
// Tabs survive because they separate fields.
func (l InputLimits) cleanLine(line string) (string, error) {
	l = l.normalized()
	if len(line) > l.MaxLineSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(line), l.MaxLineSize)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, line), nil
}

// checkEvent rejects events no flow can declare: names or payload keys that
// are not plain words, and payloads over the field limit. Whether the event
// is declared by the running flow is left to the engine.
func (l InputLimits) checkEvent(ev domain.Event) error {
	l = l.normalized()
	if ev.Name == "" {
		if len(ev.Payload) > 0 {
			return fmt.Errorf("%w: payload without an event name", ErrMalformedEvent)
		}
		return nil
	}
	if !isWord(ev.Name) {
		return fmt.Errorf("%w: event name %q", ErrMalformedEvent, ev.Name)
	}
	if len(ev.Payload) > l.MaxFields {
		return fmt.Errorf("%w: %d payload fields, limit %d", ErrInputTooLarge, len(ev.Payload), l.MaxFields)
	}
	for key := range ev.Payload {
		if !isWord(key) {
			return fmt.Errorf("%w: payload key %q", ErrMalformedEvent, key)
		}
	}
	return nil
}

// isWord reports whether s is a letter or '_' followed by letters, digits,
// '_', '-' or '.'.
func isWord(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return s != ""
}

// limited is implemented by handlers that apply InputLimits.
type limited interface {
	SetInputLimits(InputLimits)
}

// recoverable reports whether an input error only concerns the line read.
func recoverable(err error) bool {
	return errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) || errors.Is(err, ErrMalformedEvent)
}
