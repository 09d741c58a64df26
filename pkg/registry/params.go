package registry

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/gameflow/pkg/domain"
)

// decodeParams decodes node params into a typed struct. Numbers are weakly
// typed (params hold float64) and unknown keys are rejected.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// resolve reads a reference of the form "var.<name>", "input.<name>",
// "event.<field>", "event.name" or "param.<name>" from the scope.
func resolve(s domain.Scope, ref string) (any, bool, error) {
	source, name, ok := strings.Cut(ref, ".")
	if !ok || name == "" {
		return nil, false, fmt.Errorf("malformed reference %q", ref)
	}
	switch source {
	case "var":
		v, found := s.Variables[name]
		return v, found, nil
	case "input":
		v, found := s.Inputs[name]
		return v, found, nil
	case "event":
		if name == "name" {
			return s.Event.Name, s.Event.Name != "", nil
		}
		v, found := s.Event.Payload[name]
		return v, found, nil
	case "param":
		v, found := s.Params[name]
		return v, found, nil
	}
	return nil, false, fmt.Errorf("unknown reference source %q in %q", source, ref)
}

func toFloat(v any) (float64, bool) {
	f, ok := domain.NormalizeValue(v).(float64)
	return f, ok
}
