// Package schema provides the small type system used to describe flow
// variables, event payloads and Data port types.
//
// Types are named by tags: "string", "int", "float", "bool", "any" and
// "[T]" for slices. A Schema maps field names to types:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "damage": "int",
//	    "tags":   "[string]",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := schema.ValidateStrict(s, payload); err != nil {
//	    // reject the payload
//	}
//
// Validate requires every declared field, ValidateStrict additionally
// rejects undeclared keys and ValidateKnown checks only the keys present.
// Failures are aggregated in field order so results are deterministic.
//
// Custom validators can be registered for domain-specific validation:
//
//	positive := schema.Custom("positive", func(v any) error {
//	    f, ok := v.(float64)
//	    if !ok || f <= 0 {
//	        return fmt.Errorf("must be a positive number")
//	    }
//	    return nil
//	})
package schema
