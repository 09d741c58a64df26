package schema

import "sort"

// Schema is a map of field names to their expected types.
// Example: {"damage": Int(), "source": String(), "tags": Slice(String())}
type Schema map[string]Type

// Tags returns the schema as a map of field names to type tags.
func (s Schema) Tags() map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s))
	for k, t := range s {
		out[k] = t.Name()
	}
	return out
}

// Validate checks that every schema field is present in data and well typed.
// Extra keys in data are ignored. Failures are reported in field order.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, field := range sortedKeys(schema) {
		value, exists := data[field]
		if !exists {
			errs = append(errs, &ValidationError{Key: field, Reason: "required"})
			continue
		}
		if err := schema[field].Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: field, Reason: err.Error(), Value: value})
		}
	}
	return aggregate(errs)
}

// ValidateStrict is Validate that also rejects keys the schema does not declare.
func ValidateStrict(schema Schema, data map[string]any) error {
	var errs []error
	if err := Validate(schema, data); err != nil {
		errs = append(errs, ValidationErrors(err)...)
	}
	errs = append(errs, undeclared(schema, data)...)
	return aggregate(errs)
}

// ValidateKnown checks only the keys present in data: each must be declared
// by the schema and well typed. Missing schema fields are allowed.
func ValidateKnown(schema Schema, data map[string]any) error {
	var errs []error
	for _, key := range sortedKeys(data) {
		t, ok := schema[key]
		if !ok {
			continue
		}
		if err := t.Validate(data[key]); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: data[key]})
		}
	}
	errs = append(errs, undeclared(schema, data)...)
	return aggregate(errs)
}

// ValidateFields validates only specific fields from data against the schema.
// Missing fields are treated as an error.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	var errs []error
	for _, field := range fields {
		fieldType, exists := schema[field]
		if !exists {
			errs = append(errs, &ValidationError{Key: field, Reason: "not defined in schema"})
			continue
		}
		value, ok := data[field]
		if !ok {
			errs = append(errs, &ValidationError{Key: field, Reason: "required"})
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: field, Reason: err.Error(), Value: value})
		}
	}
	return aggregate(errs)
}

func undeclared(schema Schema, data map[string]any) []error {
	var errs []error
	for _, key := range sortedKeys(data) {
		if _, ok := schema[key]; !ok {
			errs = append(errs, &ValidationError{Key: key, Reason: "not declared", Value: data[key]})
		}
	}
	return errs
}

func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: errs}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
