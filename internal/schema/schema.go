// Package schema holds the WeMo integration's service definitions: the
// services it exposes to the platform, which entities they may target,
// and how caller-supplied fields are validated before dispatch.
package schema

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownService = errors.New("unknown service")

// Reason identifies why a service call failed validation.
type Reason string

const (
	MissingRequiredField   Reason = "missing_required_field"
	ValueOutOfRange        Reason = "value_out_of_range"
	ValueNotMultipleOfStep Reason = "value_not_multiple_of_step"
)

// ValidationError is returned by Table.Validate when a supplied field
// set does not satisfy a service definition.
type ValidationError struct {
	Service string
	Field   string
	Reason  Reason
	Detail  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service %q: field %q: %s: %s", e.Service, e.Field, e.Reason, e.Detail)
}

// Target restricts which entities a service may act on: entities must
// belong to the named integration and domain.
type Target struct {
	Integration string
	Domain      string
}

// NumberSelector constrains a numeric field to [Min, Max] in
// increments of Step.
type NumberSelector struct {
	Min  float64
	Max  float64
	Step float64
	Unit string
}

// Field describes one accepted service call parameter. A nil Selector
// means the value is documentation-only and passes validation as-is.
type Field struct {
	Key         string
	Name        string
	Description string
	Example     string
	Required    bool
	Selector    *NumberSelector
}

// Definition is one service entry: its identity, display metadata,
// target constraint, and accepted fields in declaration order.
type Definition struct {
	Service     string
	Name        string
	Description string
	Target      Target
	Fields      []Field
}

// FieldByKey returns the named field, or nil if the definition does
// not declare it.
func (d *Definition) FieldByKey(key string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			return &d.Fields[i]
		}
	}
	return nil
}

// Table is an ordered, immutable set of service definitions. It is
// built once at startup and only ever read afterwards, so concurrent
// use needs no locking.
type Table struct {
	defs  []*Definition
	index map[string]*Definition
}

// NewTable builds a table from the given definitions, preserving their
// order. It panics on malformed definitions (duplicate service or
// field names, min > max, step <= 0): the table is static data and a
// bad entry is a programming error, not a runtime condition.
func NewTable(defs ...*Definition) *Table {
	t, err := buildTable(defs...)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return t
}

func buildTable(defs ...*Definition) (*Table, error) {
	t := &Table{
		defs:  defs,
		index: make(map[string]*Definition, len(defs)),
	}
	for _, d := range defs {
		if _, ok := t.index[d.Service]; ok {
			return nil, fmt.Errorf("duplicate service %q", d.Service)
		}
		seen := make(map[string]bool, len(d.Fields))
		for _, f := range d.Fields {
			if seen[f.Key] {
				return nil, fmt.Errorf("service %q: duplicate field %q", d.Service, f.Key)
			}
			seen[f.Key] = true
			if s := f.Selector; s != nil {
				if s.Min > s.Max {
					return nil, fmt.Errorf("service %q: field %q: min %v > max %v", d.Service, f.Key, s.Min, s.Max)
				}
				if s.Step <= 0 {
					return nil, fmt.Errorf("service %q: field %q: step %v must be positive", d.Service, f.Key, s.Step)
				}
			}
		}
		t.index[d.Service] = d
	}
	return t, nil
}

// Get looks a definition up by exact service name.
func (t *Table) Get(service string) (*Definition, error) {
	d, ok := t.index[service]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	return d, nil
}

// List returns the definitions in declaration order. The returned
// slice is a copy; callers may not mutate the table through it.
func (t *Table) List() []*Definition {
	out := make([]*Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// Validate checks a supplied field set against the named service's
// definition. Required fields must be present, and fields with a
// number selector must be in range and on a step boundary. Supplied
// fields the definition does not declare pass through untouched: the
// schema imposes no closed set beyond what it declares.
func (t *Table) Validate(service string, supplied map[string]any) error {
	d, err := t.Get(service)
	if err != nil {
		return err
	}

	for _, f := range d.Fields {
		value, present := supplied[f.Key]
		if !present {
			if f.Required {
				return &ValidationError{
					Service: service,
					Field:   f.Key,
					Reason:  MissingRequiredField,
					Detail:  "required field not supplied",
				}
			}
			continue
		}
		if f.Selector == nil {
			continue
		}
		if err := f.Selector.check(service, f.Key, value); err != nil {
			return err
		}
	}
	return nil
}

// check validates a single supplied value against the selector.
func (s *NumberSelector) check(service, field string, value any) error {
	v, ok := asFloat(value)
	if !ok {
		return &ValidationError{
			Service: service,
			Field:   field,
			Reason:  ValueOutOfRange,
			Detail:  fmt.Sprintf("value %v is not numeric", value),
		}
	}
	if v < s.Min || v > s.Max {
		return &ValidationError{
			Service: service,
			Field:   field,
			Reason:  ValueOutOfRange,
			Detail:  fmt.Sprintf("value %v outside [%v, %v]", v, s.Min, s.Max),
		}
	}
	// Steps are anchored at Min, matching how the platform renders
	// number sliders.
	const epsilon = 1e-9
	rem := math.Mod(v-s.Min, s.Step)
	if rem > epsilon && s.Step-rem > epsilon {
		return &ValidationError{
			Service: service,
			Field:   field,
			Reason:  ValueNotMultipleOfStep,
			Detail:  fmt.Sprintf("value %v is not a multiple of step %v", v, s.Step),
		}
	}
	return nil
}

// asFloat widens any numeric value a JSON or YAML decoder might hand
// us. Strings are deliberately not coerced.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
