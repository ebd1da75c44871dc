package pages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ItemValidator validates candidate fields and returns their normalized form.
// Implementations must be pure: no I/O and no mutation of the input.
type ItemValidator interface {
	Validate(fields Fields) (Fields, error)
}

// ValidatorFunc adapts a function into an ItemValidator.
type ValidatorFunc func(fields Fields) (Fields, error)

// Validate calls f.
func (f ValidatorFunc) Validate(fields Fields) (Fields, error) { return f(fields) }

// AcceptAll normalizes fields without enforcing any constraint.
var AcceptAll ItemValidator = ValidatorFunc(func(fields Fields) (Fields, error) {
	return normalizeFields(fields), nil
})

// Check is one step of a Schema. It returns nil when fields pass.
type Check interface {
	Check(fields Fields) *ValidationError
}

// Schema evaluates its checks in order and stops at the first failure.
type Schema struct {
	Checks   []Check
	Defaults Fields
}

// NewSchema builds a fail-fast schema from ordered checks.
func NewSchema(checks ...Check) *Schema {
	return &Schema{Checks: checks}
}

// WithDefaults sets values applied to missing keys before checks run.
func (s *Schema) WithDefaults(defaults Fields) *Schema {
	s.Defaults = defaults
	return s
}

// Validate implements ItemValidator.
func (s *Schema) Validate(fields Fields) (Fields, error) {
	normalized := normalizeFields(fields)
	for k, v := range s.Defaults {
		if _, ok := normalized[k]; !ok {
			normalized[k] = normalizeValue(cloneValue(v))
		}
	}
	for _, check := range s.Checks {
		if verr := check.Check(normalized); verr != nil {
			return nil, verr
		}
	}
	return normalized, nil
}

// FieldCheck applies ozzo-validation rules to a single field.
type FieldCheck struct {
	Name  string
	Rules []validation.Rule
}

// Field checks one field with rules such as validation.Required,
// validation.RuneLength, validation.Min, validation.In or is.URL.
func Field(name string, rules ...validation.Rule) FieldCheck {
	return FieldCheck{Name: name, Rules: rules}
}

// Check implements Check.
func (c FieldCheck) Check(fields Fields) *ValidationError {
	if err := validation.Validate(fields[c.Name], c.Rules...); err != nil {
		return newValidationError(c.Name, fieldMessage(c.Name, err))
	}
	return nil
}

// ExactlyOneCheck selects one of two fields through a boolean flag: when the flag is
// set WhenTrue must be present and WhenFalse absent, and the other way around.
type ExactlyOneCheck struct {
	Flag      string
	WhenTrue  string
	WhenFalse string
}

// ExactlyOne builds the composite flag rule, e.g. ExactlyOne("is_video", "video_url", "image").
func ExactlyOne(flag, whenTrue, whenFalse string) ExactlyOneCheck {
	return ExactlyOneCheck{Flag: flag, WhenTrue: whenTrue, WhenFalse: whenFalse}
}

// Check implements Check.
func (c ExactlyOneCheck) Check(fields Fields) *ValidationError {
	selected, _ := fields[c.Flag].(bool)
	want, other := c.WhenFalse, c.WhenTrue
	if selected {
		want, other = c.WhenTrue, c.WhenFalse
	}
	if !present(fields[want]) {
		return newValidationError(want, fmt.Sprintf("%s is required when %s is %t", want, c.Flag, selected))
	}
	if present(fields[other]) {
		return newValidationError(other, fmt.Sprintf("%s must be empty when %s is %t", other, c.Flag, selected))
	}
	return nil
}

// CheckFunc adapts a function into a Check for one-off cross-field rules.
type CheckFunc func(fields Fields) *ValidationError

// Check calls f.
func (f CheckFunc) Check(fields Fields) *ValidationError { return f(fields) }

func fieldMessage(name string, err error) string {
	msg := err.Error()
	if strings.Contains(msg, name) {
		return msg
	}
	return name + ": " + msg
}

func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return !validation.IsEmpty(v)
}

// JSONSchemaValidator compiles section schemas and validates fields against them.
type JSONSchemaValidator struct {
	key    string
	schema map[string]any

	mu       sync.Mutex
	compiled *jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5. key names the
// schema resource and is used in error messages.
func NewJSONSchemaValidator(key string, schema map[string]any) *JSONSchemaValidator {
	return &JSONSchemaValidator{key: key, schema: schema}
}

// Validate ensures the fields satisfy the schema. The first leaf cause is reported.
func (v *JSONSchemaValidator) Validate(fields Fields) (Fields, error) {
	payload := map[string]any{}
	if fields != nil {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("pages: marshal fields for %s: %w", v.key, err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("pages: normalize fields for %s: %w", v.key, err)
		}
	}
	if len(v.schema) == 0 {
		return Fields(payload), nil
	}
	schema, err := v.compile()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(payload); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, schemaFieldError(verr)
		}
		return nil, fmt.Errorf("pages: fields for %s failed validation: %w", v.key, err)
	}
	return Fields(payload), nil
}

func (v *JSONSchemaValidator) compile() (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.compiled != nil {
		return v.compiled, nil
	}
	data, err := json.Marshal(v.schema)
	if err != nil {
		return nil, fmt.Errorf("pages: marshal schema %s: %w", v.key, err)
	}
	compiler := jsonschema.NewCompiler()
	name := v.key + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("pages: load schema %s: %w", v.key, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("pages: compile schema %s: %w", v.key, err)
	}
	v.compiled = compiled
	return compiled, nil
}

func schemaFieldError(verr *jsonschema.ValidationError) *ValidationError {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.ReplaceAll(strings.TrimPrefix(leaf.InstanceLocation, "/"), "/", ".")
	if field == "" {
		field = missingProperty(leaf.Message)
	}
	msg := leaf.Message
	if field != "" {
		msg = field + ": " + msg
	}
	return newValidationError(field, msg)
}

func missingProperty(msg string) string {
	const prefix = "missing properties: "
	if !strings.HasPrefix(msg, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(msg, prefix)
	if start := strings.Index(rest, "'"); start >= 0 {
		if end := strings.Index(rest[start+1:], "'"); end > 0 {
			return rest[start+1 : start+1+end]
		}
	}
	return ""
}

func normalizeFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(cloneValue(v))
	}
	return out
}

// normalizeValue trims strings and widens integers to float64 so rules see the
// same shapes a JSON round-trip produces.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case Fields:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return map[string]any(t)
	case []any:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	case nil, bool, float64:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}
