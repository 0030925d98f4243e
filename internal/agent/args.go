package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"murmur/internal/llm"
)

// ArgumentError reports tool arguments that do not match the declared schema.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments: %v", e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

func parseArgs[T any](schema *llm.Schema, input string) (T, error) {
	var args T

	input = strings.TrimSpace(input)
	if input == "" {
		input = "{}"
	}

	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return args, &ArgumentError{Err: fmt.Errorf("parsing JSON: %w", err)}
	}
	if err := validate(schema, raw, ""); err != nil {
		return args, &ArgumentError{Err: err}
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return args, &ArgumentError{Err: fmt.Errorf("decoding: %w", err)}
	}
	return args, nil
}

// validate checks v against s. A nil schema means an object without
// properties.
func validate(s *llm.Schema, v any, path string) error {
	if s == nil {
		s = llm.Object(nil)
	}

	switch s.Type {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return typeError(path, "object", v)
		}
		for _, name := range s.Required {
			if _, exists := obj[name]; !exists {
				return fmt.Errorf("missing required field %s", join(path, name))
			}
		}
		for name, value := range obj {
			prop, known := s.Properties[name]
			if !known {
				if !s.AdditionalProperties {
					return fmt.Errorf("unexpected field %s", join(path, name))
				}
				continue
			}
			if err := validate(prop, value, join(path, name)); err != nil {
				return err
			}
		}
		return nil

	case "string":
		str, ok := v.(string)
		if !ok {
			return typeError(path, "string", v)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return fmt.Errorf("field %s must be one of %s", path, strings.Join(s.Enum, ", "))
		}
		return nil

	case "integer", "number":
		n, ok := v.(json.Number)
		if !ok {
			return typeError(path, s.Type, v)
		}
		f, err := n.Float64()
		if err != nil {
			return typeError(path, s.Type, v)
		}
		if s.Type == "integer" && math.Trunc(f) != f {
			return typeError(path, "integer", v)
		}
		if s.Minimum != nil && f < *s.Minimum {
			return fmt.Errorf("field %s must be >= %v", path, *s.Minimum)
		}
		if s.Maximum != nil && f > *s.Maximum {
			return fmt.Errorf("field %s must be <= %v", path, *s.Maximum)
		}
		return nil

	case "boolean":
		if _, ok := v.(bool); !ok {
			return typeError(path, "boolean", v)
		}
		return nil

	case "array":
		if _, ok := v.([]any); !ok {
			return typeError(path, "array", v)
		}
		return nil
	}

	return fmt.Errorf("field %s: unsupported schema type %q", path, s.Type)
}

func typeError(path, want string, got any) error {
	if path == "" {
		path = "arguments"
	}
	var kind string
	switch got.(type) {
	case nil:
		kind = "null"
	case string:
		kind = "string"
	case json.Number:
		kind = "number"
	case bool:
		kind = "boolean"
	case []any:
		kind = "array"
	case map[string]any:
		kind = "object"
	default:
		kind = fmt.Sprintf("%T", got)
	}
	return fmt.Errorf("field %s: expected %s, got %s", path, want, kind)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
