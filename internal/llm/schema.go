package llm

// Schema is the JSON-schema subset used for tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	// AdditionalProperties is only meaningful for objects.
	AdditionalProperties bool `json:"additionalProperties"`
}

// Object builds an object schema that rejects unknown properties.
func Object(props map[string]*Schema, required ...string) *Schema {
	if props == nil {
		props = map[string]*Schema{}
	}
	return &Schema{Type: "object", Properties: props, Required: required}
}

func String(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

func Integer(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

func Number(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}

// Between sets inclusive numeric bounds and returns s.
func (s *Schema) Between(lo, hi float64) *Schema {
	s.Minimum = &lo
	s.Maximum = &hi
	return s
}

// Map renders the schema the way the OpenAI API expects function
// parameters. Objects always carry "properties" and "required" even when
// empty.
func (s *Schema) Map() map[string]any {
	if s == nil {
		return map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"required":             []string{},
			"additionalProperties": false,
		}
	}

	m := map[string]any{"type": s.Type}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if s.Minimum != nil {
		m["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		m["maximum"] = *s.Maximum
	}
	if s.Type == "object" {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.Map()
		}
		required := s.Required
		if required == nil {
			required = []string{}
		}
		m["properties"] = props
		m["required"] = required
		m["additionalProperties"] = s.AdditionalProperties
	}
	return m
}
