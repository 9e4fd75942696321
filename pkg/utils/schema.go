// Package utils provides small helpers shared across the SDK: a JSON Schema
// builder for tool input schemas and a goroutine leak detector for tests.
package utils

import (
	"encoding/json"
	"fmt"
)

// Property describes a single property in an object schema.
type Property map[string]interface{}

// StringProperty creates a string property with a description.
func StringProperty(description string) Property {
	return Property{"type": "string", "description": description}
}

// EnumProperty creates a string property constrained to the given values.
func EnumProperty(description string, values ...string) Property {
	return Property{"type": "string", "description": description, "enum": values}
}

// NumberProperty creates a number property with a description.
func NumberProperty(description string) Property {
	return Property{"type": "number", "description": description}
}

// IntegerProperty creates an integer property with a description.
func IntegerProperty(description string) Property {
	return Property{"type": "integer", "description": description}
}

// BoolProperty creates a boolean property with a description.
func BoolProperty(description string) Property {
	return Property{"type": "boolean", "description": description}
}

// WithDefault returns a copy of the property with a default value.
func (p Property) WithDefault(value interface{}) Property {
	clone := make(Property, len(p)+1)
	for k, v := range p {
		clone[k] = v
	}
	clone["default"] = value
	return clone
}

// ObjectSchema builds a JSON Schema for an object with the given properties
// and required property names. The result is suitable for a tool's input
// schema.
func ObjectSchema(properties map[string]Property, required ...string) json.RawMessage {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, err := json.Marshal(schema)
	if err != nil {
		// Properties are plain maps of JSON-compatible values, so this
		// cannot fail at runtime.
		panic(fmt.Sprintf("failed to marshal schema: %v", err))
	}
	return data
}

// JSONToStruct unmarshals JSON into v with the payload included in the
// error message on failure.
func JSONToStruct(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w (data: %s)", err, string(data))
	}
	return nil
}

// MergeJSONObjects merges JSON objects left to right, with later objects
// taking precedence on key collisions.
func MergeJSONObjects(objects ...json.RawMessage) (json.RawMessage, error) {
	if len(objects) == 0 {
		return json.RawMessage("{}"), nil
	}
	if len(objects) == 1 {
		return objects[0], nil
	}

	result := make(map[string]interface{})
	for _, obj := range objects {
		var current map[string]interface{}
		if err := json.Unmarshal(obj, &current); err != nil {
			return nil, fmt.Errorf("failed to unmarshal object: %w", err)
		}
		for k, v := range current {
			result[k] = v
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged object: %w", err)
	}
	return data, nil
}
