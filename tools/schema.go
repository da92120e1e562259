package tools

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ParamType is the JSON Schema type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param declares one parameter of a tool. A parameter with no Default
// is required; a parameter with a Default is optional.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Default     any
}

// Required reports whether the parameter must be supplied by the model.
func (p Param) Required() bool {
	return p.Default == nil
}

// TypeOf maps a Go value to its JSON Schema parameter type.
// Unknown kinds map to string.
func TypeOf(v any) ParamType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeNumber
	case bool:
		return TypeBoolean
	default:
		return TypeString
	}
}

// BuildParameters produces the JSON schema for a tool's parameter list.
// Properties keep declaration order, and the required list contains
// exactly the parameters without defaults, in declaration order.
func BuildParameters(params []Param) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, p := range params {
		typ := p.Type
		if typ == "" {
			if p.Default != nil {
				typ = TypeOf(p.Default)
			} else {
				typ = TypeString
			}
		}
		prop := &jsonschema.Schema{
			Type:        string(typ),
			Description: p.Description,
		}
		if p.Default != nil {
			prop.Default = p.Default
		}
		props.Set(p.Name, prop)
		if p.Required() {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}
