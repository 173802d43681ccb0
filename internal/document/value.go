package document

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	ValueInvalid ValueKind = iota
	ValueColor
	ValueFloat
	ValueString
	ValueBoolean
	ValueAlias
)

func (k ValueKind) String() string {
	switch k {
	case ValueColor:
		return "color"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueBoolean:
		return "boolean"
	case ValueAlias:
		return "alias"
	default:
		return "invalid"
	}
}

// AliasType is the marker used by documents for alias values.
const AliasType = "VARIABLE_ALIAS"

// Color is a normalized RGB(A) colour with channels in [0,1].
type Color struct {
	R        float64
	G        float64
	B        float64
	A        float64
	HasAlpha bool
}

// Alpha returns the alpha channel, 1 for RGB colours.
func (c Color) Alpha() float64 {
	if !c.HasAlpha {
		return 1
	}
	return c.A
}

// Value is the per-mode content of a variable: a literal or an alias.
type Value struct {
	Kind    ValueKind
	Color   Color
	Float   float64
	String  string
	Bool    bool
	AliasID string

	raw any
}

func ColorValue(c Color) Value   { return Value{Kind: ValueColor, Color: c} }
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: ValueString, String: s} }
func BoolValue(b bool) Value     { return Value{Kind: ValueBoolean, Bool: b} }
func AliasValue(id string) Value { return Value{Kind: ValueAlias, AliasID: id} }

// RGB builds an opaque colour value.
func RGB(r, g, b float64) Value { return ColorValue(Color{R: r, G: g, B: b}) }

// RGBA builds a colour value with an explicit alpha channel.
func RGBA(r, g, b, a float64) Value {
	return ColorValue(Color{R: r, G: g, B: b, A: a, HasAlpha: true})
}

// IsAlias reports whether the value points at another variable.
func (v Value) IsAlias() bool { return v.Kind == ValueAlias }

// Raw returns the payload as a plain Go value.
func (v Value) Raw() any {
	switch v.Kind {
	case ValueColor:
		m := map[string]any{"r": v.Color.R, "g": v.Color.G, "b": v.Color.B}
		if v.Color.HasAlpha {
			m["a"] = v.Color.A
		}
		return m
	case ValueFloat:
		return v.Float
	case ValueString:
		return v.String
	case ValueBoolean:
		return v.Bool
	case ValueAlias:
		return map[string]any{"type": AliasType, "id": v.AliasID}
	default:
		return v.raw
	}
}

// MarshalJSON writes the value in document form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON decodes any document value shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = valueFromAny(raw)
	return nil
}

// UnmarshalYAML decodes any document value shape.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = valueFromAny(raw)
	return nil
}

func valueFromAny(raw any) Value {
	switch t := raw.(type) {
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case map[string]any:
		if typ, _ := t["type"].(string); typ == AliasType {
			if id, ok := t["id"].(string); ok {
				return AliasValue(id)
			}
			return Value{raw: raw}
		}
		r, okR := toFloat(t["r"])
		g, okG := toFloat(t["g"])
		b, okB := toFloat(t["b"])
		if okR && okG && okB {
			if a, ok := toFloat(t["a"]); ok {
				return RGBA(r, g, b, a)
			}
			return RGB(r, g, b)
		}
		return Value{raw: raw}
	default:
		if f, ok := toFloat(raw); ok {
			return FloatValue(f)
		}
		return Value{raw: raw}
	}
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
