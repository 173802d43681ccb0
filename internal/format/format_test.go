package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/efebarandurmaz/varnet/internal/document"
)

func TestHEX(t *testing.T) {
	tests := []struct {
		name  string
		color document.Color
		want  string
	}{
		{"opaque red", document.Color{R: 1}, "#FF0000"},
		{"explicit alpha one", document.Color{R: 0, G: 1, B: 0, A: 1, HasAlpha: true}, "#00FF00"},
		{"half transparent black", document.Color{A: 0.5, HasAlpha: true}, "#00000080"},
		{"fully transparent", document.Color{R: 1, G: 1, B: 1, A: 0, HasAlpha: true}, "#FFFFFF00"},
		{"rounding", document.Color{R: 0.2, G: 0.4, B: 0.6}, "#336699"},
		{"clamped", document.Color{R: 1.2, G: -0.1, B: 0.5}, "#FF0080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HEX(tt.color))
		})
	}
}

func TestHEX_Length(t *testing.T) {
	for _, a := range []float64{0, 0.1, 0.25, 0.5, 0.99} {
		got := HEX(document.Color{R: 0.3, G: 0.6, B: 0.9, A: a, HasAlpha: true})
		assert.Len(t, got, 9, "alpha %v", a)
	}
	for _, c := range []document.Color{{}, {R: 1, G: 1, B: 1}, {R: 0.5, G: 0.1, B: 0.7, A: 1, HasAlpha: true}} {
		got := HEX(c)
		assert.Len(t, got, 7)
		assert.True(t, strings.HasPrefix(got, "#"))
	}
}

func TestHSBA(t *testing.T) {
	tests := []struct {
		name  string
		color document.Color
		want  string
	}{
		{"pure red", document.Color{R: 1, A: 1, HasAlpha: true}, "hsba(0, 100%, 100%, 1)"},
		{"rgb without alpha", document.Color{G: 1}, "hsba(120, 100%, 100%, 1)"},
		{"blue half alpha", document.Color{B: 1, A: 0.5, HasAlpha: true}, "hsba(240, 100%, 100%, 0.5)"},
		{"grey has no hue", document.Color{R: 0.5, G: 0.5, B: 0.5}, "hsba(0, 0%, 50%, 1)"},
		{"magenta wraps negative hue", document.Color{R: 1, B: 1}, "hsba(300, 100%, 100%, 1)"},
		{"black", document.Color{}, "hsba(0, 0%, 0%, 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HSBA(tt.color))
		})
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{3.0, "3"},
		{3.1, "3.1"},
		{3.10, "3.1"},
		{3.14159, "3.14"},
		{3.004, "3"},
		{-2.5, "-2.5"},
		{0, "0"},
		{1200, "1200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Float(tt.in), "Float(%v)", tt.in)
	}
}

func TestQuoted(t *testing.T) {
	assert.Equal(t, `"short"`, Quoted("short"))

	exact := strings.Repeat("a", 30)
	assert.Equal(t, `"`+exact+`"`, Quoted(exact))

	long := strings.Repeat("b", 35)
	got := Quoted(long)
	assert.Len(t, got, 32)
	assert.Equal(t, `"`+strings.Repeat("b", 27)+`..."`, got)

	// 15 emoji are 30 UTF-16 units and fit.
	emoji := strings.Repeat("😀", 15)
	assert.Equal(t, `"`+emoji+`"`, Quoted(emoji))

	// 16 emoji are 32 units; 27 units keep 13 emoji and half of the 14th.
	got = Quoted(strings.Repeat("😀", 16))
	assert.Equal(t, `"`+strings.Repeat("😀", 13)+"\uFFFD..."+`"`, got)
}

func TestFormat(t *testing.T) {
	long := strings.Repeat("x", 40)
	tests := []struct {
		name        string
		value       document.Value
		typ         document.VariableType
		wantDisplay string
		wantRaw     any
	}{
		{"alias wins over any type", document.AliasValue("v1"), document.TypeFloat, "alias", "alias"},
		{"alias under colour", document.AliasValue("v1"), document.TypeColor, "alias", "alias"},
		{"colour", document.RGB(1, 0, 0), document.TypeColor, "#FF0000", "#FF0000"},
		{"colour shape mismatch", document.FloatValue(1), document.TypeColor, "N/A", nil},
		{"float", document.FloatValue(16), document.TypeFloat, "16", 16.0},
		{"float shape mismatch", document.StringValue("16"), document.TypeFloat, "N/A", nil},
		{"string", document.StringValue("Inter"), document.TypeString, `"Inter"`, "Inter"},
		{"long string keeps raw", document.StringValue(long), document.TypeString, `"` + long[:27] + `..."`, long},
		{"string shape mismatch", document.BoolValue(true), document.TypeString, "N/A", nil},
		{"boolean true", document.BoolValue(true), document.TypeBoolean, "true", true},
		{"boolean false", document.BoolValue(false), document.TypeBoolean, "false", false},
		{"boolean shape mismatch", document.RGB(0, 0, 0), document.TypeBoolean, "N/A", nil},
		{"unknown type coerces", document.FloatValue(2), document.VariableType("DATE"), "2", 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.value, tt.typ)
			assert.Equal(t, tt.wantDisplay, got.Display)
			assert.Equal(t, tt.wantRaw, got.Raw)
		})
	}
}

func TestFormat_MissingValue(t *testing.T) {
	got := Format(document.Value{}, document.TypeColor)
	assert.Equal(t, Result{Display: NotAvailable}, got)
}
