// Package format renders variable values for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/efebarandurmaz/varnet/internal/document"
)

const (
	// AliasPlaceholder marks a slot whose alias could not be resolved to a value.
	AliasPlaceholder = "alias"
	// NotAvailable is shown when a value does not match its declared type.
	NotAvailable = "N/A"

	maxStringLen = 30
	truncatedLen = 27
	ellipsis     = "..."
)

// Result is a formatted value: what to show and the normalized raw value.
type Result struct {
	Display string `json:"display"`
	Raw     any    `json:"raw"`
}

// Format renders v under the declared type t.
func Format(v document.Value, t document.VariableType) Result {
	if v.IsAlias() {
		return Result{Display: AliasPlaceholder, Raw: AliasPlaceholder}
	}

	switch t {
	case document.TypeColor:
		if v.Kind != document.ValueColor {
			return notAvailable()
		}
		hex := HEX(v.Color)
		return Result{Display: hex, Raw: hex}
	case document.TypeFloat:
		if v.Kind != document.ValueFloat {
			return notAvailable()
		}
		return Result{Display: Float(v.Float), Raw: v.Float}
	case document.TypeString:
		if v.Kind != document.ValueString {
			return notAvailable()
		}
		return Result{Display: Quoted(v.String), Raw: v.String}
	case document.TypeBoolean:
		if v.Kind != document.ValueBoolean {
			return notAvailable()
		}
		return Result{Display: strconv.FormatBool(v.Bool), Raw: v.Bool}
	default:
		raw := v.Raw()
		return Result{Display: fmt.Sprint(raw), Raw: raw}
	}
}

func notAvailable() Result {
	return Result{Display: NotAvailable, Raw: nil}
}

// HEX renders c as #RRGGBB, or #RRGGBBAA when alpha is below 1.
func HEX(c document.Color) string {
	a := c.Alpha()
	if a < 1 {
		return fmt.Sprintf("#%02X%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B), channel(a))
	}
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

// HSBA renders c as hsba(H, S%, B%, A).
func HSBA(c document.Color) string {
	h, s, b := HSB(c)
	return fmt.Sprintf("hsba(%d, %d%%, %d%%, %s)", h, s, b, strconv.FormatFloat(c.Alpha(), 'f', -1, 64))
}

// HSB converts c to integer hue degrees [0,360) and saturation/brightness
// percentages [0,100].
func HSB(c document.Color) (hue, saturation, brightness int) {
	maxC := math.Max(c.R, math.Max(c.G, c.B))
	minC := math.Min(c.R, math.Min(c.G, c.B))
	delta := maxC - minC

	var h, s float64
	if delta != 0 {
		s = delta / maxC
		switch maxC {
		case c.R:
			h = math.Mod((c.G-c.B)/delta, 6)
		case c.G:
			h = (c.B-c.R)/delta + 2
		default:
			h = (c.R-c.G)/delta + 4
		}
		h = roundHalfUp(h * 60)
		if h < 0 {
			h += 360
		}
		if h >= 360 {
			h -= 360
		}
	}
	return int(h), int(roundHalfUp(s * 100)), int(roundHalfUp(maxC * 100))
}

// Float renders integers without a decimal point and everything else with at
// most two decimals.
func Float(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

// Quoted truncates long strings and wraps them in double quotes. Lengths are
// counted in UTF-16 code units; a surrogate pair split by the cut decodes to
// U+FFFD.
func Quoted(s string) string {
	units := utf16.Encode([]rune(s))
	if len(units) > maxStringLen {
		s = string(utf16.Decode(units[:truncatedLen])) + ellipsis
	}
	return `"` + s + `"`
}

func channel(x float64) int {
	n := int(roundHalfUp(x * 255))
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}

// roundHalfUp rounds halves towards +Inf, so -0.5 becomes 0 and 2.5 becomes 3.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
