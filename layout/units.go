package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths. The engine works in points.

// Unit represents the unit of a length value as written in a definition.
type Unit int

const (
	UnitNone    Unit = iota // bare numbers, treated as points
	UnitPT                  // points
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitPercent             // percentage of a reference span
)

// Conversion constants between pt, mm and in.
const (
	PtPerInch = 72.0
	PtToMm    = 25.4 / PtPerInch
	MmToPt    = PtPerInch / 25.4
)

// String returns a short suffix for a Unit value.
func (u Unit) String() string {
	switch u {
	case UnitPT:
		return "pt"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// IsPercent reports whether the length is relative to a span.
func (l Length) IsPercent() bool { return l.Unit == UnitPercent }

// Resolve converts the length to points; percentages resolve against span.
func (l Length) Resolve(span float64) float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * PtPerInch
	case UnitPercent:
		return span * l.Value / 100
	default:
		return l.Value
	}
}

func (l Length) ToPT() float64 { return l.Resolve(0) }
func (l Length) ToMM() float64 { return l.Resolve(0) * PtToMm }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"pt", UnitPT}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"%", UnitPercent}}

// ParseRawLength parses a length string preserving its unit.
// On failure it returns the leading numeric part (0 when there is none) and an error wrapping ErrUnit.
func ParseRawLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("%w: 空长度", ErrUnit)
	}
	num := v
	unit := UnitNone
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{Value: leadingNumber(v), Unit: UnitNone}, fmt.Errorf("%w: 无法解析 %q", ErrUnit, value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseLength converts value to points, resolving percentages against span.
// A percentage without a reference span resolves against 0.
func ParseLength(value string, span float64) (float64, error) {
	l, err := ParseRawLength(value)
	if err != nil {
		return l.Value, err
	}
	return l.Resolve(span), nil
}

// leadingNumber returns the longest numeric prefix of s, or 0.
func leadingNumber(s string) float64 {
	end := 0
	for i, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || ((r == '-' || r == '+') && i == 0) {
			end = i + 1
			continue
		}
		break
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
		end--
	}
	return 0
}
