package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumberFormat 描述数值的显示格式。
type NumberFormat struct {
	DecimalPlaces     int    `json:"decimalPlaces"`
	DecimalFill       bool   `json:"decimalFill,omitempty"`
	SeparateThousands bool   `json:"separateThousands,omitempty"`
	Currency          bool   `json:"currency,omitempty"`
	CurrencySymbol    string `json:"currencySymbol,omitempty"` // 默认 "$"
	NullIfZero        bool   `json:"nullIfZero,omitempty"`
}

// Format 按格式渲染数值：先四舍五入（远离零），再补零、千分位与货币符号。
func (f NumberFormat) Format(v float64) string {
	if f.NullIfZero && v == 0 {
		return ""
	}
	v = roundHalfAway(v, f.DecimalPlaces)

	var s string
	if f.DecimalFill && f.DecimalPlaces > 0 {
		s = strconv.FormatFloat(v, 'f', f.DecimalPlaces, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if f.SeparateThousands {
		s = separateThousands(s)
	}
	if f.Currency {
		symbol := f.CurrencySymbol
		if symbol == "" {
			symbol = "$"
		}
		s = symbol + s
	}
	if negative {
		s = "-" + s
	}
	return s
}

func roundHalfAway(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	scale := math.Pow(10, float64(places))
	scaled := v * scale
	if scaled < 0 {
		scaled -= 0.5
	} else {
		scaled += 0.5
	}
	r := math.Trunc(scaled) / scale
	if r == 0 {
		return 0 // 去掉 -0
	}
	return r
}

// separateThousands 在整数部分每三位插入逗号，s 不带符号。
func separateThousands(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + frac
}

// FormatValue 将记录中的标量转为显示文本；f 为空或值非数值时按原样输出。
func FormatValue(v any, f *NumberFormat) string {
	if f != nil {
		if n, ok := toFloat(v); ok {
			return f.Format(n)
		}
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// toFloat 尝试把标量转为数值。
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// truthy 判断 print_if_true 的真值：nil、false、0、"" 与 "0" 为假。
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0"
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return true
	}
}
