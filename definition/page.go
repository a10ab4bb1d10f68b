package definition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// pagePresets 以 pt 给出纵向纸张尺寸。
var pagePresets = map[string][2]float64{
	"A3":     {841.89, 1190.55},
	"A4":     {595.28, 841.89},
	"A5":     {419.53, 595.28},
	"LETTER": {612, 792},
	"LEGAL":  {612, 1008},
}

// defaultMargin 为 20mm。
var defaultMargin = 20 * layout.MmToPt

// resolvePage 解析 `page A4 landscape margin 10mm 15mm` 形式的页面声明。
func resolvePage(size string, params []*dsl.Arg) (layout.PageMetrics, error) {
	base, ok := pagePresets[strings.ToUpper(size)]
	if !ok {
		return layout.PageMetrics{}, fmt.Errorf("%w: 暂不支持的纸张尺寸：%s", layout.ErrConfig, size)
	}
	page := layout.PageMetrics{
		Width:  base[0],
		Height: base[1],
		Margin: layout.Margin{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin},
	}
	for i := 0; i < len(params); i++ {
		switch strings.ToLower(params[i].Value()) {
		case "portrait":
		case "landscape":
			page.Width, page.Height = page.Height, page.Width
		case "margin":
			var vals []float64
			for j := i + 1; j < len(params) && len(vals) < 4; j++ {
				if !isLength(params[j].Value()) {
					break
				}
				v, err := length(params[j].Value())
				if err != nil {
					return page, err
				}
				vals = append(vals, v)
				i = j
			}
			if len(vals) == 0 {
				return page, fmt.Errorf("%w: margin 缺少数值", layout.ErrConfig)
			}
			page.Margin = marginFrom(vals)
		default:
			return page, fmt.Errorf("%w: 无法识别的页面参数 %q（仅支持 portrait/landscape/margin）", layout.ErrConfig, params[i].Value())
		}
	}
	return page, nil
}

// marginFrom 按 CSS 的 1~4 值写法展开页边距。
func marginFrom(vals []float64) layout.Margin {
	switch len(vals) {
	case 1:
		v := vals[0]
		return layout.Margin{Top: v, Right: v, Bottom: v, Left: v}
	case 2:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
	default:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	}
}

// isLength 判断记号是否以数字开头（用于结束 margin/buffer 的取值）。
func isLength(v string) bool {
	if v == "" {
		return false
	}
	c := v[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-'
}

// length 把绝对长度转换为 pt，百分比在这里不被接受。
func length(v string) (float64, error) {
	l, err := layout.ParseRawLength(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", layout.ErrConfig, err)
	}
	if l.IsPercent() {
		return 0, fmt.Errorf("%w: %q 不能使用百分比", layout.ErrConfig, v)
	}
	return l.ToPT(), nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s 需要布尔值，得到 %q", layout.ErrConfig, key, v)
	}
	return b, nil
}

// applyPageSettings 处理 page 块内的报表级开关与默认字体。
func applyPageSettings(rep *layout.Report, block *dsl.Block) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		a := stmt.Assignment
		if a == nil {
			continue
		}
		val := valueToString(a.Value)
		var err error
		switch strings.ToLower(a.Key) {
		case "font":
			rep.Font = val
		case "font-size":
			rep.FontSize, err = length(val)
		case "footerless":
			rep.Footerless, err = parseBool(a.Key, val)
		case "attach-footer":
			rep.AttachFooter, err = parseBool(a.Key, val)
		case "no-field-headers":
			rep.NoFieldHeaders, err = parseBool(a.Key, val)
		case "field-header-buffer":
			rep.FieldHeaderBuffer, err = bufferFrom(valueToStringSlice(a.Value))
		default:
			err = fmt.Errorf("%w: page 块中未知的设置 %q", layout.ErrConfig, a.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bufferFrom 解析一到两个长度：一个值同时作用于上下。
func bufferFrom(vals []string) (layout.Buffer, error) {
	var out []float64
	for _, v := range vals {
		f, err := length(v)
		if err != nil {
			return layout.Buffer{}, err
		}
		out = append(out, f)
	}
	switch len(out) {
	case 0:
		return layout.Buffer{}, fmt.Errorf("%w: buffer 缺少数值", layout.ErrConfig)
	case 1:
		return layout.Buffer{Upper: out[0], Lower: out[0]}, nil
	default:
		return layout.Buffer{Upper: out[0], Lower: out[1]}, nil
	}
}
