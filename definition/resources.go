package definition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// Font 是 resources 中声明的字体。Src 可以是文件路径或 embed:<内置字体名>。
type Font struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style,omitempty"`
}

// Resources 汇总报表引用的字体、颜色与图片。
type Resources struct {
	Fonts  map[string]Font         `json:"fonts"`
	Colors map[string]layout.Color `json:"colors"`
	Images map[string]string       `json:"images"`
}

// Style 是可复用的属性集合。
type Style struct {
	Name    string
	Extends string
	Props   map[string]string
}

func collectResources(doc *dsl.Document) (Resources, error) {
	res := Resources{
		Fonts:  map[string]Font{},
		Colors: map[string]layout.Color{},
		Images: map[string]string{},
	}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil || len(cmd.Args) == 0 {
				continue
			}
			name := cmd.Args[0].Value()
			switch cmd.Name {
			case "font":
				font := Font{Name: name}
				for k, v := range blockAssignments(cmd.Block) {
					switch k {
					case "src":
						font.Src = v
					case "style":
						font.Style = v
					}
				}
				if font.Src == "" {
					return res, fmt.Errorf("%w: 字体 %s 缺少 src", layout.ErrConfig, name)
				}
				res.Fonts[name] = font
			case "color":
				value := cmd.Args[len(cmd.Args)-1].Value()
				c, err := parseColor(value)
				if err != nil {
					return res, err
				}
				res.Colors[name] = c
			case "image":
				src := blockAssignments(cmd.Block)["src"]
				if src == "" && len(cmd.Args) > 1 {
					src = cmd.Args[len(cmd.Args)-1].Value()
				}
				if src == "" {
					return res, fmt.Errorf("%w: 图片 %s 缺少 src", layout.ErrConfig, name)
				}
				res.Images[name] = src
			default:
				return res, fmt.Errorf("%w: resources 中未知的资源类型 %q", layout.ErrConfig, cmd.Name)
			}
		}
	}
	return res, nil
}

func collectMeta(doc *dsl.Document) layout.DocumentMeta {
	meta := layout.DocumentMeta{Creator: "Quire"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(stmt.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(stmt.Assignment.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func collectStyles(doc *dsl.Document) (map[string]Style, error) {
	raw := map[string]Style{}
	for _, section := range doc.Sections {
		s := section.Style
		if s == nil {
			continue
		}
		style := Style{Name: s.Name, Props: blockAssignments(s.Block)}
		if len(s.Params) >= 2 && strings.EqualFold(s.Params[0].Value(), "extends") {
			style.Extends = s.Params[1].Value()
		}
		if _, dup := raw[s.Name]; dup {
			return nil, fmt.Errorf("%w: style %s 重复定义", layout.ErrConfig, s.Name)
		}
		raw[s.Name] = style
	}
	return resolveStyles(raw)
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("%w: style %s 未定义", layout.ErrConfig, name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("%w: style 继承存在循环：%s", layout.ErrConfig, name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// resolveColor 接受 #RGB/#RRGGBB 或 resources 中声明的颜色名。
func resolveColor(value string, res Resources) (layout.Color, error) {
	if c, ok := res.Colors[value]; ok {
		return c, nil
	}
	return parseColor(value)
}

func parseColor(value string) (layout.Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if hex == value {
		return layout.Color{}, fmt.Errorf("%w: 颜色值 %s 无法解析", layout.ErrConfig, value)
	}
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return layout.Color{}, fmt.Errorf("%w: 颜色值 %s 无法解析", layout.ErrConfig, value)
	}
	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return layout.Color{}, fmt.Errorf("%w: 颜色值 %s 无法解析", layout.ErrConfig, value)
		}
		rgb[i] = int(v)
	}
	return layout.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

// blockAssignments 收集块内的 key: value 赋值。
func blockAssignments(block *dsl.Block) map[string]string {
	out := map[string]string{}
	if block == nil {
		return out
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		out[strings.ToLower(stmt.Assignment.Key)] = valueToString(stmt.Assignment.Value)
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Word != nil:
		return *val.Word
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
