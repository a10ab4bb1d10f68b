// Package binding 解析单元格文本中的 ${路径|默认值} 占位符，并按路径从数据中取值。
package binding

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// step 是路径中的一级：Key 非空表示按名称取值，否则按 Index 取数组元素。
type step struct {
	Key   string
	Index int
}

// placeholder 是一个 ${...} 占位符。
type placeholder struct {
	raw         string // 原始文本，取值失败时原样输出
	path        string
	steps       []step
	valid       bool
	fallback    string
	hasFallback bool
}

// segment 要么是普通文本，要么是占位符。
type segment struct {
	literal string
	ref     *placeholder
}

// Template 是解析后的单元格文本，可以反复对不同数据求值。
type Template struct {
	segments []segment
}

var templates, _ = lru.New[string, *Template](512)

// Parse 把文本切分为普通文本与占位符。未闭合的 ${ 视为普通文本。
func Parse(text string) *Template {
	tpl := &Template{}
	rest := text
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		end += start
		if start > 0 {
			tpl.segments = append(tpl.segments, segment{literal: rest[:start]})
		}
		tpl.segments = append(tpl.segments, segment{ref: newPlaceholder(rest[start : end+1])})
		rest = rest[end+1:]
	}
	if rest != "" {
		tpl.segments = append(tpl.segments, segment{literal: rest})
	}
	return tpl
}

func newPlaceholder(raw string) *placeholder {
	body := raw[2 : len(raw)-1]
	path, fallback, hasFallback := strings.Cut(body, "|")
	p := &placeholder{raw: raw, path: strings.TrimSpace(path), fallback: fallback, hasFallback: hasFallback}
	p.steps, p.valid = splitPath(p.path)
	return p
}

// splitPath 把 a.b[0].c 拆成逐级取值步骤。
func splitPath(path string) ([]step, bool) {
	if path == "" {
		return nil, false
	}
	var steps []step
	for _, part := range strings.Split(path, ".") {
		name, tail, _ := strings.Cut(part, "[")
		if name != "" {
			steps = append(steps, step{Key: name})
		} else if tail == "" {
			return nil, false
		}
		if tail == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(tail, "]"), "][") {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return nil, false
			}
			steps = append(steps, step{Index: n})
		}
	}
	return steps, true
}

// Execute 用 data 替换占位符；取不到值时使用默认值，没有默认值则保留原文。
func (t *Template) Execute(data any) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.ref == nil {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(seg.ref.render(data))
	}
	return b.String()
}

func (p *placeholder) render(data any) string {
	if p.valid {
		if v, ok := resolve(data, p.steps); ok && v != nil {
			return toString(v)
		}
	}
	if p.hasFallback && p.path != "" {
		return p.fallback
	}
	return p.raw
}

// References 返回模板引用的路径，按出现顺序，不含默认值。
func (t *Template) References() []string {
	var out []string
	for _, seg := range t.segments {
		if seg.ref != nil && seg.ref.path != "" {
			out = append(out, seg.ref.path)
		}
	}
	return out
}

func cached(text string) *Template {
	if tpl, ok := templates.Get(text); ok {
		return tpl
	}
	tpl := Parse(text)
	templates.Add(text, tpl)
	return tpl
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 路径不存在时保留原占位符；${path|默认值} 在路径不存在时使用默认值。
func Interpolate(text string, data any) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return cached(text).Execute(data)
}

// References 返回文本中引用的全部路径（去掉默认值部分），按出现顺序。
func References(text string) []string {
	return cached(text).References()
}

// Lookup 按 a.b[0].c 形式的路径在 data 中取值。
func Lookup(data any, path string) (any, bool) {
	steps, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	return resolve(data, steps)
}

func resolve(data any, steps []step) (any, bool) {
	current := data
	for _, s := range steps {
		if current == nil {
			return nil, false
		}
		var ok bool
		if s.Key != "" {
			current, ok = field(current, s.Key)
		} else {
			current, ok = element(current, s.Index)
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func field(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case map[string]string:
		v, ok := c[key]
		return v, ok
	}
	return nil, false
}

func element(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < len(c) {
			return c[idx], true
		}
	case []string:
		if idx < len(c) {
			return c[idx], true
		}
	}
	return nil, false
}

// toString 输出紧凑的数值形式，避免 float64 出现 1e+06 之类的写法。
func toString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}
