package layout

import (
	"strings"
	"unicode"
)

// Wrap 将文本按目标宽度拆成显示行，每行测量宽度不超过 width。
//
// 已有换行保留；stripBreaks 为 true 时先把换行替换为空格。width <= 0 表示不折行。
// 折行优先在空白（空白被丢弃）或连字符（连字符留在当前行）处进行，找不到时按字符硬切。
func Wrap(text string, width float64, measure MeasureFunc, stripBreaks bool) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if stripBreaks {
		text = strings.ReplaceAll(text, "\n", " ")
	}
	lines := strings.Split(text, "\n")
	if width <= 0 || measure == nil {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrapLine(line, width, measure)...)
	}
	return out
}

func wrapLine(line string, width float64, measure MeasureFunc) []string {
	var out []string
	runes := []rune(line)
	for {
		if measure(string(runes)) <= width {
			return append(out, string(runes))
		}
		n := fitPrefix(runes, width, measure)
		cut, skip := breakAt(runes, n)
		out = append(out, string(runes[:cut]))
		runes = runes[cut+skip:]
		if len(runes) == 0 {
			return out
		}
	}
}

// fitPrefix 用二分查找求出能放进 width 的最长前缀（按 rune 计），调用方保证整行放不下。
func fitPrefix(runes []rune, width float64, measure MeasureFunc) int {
	lo, hi := 0, len(runes)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if measure(string(runes[:mid])) <= width {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// breakAt 从第 n 个字符向前回溯最近的断行机会，返回当前行长度与需要丢弃的字符数。
func breakAt(runes []rune, n int) (cut, skip int) {
	for i := n; i > 0; i-- {
		if i < len(runes) && unicode.IsSpace(runes[i]) {
			end := i
			for end < len(runes) && unicode.IsSpace(runes[end]) {
				end++
			}
			start := i
			for start > 0 && unicode.IsSpace(runes[start-1]) {
				start--
			}
			if start == 0 {
				continue
			}
			return start, end - start
		}
		if runes[i-1] == '-' && i < len(runes) {
			return i, 0
		}
	}
	if n == 0 {
		n = 1
	}
	return n, 0
}

// Word 是两端对齐时单词相对行首的位置。
type Word struct {
	Text string
	X    float64
}

// Justify 把一行中的单词均匀铺满 width。单个单词时原样左对齐。
func Justify(line string, width float64, measure MeasureFunc) []Word {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return []Word{{Text: fields[0]}}
	}
	total := 0.0
	widths := make([]float64, len(fields))
	for i, f := range fields {
		widths[i] = measure(f)
		total += widths[i]
	}
	gap := (width - total) / float64(len(fields)-1)
	if gap < 0 {
		gap = measure(" ")
	}
	words := make([]Word, len(fields))
	x := 0.0
	for i, f := range fields {
		words[i] = Word{Text: f, X: x}
		x += widths[i] + gap
	}
	return words
}
