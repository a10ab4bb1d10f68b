// Package dsl 定义报表描述语言的词法与语法，输出未经语义检查的语法树。
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
)

var documentParser = participle.MustBuild[Document](
	participle.Lexer(reportLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment"),
	participle.UseLookahead(4),
)

// StringLiteral 在捕获时按 Go 语法去掉引号与转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串字面量缺少取值")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无法解析: %w", values[0], err)
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 从 r 读取并解析报表定义。
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString 解析字符串形式的报表定义。
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// ParseFile 与 Parse 相同，但错误位置带上文件名。
func ParseFile(name string, r io.Reader) (*Document, error) {
	return documentParser.Parse(name, r)
}
