package dsl

import "github.com/alecthomas/participle/v2/lexer"

// Document 是报表定义的根节点：report <名称> [版本] { 分区... }。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'report' @Ident"`
	Version  string         `parser:"@Ident?"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是顶层分区，恰好有一个字段非空。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Page      *PageSection      `parser:"| @@"`
	Style     *StyleSection     `parser:"| @@"`
	Headings  *HeadingsSection  `parser:"| @@"`
	RowSet    *RowSetSection    `parser:"| @@"`
	Group     *GroupSection     `parser:"| @@"`
}

// Kind 返回分区类型名。
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Page != nil:
		return "page"
	case s.Style != nil:
		return "style"
	case s.Headings != nil:
		return "headings"
	case s.RowSet != nil:
		return s.RowSet.Kind
	case s.Group != nil:
		return "group"
	default:
		return "unknown"
	}
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// PageSection 声明纸张、方向、边距以及报表级开关。
type PageSection struct {
	Size   string `parser:"'page' @Ident"`
	Params []*Arg `parser:"@@*"`
	Block  *Block `parser:"@@?"`
}

// StyleSection 声明可复用的属性集合，可以 extends 另一个样式。
type StyleSection struct {
	Name   string `parser:"'style' @Ident"`
	Params []*Arg `parser:"@@*"`
	Block  *Block `parser:"@@"`
}

// HeadingsSection 是所有字段表头共享的属性。
type HeadingsSection struct {
	Params []*Arg `parser:"'headings' @@*"`
	Block  *Block `parser:"@@?"`
}

// RowSetSection 是页眉、页脚或数据行定义。
type RowSetSection struct {
	Kind   string `parser:"@( 'page-header' | 'page-footer' | 'fields' )"`
	Params []*Arg `parser:"@@*"`
	Block  *Block `parser:"@@"`
}

// GroupSection 定义一个分组层级及其表头、页脚。
type GroupSection struct {
	Name   string `parser:"'group' @Ident"`
	Params []*Arg `parser:"@@*"`
	Block  *Block `parser:"@@"`
}

type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 是块内的一条语句：赋值、命令或文本。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment 使用冒号语法：key: value。
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':' Newline*"`
	Value *Value         `parser:"@@"`
}

// Command 是 `名称 参数... { 块 }` 形式的语句，例如 cell、split、font。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Arg         `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Arg 是命令或分区头部的一个参数。
type Arg struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Quoted *StringLiteral `parser:"  @String"`
	Bare   *string        `parser:"| @( Number | Color | '=' | Ident ( ':' Ident )* )"`
}

// Value 返回参数文本；字符串已去掉引号。
func (a *Arg) Value() string {
	switch {
	case a == nil:
		return ""
	case a.Quoted != nil:
		return string(*a.Quoted)
	case a.Bare != nil:
		return *a.Bare
	default:
		return ""
	}
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是赋值右侧的取值。Word 是裸标识符，允许用冒号连接（currency:no_fill）。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Word   *string        `parser:"| @( Ident ( ':' Ident )* )"`
}

// ArrayValue 是 [ ... ]，元素之间用逗号、分号或换行分隔。
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( ( ',' | ';' | Newline+ ) Newline* @@ )* )? Newline* ']'"`
}

// InlineObject 是 { key: value } 形式的内联对象。
type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( ( ';' | ',' | Newline+ ) Newline* @@ )* )? Newline* '}'"`
}
