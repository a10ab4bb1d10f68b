// Package definition 把报表 DSL 编译成 layout.Report。
package definition

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// Definition 是编译后的报表定义。
type Definition struct {
	Name      string
	Version   string
	BaseDir   string // 相对路径资源（字体、图片）的根目录
	Report    *layout.Report
	Resources Resources
}

// LoadFile 读取并编译 DSL 文件，资源路径相对于文件所在目录。
func LoadFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开报表定义 %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dsl.ParseFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	def, err := Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.BaseDir = filepath.Dir(path)
	return def, nil
}

// Load 解析并编译 DSL。
func Load(r io.Reader) (*Definition, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return Compile(doc)
}

// Compile 把语法树编译为报表。只做静态检查；几何解析在 layout.New 中进行。
func Compile(doc *dsl.Document) (*Definition, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: 空文档", layout.ErrConfig)
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}
	c := &compiler{res: res, styles: styles}
	rep := &layout.Report{Meta: collectMeta(doc)}
	if rep.Meta.Title == "" {
		rep.Meta.Title = doc.Name
	}

	var (
		pageSeen   bool
		fieldsSeen bool
		groups     []*dsl.GroupSection
	)
	for _, section := range doc.Sections {
		switch {
		case section.Page != nil:
			if pageSeen {
				return nil, fmt.Errorf("%w: page 只能声明一次", layout.ErrConfig)
			}
			pageSeen = true
			if rep.Page, err = resolvePage(section.Page.Size, section.Page.Params); err != nil {
				return nil, err
			}
			if err := applyPageSettings(rep, section.Page.Block); err != nil {
				return nil, err
			}
		case section.Headings != nil:
			if rep.Headings, err = c.headings(section.Headings); err != nil {
				return nil, err
			}
		case section.RowSet != nil:
			rs := section.RowSet
			switch rs.Kind {
			case "fields":
				if fieldsSeen {
					return nil, fmt.Errorf("%w: fields 只能声明一次", layout.ErrConfig)
				}
				fieldsSeen = true
				set, err := c.rowSet(layout.RowSetData, rs.Params, rs.Block)
				if err != nil {
					return nil, err
				}
				rep.Fields = *set
			case "page-header":
				if rep.PageHeader, err = c.rowSet(layout.RowSetPageHeader, rs.Params, rs.Block); err != nil {
					return nil, err
				}
			case "page-footer":
				if rep.PageFooter, err = c.rowSet(layout.RowSetPageFooter, rs.Params, rs.Block); err != nil {
					return nil, err
				}
			}
		case section.Group != nil:
			groups = append(groups, section.Group)
		}
	}
	if !pageSeen {
		rep.Page, _ = resolvePage("A4", nil)
	}
	if !fieldsSeen || len(rep.Fields.Cells) == 0 {
		return nil, fmt.Errorf("%w: 缺少 fields 定义", layout.ErrConfig)
	}
	for _, g := range groups {
		group, err := c.group(g, &rep.Fields)
		if err != nil {
			return nil, err
		}
		if n := len(rep.Groups); n > 0 && group.Column == fieldCount(&rep.Fields) && rep.Groups[n-1].Column != group.Column {
			return nil, fmt.Errorf("%w: grand-total 分组 %s 必须在分组 %s 之前声明", layout.ErrConfig, g.Name, rep.Groups[n-1].Name)
		}
		rep.Groups = append(rep.Groups, group)
	}

	def := &Definition{Name: doc.Name, Version: doc.Version, Report: rep, Resources: res}
	if err := def.check(); err != nil {
		return nil, err
	}
	return def, nil
}

// fieldCount 是非填充数据单元格的数量，也是总计分组的列序号。
func fieldCount(fields *layout.RowSet) int {
	n := 0
	for _, f := range fields.Cells {
		if !f.Filler {
			n++
		}
	}
	return n
}

var groupFlags = map[string]bool{"page-break": true, "reprint-header": true, "grand-total": true}
var groupKeys = map[string]bool{"column": true, "on": true, "delimiter": true, "index": true}

// group 编译分组。列可以用序号（column 0）或数据单元格名称（on year）指定，grand-total 表示总计分组。
func (c *compiler) group(g *dsl.GroupSection, fields *layout.RowSet) (*layout.Group, error) {
	_, attrs, err := parseArgs(g.Params, groupKeys, groupFlags, false)
	if err != nil {
		return nil, fmt.Errorf("分组 %s: %w", g.Name, err)
	}
	columns := map[string]int{}
	next := 0
	for _, f := range fields.Cells {
		if !f.Filler {
			columns[f.Name] = next
			next++
		}
	}
	group := &layout.Group{Name: g.Name, Delimiter: attrs["delimiter"]}
	switch {
	case attrs["grand-total"] == "true":
		group.Column = fieldCount(fields)
	case attrs["on"] != "":
		col, ok := columns[attrs["on"]]
		if !ok {
			return nil, fmt.Errorf("%w: 分组 %s 引用了不存在的数据单元格 %s", layout.ErrConfig, g.Name, attrs["on"])
		}
		group.Column = col
	case attrs["column"] != "":
		if group.Column, err = strconv.Atoi(attrs["column"]); err != nil {
			return nil, fmt.Errorf("%w: 分组 %s 的 column 需要整数", layout.ErrConfig, g.Name)
		}
	default:
		return nil, fmt.Errorf("%w: 分组 %s 缺少 column/on/grand-total", layout.ErrConfig, g.Name)
	}
	if v := attrs["index"]; v != "" {
		if group.DelimiterIndex, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%w: 分组 %s 的 index 需要整数", layout.ErrConfig, g.Name)
		}
	}
	group.PageBreak = attrs["page-break"] == "true"
	group.ReprintHeader = attrs["reprint-header"] == "true"

	if g.Block == nil {
		return group, nil
	}
	for _, stmt := range g.Block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		switch cmd.Name {
		case "header":
			if group.Header, err = c.rowSet(layout.RowSetGroup, cmd.Args, cmd.Block); err != nil {
				return nil, err
			}
		case "footer":
			if group.Footer, err = c.rowSet(layout.RowSetGroup, cmd.Args, cmd.Block); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: 分组 %s 中未知的命令 %q", layout.ErrConfig, g.Name, cmd.Name)
		}
	}
	return group, nil
}

// check 校验字体与模板引用。
func (d *Definition) check() error {
	rep := d.Report
	fields := map[string]bool{}
	for _, f := range rep.Fields.Cells {
		if !f.Filler {
			fields[f.Name] = true
		}
	}
	var sets []*layout.RowSet
	sets = append(sets, &rep.Fields, rep.PageHeader, rep.PageFooter)
	for _, g := range rep.Groups {
		sets = append(sets, g.Header, g.Footer)
	}
	fonts := []string{rep.Font}
	if rep.Headings != nil {
		fonts = append(fonts, rep.Headings.Font)
	}
	for _, set := range sets {
		if set == nil {
			continue
		}
		for _, cell := range set.Cells {
			for node := cell; node != nil; node = node.Split {
				fonts = append(fonts, node.Font)
				for _, ref := range binding.References(node.Text) {
					if err := checkReference(ref, fields); err != nil {
						return fmt.Errorf("单元格 %q: %w", node.Name, err)
					}
				}
			}
		}
	}
	for _, f := range fonts {
		if f == "" || strings.HasPrefix(f, "embed:") {
			continue
		}
		if _, ok := d.Resources.Fonts[f]; !ok {
			return fmt.Errorf("%w: 字体 %s 未在 resources 中声明", layout.ErrConfig, f)
		}
	}
	return nil
}

func checkReference(ref string, fields map[string]bool) error {
	root, rest, _ := strings.Cut(ref, ".")
	switch root {
	case "page", "value", "group":
		return nil
	case "field":
		if fields[rest] {
			return nil
		}
		return fmt.Errorf("%w: 模板引用了不存在的字段 %q", layout.ErrConfig, rest)
	default:
		return fmt.Errorf("%w: 模板中未知的变量 %q", layout.ErrConfig, ref)
	}
}
