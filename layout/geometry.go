package layout

import "math"

const widthEpsilon = 1e-6

// Resolver 负责一次性解析行集几何：宽度、折行、文本区域、对齐默认值与拆分子单元格。
type Resolver struct {
	page     PageMetrics
	font     string
	fontSize float64
	// names 记录数据单元格名称到列序号的映射。
	names map[string]int
}

// NewResolver 创建解析器。fontSize 为报表默认字号（pt）。
func NewResolver(page PageMetrics, font string, fontSize float64) *Resolver {
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	return &Resolver{page: page, font: font, fontSize: fontSize, names: map[string]int{}}
}

// Column 返回数据单元格的列序号。
func (r *Resolver) Column(name string) (int, bool) {
	i, ok := r.names[name]
	return i, ok
}

// Resolve 原地写入每个单元格的 Geom，并返回行集中最大的单元格高度。
// groupName 仅在 RowSetGroup 中使用：带聚合来源的单元格文本被替换为分组名。
func (r *Resolver) Resolve(set *RowSet, groupName string) (float64, error) {
	x := r.page.Margin.Left
	row := 0
	placed := 0
	column := 0
	maxCell := 0.0

	for i, c := range set.Cells {
		if c == nil {
			return 0, configErr("%s 行集第 %d 个单元格为空", set.Kind, i)
		}
		if err := r.resolveWidth(c, set.Kind, i); err != nil {
			return 0, err
		}

		if c.X != "" {
			xb, err := ParseLength(c.X, r.page.Width)
			if err != nil {
				return 0, configErr("单元格 %q 的 x 无法解析: %v", c.Name, err)
			}
			c.Geom.XBorder = xb
			c.Geom.Absolute = true
		} else {
			if placed > 0 && x+c.Geom.FullWidth > r.page.PrintRight()+widthEpsilon {
				row++
				x = r.page.Margin.Left
				placed = 0
			}
			c.Geom.XBorder = x
			x += c.Geom.FullWidth
			placed++
		}
		if c.Y != "" {
			y, err := ParseLength(c.Y, r.page.Height)
			if err != nil {
				return 0, configErr("单元格 %q 的 y 无法解析: %v", c.Name, err)
			}
			c.Geom.YOffset = y
		}
		c.Geom.Row = row

		switch set.Kind {
		case RowSetData:
			if c.Filler {
				c.column = -1
				break
			}
			if c.Name == "" {
				return 0, configErr("第 %d 个数据单元格缺少 name", i)
			}
			if _, dup := r.names[c.Name]; dup {
				return 0, configErr("数据单元格名称重复: %s", c.Name)
			}
			r.names[c.Name] = column
			c.column = column
			column++
		case RowSetFieldHeaders:
			c.Wrap = true
		case RowSetGroup:
			if c.AggregateSource != "" {
				c.Text = groupName
			}
		}

		r.resolveText(c, set.Kind)
		c.Geom.SplitVAlign = c.VAlign
		if c.Split != nil {
			if err := r.resolveSplit(c, c.Split, set.Kind, groupName, 1); err != nil {
				return 0, err
			}
		}
		if h := chainStaticHeight(c); h > maxCell {
			maxCell = h
		}
	}

	heights := make([]float64, row+1)
	if len(set.Cells) == 0 {
		heights = nil
	}
	for _, c := range set.Cells {
		if h := chainStaticHeight(c); h > heights[c.Geom.Row] {
			heights[c.Geom.Row] = h
		}
	}
	total := 0.0
	for _, h := range heights {
		total += h
	}
	for _, c := range set.Cells {
		c.Geom.RowHeight = heights[c.Geom.Row]
	}
	set.Geom = RowSetGeometry{RowHeights: heights, Height: total, MaxCellHeight: maxCell}
	return maxCell, nil
}

func (r *Resolver) resolveWidth(c *Cell, kind RowSetKind, i int) error {
	if c.Width == "" {
		return configErr("%s 行集第 %d 个单元格 %q 缺少宽度", kind, i, c.Name)
	}
	w, err := ParseLength(c.Width, r.page.PrintWidth())
	if err != nil {
		return configErr("单元格 %q 的宽度 %q 无法解析: %v", c.Name, c.Width, err)
	}
	if w < 0 {
		return configErr("单元格 %q 的宽度不能为负", c.Name)
	}
	c.Geom.FullWidth = w
	return nil
}

// resolveText 计算字号、留白、文本区域与对齐默认值。
func (r *Resolver) resolveText(c *Cell, kind RowSetKind) {
	c.Geom.FontSize = c.FontSize
	if c.Geom.FontSize <= 0 {
		c.Geom.FontSize = r.fontSize
	}
	if c.Font == "" {
		c.Font = r.font
	}
	if c.Whitespace != nil {
		c.Geom.Whitespace = *c.Whitespace
	} else {
		c.Geom.Whitespace = c.Geom.FontSize / 2
	}
	c.Geom.TextX = c.Geom.XBorder + c.Geom.Whitespace + c.TextMarginLeft
	c.Geom.TextWidth = math.Max(c.Geom.FullWidth-2*c.Geom.Whitespace-c.TextMarginLeft-c.TextMarginRight, 0)

	if c.Align == "" {
		if kind == RowSetFieldHeaders {
			c.Align = AlignCenter
		} else {
			c.Align = AlignLeft
		}
	}
	if c.VAlign == "" {
		if kind == RowSetFieldHeaders {
			c.VAlign = VAlignMiddle
		} else {
			c.VAlign = VAlignBottom
		}
	}
	c.Geom.ContentHeight = staticHeight(c)
}

// resolveSplit 递归解析拆分链：子单元格强制继承父单元格的宽度、位置与对齐，并累计纵向偏移。
func (r *Resolver) resolveSplit(parent, child *Cell, kind RowSetKind, groupName string, depth int) error {
	child.Geom.FullWidth = parent.Geom.FullWidth
	child.Geom.XBorder = parent.Geom.XBorder
	child.Geom.Absolute = parent.Geom.Absolute
	child.Geom.YOffset = parent.Geom.YOffset
	child.Geom.Row = parent.Geom.Row
	child.Geom.SplitDepth = depth
	child.Align = parent.Align
	child.VAlign = parent.VAlign
	child.column = -1
	if kind == RowSetGroup && child.AggregateSource != "" {
		child.Text = groupName
	}
	r.resolveText(child, kind)
	child.Geom.SplitVAlign = parent.Geom.SplitVAlign
	child.Geom.SplitOffsetUp = parent.Geom.SplitOffsetUp + parent.Geom.ContentHeight

	if child.Split != nil {
		if err := r.resolveSplit(child, child.Split, kind, groupName, depth+1); err != nil {
			return err
		}
	}
	parent.Geom.SplitOffsetDown = child.Geom.ContentHeight + child.Geom.SplitOffsetDown
	return nil
}

// staticHeight 是不依赖记录内容的最小高度：一行文本、条码区域或显式图片高度中的最大者。
func staticHeight(c *Cell) float64 {
	h := c.Geom.LineHeight()
	if c.Barcode != nil {
		h = math.Max(h, c.Barcode.Height())
	}
	if c.Image != nil && c.Image.Height > 0 {
		h = math.Max(h, c.Image.Height+2*c.Image.Buffer)
	}
	return h
}

func chainStaticHeight(c *Cell) float64 {
	return c.Geom.ContentHeight + c.Geom.SplitOffsetDown
}

// fieldHeaderCells 由数据单元格派生字段表头行，共享 headings 的默认属性。
func fieldHeaderCells(fields []*Cell, headings *Cell) []*Cell {
	out := make([]*Cell, 0, len(fields))
	for _, f := range fields {
		h := &Cell{
			Name:            f.Name,
			Text:            f.Header,
			Width:           f.Width,
			X:               f.X,
			TextMarginLeft:  f.TextMarginLeft,
			TextMarginRight: f.TextMarginRight,
			Wrap:            true,
		}
		if h.Text == "" && !f.Filler {
			h.Text = f.Name
		}
		if headings != nil {
			h.Font = headings.Font
			h.FontSize = headings.FontSize
			h.Color = headings.Color
			h.Align = headings.Align
			h.VAlign = headings.VAlign
			h.Whitespace = headings.Whitespace
			h.Background = headings.Background
			h.Decorator = headings.Decorator
		}
		out = append(out, h)
	}
	return out
}
