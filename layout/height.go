package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/ByLCY/quire/binding"
)

// scope 是计算或绘制一个行集时可见的数据：当前记录，以及分组行集对应的分组与分组值。
type scope struct {
	rec   Record
	group *Group
	value string
}

// measurer 返回单元格字体下的测量函数。
func (e *Engine) measurer(c *Cell) MeasureFunc {
	return func(s string) float64 {
		return e.canvas.MeasureText(c.Font, c.Geom.FontSize, s)
	}
}

// lines 返回单元格文本折行后的显示行；未开启 wrap 时只按已有换行拆分。
func (e *Engine) lines(c *Cell, text string) []string {
	width := c.Geom.TextWidth
	if !c.Wrap {
		width = 0
	}
	return Wrap(text, width, e.measurer(c), false)
}

// cellContent 返回单元格的原始值与显示文本。
func (e *Engine) cellContent(pc *PaginationContext, c *Cell, kind RowSetKind, sc scope) (any, string, error) {
	switch {
	case kind == RowSetGroup && c.AggregateSource != "":
		v, ok := e.aggs.Value(c.AggregateSource, c.Text)
		if !ok {
			return nil, "", fmt.Errorf("%w: 聚合值 %s/%s 不存在", ErrLookup, c.AggregateSource, c.Text)
		}
		f := c.Format
		if f == nil {
			if src := e.field(c.AggregateSource); src != nil {
				f = src.Format
			}
		}
		return v, FormatValue(v, f), nil
	case kind == RowSetData && c.column >= 0:
		var v any
		if c.column < len(sc.rec) {
			v = sc.rec[c.column]
		}
		return v, FormatValue(v, c.Format), nil
	default:
		text := c.Text
		if strings.Contains(text, "${") {
			text = binding.Interpolate(text, e.templateData(pc, sc))
		}
		return text, text, nil
	}
}

// templateData 构造单元格模板 ${...} 可引用的数据。
func (e *Engine) templateData(pc *PaginationContext, sc scope) map[string]any {
	fields := make(map[string]any, len(e.rep.Fields.Cells))
	for _, c := range e.rep.Fields.Cells {
		if c.column >= 0 && c.column < len(sc.rec) {
			fields[c.Name] = sc.rec[c.column]
		}
	}
	data := map[string]any{
		"page":  pc.Page,
		"value": sc.value,
		"field": fields,
	}
	if sc.group != nil {
		data["group"] = sc.group.Name
	}
	return data
}

// cellHeight 计算单个单元格（不含拆分子单元格）的内容高度。
// 空文本也至少占一行。
func (e *Engine) cellHeight(pc *PaginationContext, c *Cell, text string) float64 {
	lineH := c.Geom.LineHeight()
	h := lineH
	if c.Barcode == nil && c.Image == nil && text != "" {
		h = float64(len(e.lines(c, text))) * lineH
	}
	if c.Barcode != nil {
		h = math.Max(h, c.Barcode.Height())
	}
	if c.Image != nil {
		h = math.Max(h, e.imageHeight(pc, c))
	}
	return h
}

// imageHeight 计算图片占用高度并缓存缩放比例。
// 显式高度优先；否则按宽度适配，放不进剩余页面空间时按宽、高适配比例中较小者等比缩小。
func (e *Engine) imageHeight(pc *PaginationContext, c *Cell) float64 {
	img := c.Image
	if !img.loaded {
		img.loaded = true
		w, h, _, err := e.canvas.ImageDimensions(img.Path)
		if err == nil && (w <= 0 || h <= 0) {
			err = fmt.Errorf("图片 %s 尺寸为零", img.Path)
		}
		img.width, img.height, img.err = w, h, err
	}
	if img.err != nil {
		img.scale = 0
		return 0
	}
	if img.Height > 0 {
		img.scale = img.Height / img.height
		return img.Height + 2*img.Buffer
	}
	avail := c.Geom.FullWidth - 2*img.Buffer
	widthFit := avail / img.width
	scale := 1.0
	if img.ScaleToFit || img.width > avail {
		scale = widthFit
	}
	remaining := e.remaining(pc) - 2*img.Buffer
	if remaining > 0 && img.height*scale > remaining {
		scale = math.Min(widthFit, remaining/img.height)
	}
	img.scale = scale
	return img.height*scale + 2*img.Buffer
}

// chainHeights 返回拆分链上每个节点的高度。
func (e *Engine) chainHeights(pc *PaginationContext, c *Cell, kind RowSetKind, sc scope) []float64 {
	var out []float64
	for node := c; node != nil; node = node.Split {
		_, text, _ := e.cellContent(pc, node, kind, sc)
		out = append(out, e.cellHeight(pc, node, text))
	}
	return out
}

// rowHeights 计算行集每一行的实际高度。
// print_if_true：一行中所有单元格都带该标志且取值全为假时，该行高度为 0。
func (e *Engine) rowHeights(pc *PaginationContext, set *RowSet, sc scope) []float64 {
	heights := make([]float64, len(set.Geom.RowHeights))
	for row := range heights {
		if e.rowSuppressed(pc, set, row, sc) {
			continue
		}
		for _, c := range set.Cells {
			if c.Geom.Row != row {
				continue
			}
			total := 0.0
			for _, h := range e.chainHeights(pc, c, set.Kind, sc) {
				total += h
			}
			if total > heights[row] {
				heights[row] = total
			}
		}
	}
	return heights
}

func (e *Engine) rowSuppressed(pc *PaginationContext, set *RowSet, row int, sc scope) bool {
	found := false
	for _, c := range set.Cells {
		if c.Geom.Row != row {
			continue
		}
		found = true
		if !c.PrintIfTrue {
			return false
		}
		v, _, _ := e.cellContent(pc, c, set.Kind, sc)
		if truthy(v) {
			return false
		}
	}
	return found
}

// rowSetHeight 返回行集高度（含上下留白）；所有行都被抑制时为 0。
func (e *Engine) rowSetHeight(pc *PaginationContext, set *RowSet, sc scope) float64 {
	if set == nil || len(set.Cells) == 0 {
		return 0
	}
	total := 0.0
	for _, h := range e.rowHeights(pc, set, sc) {
		total += h
	}
	if total == 0 {
		return 0
	}
	return total + set.Buffer.Total()
}

// yNeeded 计算渲染一条数据行所需的高度；仅当有待输出的分组表头时，
// 才加上这些表头与字段表头的高度。除图片缩放缓存外不修改任何状态。
func (e *Engine) yNeeded(pc *PaginationContext, rec Record) float64 {
	need := e.rowSetHeight(pc, &e.rep.Fields, scope{rec: rec})
	if len(pc.Queue) == 0 {
		return need
	}
	for _, q := range pc.Queue {
		need += e.rowSetHeight(pc, q.Group.Header, scope{rec: rec, group: q.Group, value: q.Value})
	}
	if !e.rep.NoFieldHeaders {
		need += e.rowSetHeight(pc, e.fieldHeaders, scope{rec: rec})
	}
	return need
}

// remaining 返回当前页在页脚预留之上还可使用的高度。
func (e *Engine) remaining(pc *PaginationContext) float64 {
	return e.rep.Page.PrintBottom() - pc.FooterReserve - pc.Y
}
