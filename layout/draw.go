package layout

import (
	"fmt"
)

// 基线相对行顶（去掉半个留白后）的位置，按字号比例估算上升部高度。
const ascentRatio = 0.8

// renderRowSet 在当前 Y 处绘制整个行集并推进 Y。被抑制的行不占空间，全部抑制时什么也不画。
func (e *Engine) renderRowSet(pc *PaginationContext, set *RowSet, sc scope) {
	if set == nil || len(set.Cells) == 0 {
		return
	}
	heights := e.rowHeights(pc, set, sc)
	total := 0.0
	for _, h := range heights {
		total += h
	}
	if total == 0 {
		return
	}
	// 图片缩放依赖剩余空间，需在移动 Y 之前求出每条拆分链的高度。
	chains := make([][]float64, len(set.Cells))
	for i, c := range set.Cells {
		if heights[c.Geom.Row] > 0 {
			chains[i] = e.chainHeights(pc, c, set.Kind, sc)
		}
	}

	top := pc.Y + set.Buffer.Upper
	rowTop := make([]float64, len(heights))
	acc := top
	for i, h := range heights {
		rowTop[i] = acc
		acc += h
	}

	for i, c := range set.Cells {
		rowH := heights[c.Geom.Row]
		if rowH == 0 {
			continue
		}
		y := rowTop[c.Geom.Row] + c.Geom.YOffset
		used := 0.0
		j := 0
		for node := c; node != nil; node = node.Split {
			h := chains[i][j]
			if node.Split == nil {
				h = rowH - used
			}
			box := Box{X: node.Geom.XBorder, Y: y, Width: node.Geom.FullWidth, Height: h}
			e.drawCell(pc, node, set.Kind, sc, box)
			y += h
			used += h
			j++
		}
	}
	pc.Y = top + total + set.Buffer.Lower
}

// drawCell 绘制单个单元格：装饰器、背景、图片、条码或文本。出错时只跳过该单元格并记录警告。
func (e *Engine) drawCell(pc *PaginationContext, c *Cell, kind RowSetKind, sc scope, box Box) {
	value, text, err := e.cellContent(pc, c, kind, sc)
	if err != nil {
		e.warn(pc, c, err)
		return
	}
	color := Black
	if c.Color != nil {
		color = *c.Color
	}
	bg := c.Background

	if c.Decorator != nil {
		hooked := false
		if r, ok := c.Decorator.(ColorResolver); ok {
			hooked = true
			if col, ok := r.ResolveColor(c, value); ok {
				color = col
			}
		}
		if r, ok := c.Decorator.(BackgroundResolver); ok {
			hooked = true
			if b, ok := r.ResolveBackground(c, value); ok {
				bg = b
			}
		}
		if r, ok := c.Decorator.(CustomRenderer); ok {
			hooked = true
			s, err := r.CustomRender(c, value, box)
			if err != nil {
				e.warn(pc, c, fmt.Errorf("自定义渲染失败: %w", err))
				return
			}
			text = s
		}
		if !hooked && !e.warned[c] {
			e.warned[c] = true
			e.warn(pc, c, fmt.Errorf("装饰器类型 %T 没有实现任何渲染钩子", c.Decorator))
		}
	}

	if bg != nil {
		e.drawBackground(pc, c, bg, box)
	}
	switch {
	case c.Image != nil:
		e.drawImage(pc, c, box)
	case c.Barcode != nil:
		e.drawBarcode(pc, c, text, color, box)
	case text != "":
		e.drawText(pc, c, text, color, box)
	}
}

func (e *Engine) drawBackground(pc *PaginationContext, c *Cell, bg *Background, box Box) {
	shape := bg.Shape
	if shape == "" {
		shape = ShapeBox
	}
	if bg.Fill != nil {
		if err := e.canvas.FillShape(shape, box.X, box.Y, box.Width, box.Height, *bg.Fill); err != nil {
			e.warn(pc, c, err)
		}
	}
	// 椭圆只支持填充，边框按矩形绘制。
	if bg.Border != nil && shape == ShapeBox {
		x2, y2 := box.X+box.Width, box.Y+box.Height
		segments := [][4]float64{
			{box.X, box.Y, x2, box.Y},
			{x2, box.Y, x2, y2},
			{x2, y2, box.X, y2},
			{box.X, y2, box.X, box.Y},
		}
		for _, s := range segments {
			if err := e.canvas.StrokeLine(s[0], s[1], s[2], s[3], *bg.Border); err != nil {
				e.warn(pc, c, err)
				return
			}
		}
	}
}

func (e *Engine) drawImage(pc *PaginationContext, c *Cell, box Box) {
	img := c.Image
	if img.err != nil {
		e.warn(pc, c, fmt.Errorf("图片无法使用: %w", img.err))
		return
	}
	if img.scale <= 0 {
		e.warn(pc, c, fmt.Errorf("图片 %s 缩放比例为零", img.Path))
		return
	}
	w := img.width * img.scale
	x := box.X + img.Buffer
	switch c.Align {
	case AlignCenter:
		x = box.X + (box.Width-w)/2
	case AlignRight:
		x = box.X + box.Width - w - img.Buffer
	}
	if err := e.canvas.PlaceImage(img.Path, x, box.Y+img.Buffer, img.scale); err != nil {
		e.warn(pc, c, fmt.Errorf("放置图片 %s 失败: %w", img.Path, err))
	}
}

func (e *Engine) drawBarcode(pc *PaginationContext, c *Cell, text string, color Color, box Box) {
	b := c.Barcode
	code := b.Code
	if code == "" {
		code = text
	}
	if code == "" {
		return
	}
	style := BarcodeStyle{
		Zone:      b.Zone,
		UpperZone: b.UpperZone,
		LowerZone: b.LowerZone,
		Font:      c.Font,
		FontSize:  b.LegendSize(),
		ShowText:  b.ShowText,
		Color:     color,
	}
	if err := e.canvas.PlaceBarcode(b.Kind, code, c.Geom.TextX, box.Y, b.scale(), style); err != nil {
		e.warn(pc, c, fmt.Errorf("条码 %s 生成失败: %w", b.Kind, err))
	}
}

func (e *Engine) drawText(pc *PaginationContext, c *Cell, text string, color Color, box Box) {
	g := c.Geom
	lines := e.lines(c, text)
	lineH := g.LineHeight()
	textH := float64(len(lines)) * lineH

	y0 := box.Y
	switch c.VAlign {
	case VAlignMiddle:
		y0 = box.Y + (box.Height-textH)/2
	case VAlignBottom:
		y0 = box.Y + box.Height - textH
	}
	measure := e.measurer(c)

	for i, line := range lines {
		if line == "" {
			continue
		}
		baseline := y0 + float64(i)*lineH + g.Whitespace/2 + ascentRatio*g.FontSize
		if c.Align == AlignJustify && i < len(lines)-1 {
			for _, w := range Justify(line, g.TextWidth, measure) {
				if err := e.canvas.DrawText(c.Font, g.FontSize, color, g.TextX+w.X, baseline, w.Text); err != nil {
					e.warn(pc, c, err)
					return
				}
			}
			continue
		}
		x := g.TextX
		switch c.Align {
		case AlignRight:
			x = g.TextX + g.TextWidth - measure(line)
		case AlignCenter:
			x = g.TextX + (g.TextWidth-measure(line))/2
		}
		if err := e.canvas.DrawText(c.Font, g.FontSize, color, x, baseline, line); err != nil {
			e.warn(pc, c, err)
			return
		}
	}
}
