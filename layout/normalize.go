package layout

import (
	"strconv"
	"strings"
)

// normalizeCells 在几何解析前一次性翻译旧写法，核心逻辑只看新属性。
func normalizeCells(cells []*Cell) {
	for _, c := range cells {
		for node := c; node != nil; node = node.Split {
			normalizeCell(node)
		}
	}
}

func normalizeCell(c *Cell) {
	if c.Width == "" && c.Percent > 0 {
		c.Width = strconv.FormatFloat(c.Percent, 'f', -1, 64) + "%"
	}
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "currency":
		if c.Format == nil {
			c.Format = &NumberFormat{DecimalPlaces: 2, DecimalFill: true, SeparateThousands: true, Currency: true}
		}
	case "currency:no_fill":
		if c.Format == nil {
			c.Format = &NumberFormat{DecimalPlaces: 2, SeparateThousands: true, Currency: true}
		}
	case "thousands_separated":
		if c.Format == nil {
			c.Format = &NumberFormat{DecimalPlaces: 2, SeparateThousands: true}
		}
	}
	c.Align = normalizeAlign(c.Align)
	c.VAlign = normalizeVAlign(c.VAlign)
	if c.Background != nil {
		switch strings.ToLower(string(c.Background.Shape)) {
		case "", "rect", "rectangle", "box":
			c.Background.Shape = ShapeBox
		case "ellipse", "circle", "oval":
			c.Background.Shape = ShapeEllipse
		}
	}
	if c.Barcode != nil {
		c.Barcode.Kind = BarcodeKind(strings.ToLower(strings.ReplaceAll(string(c.Barcode.Kind), "_", "")))
	}
}

func normalizeAlign(a HAlign) HAlign {
	switch strings.ToLower(strings.TrimSpace(string(a))) {
	case "l", "left", "start":
		return AlignLeft
	case "c", "center", "centre", "middle":
		return AlignCenter
	case "r", "right", "end":
		return AlignRight
	case "j", "justify", "justified":
		return AlignJustify
	default:
		return ""
	}
}

func normalizeVAlign(a VAlign) VAlign {
	switch strings.ToLower(strings.TrimSpace(string(a))) {
	case "t", "top":
		return VAlignTop
	case "m", "middle", "center", "centre":
		return VAlignMiddle
	case "b", "bottom":
		return VAlignBottom
	default:
		return ""
	}
}
