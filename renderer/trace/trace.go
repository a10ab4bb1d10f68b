// Package trace 提供记录绘制调用的画布，用于测试布局与导出调试轨迹。
package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

// Advance 是未指定 Inner 时每个字符的宽度系数（乘以字号）。
const Advance = 0.5

// Op 是一次绘制调用。
type Op struct {
	Kind  string         `json:"kind"` // text / line / shape / image / barcode
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	X2    float64        `json:"x2,omitempty"`
	Y2    float64        `json:"y2,omitempty"`
	W     float64        `json:"w,omitempty"`
	H     float64        `json:"h,omitempty"`
	Font  string         `json:"font,omitempty"`
	Size  float64        `json:"size,omitempty"`
	Text  string         `json:"text,omitempty"`
	Shape string         `json:"shape,omitempty"`
	Scale float64        `json:"scale,omitempty"`
	Color *layout.Color  `json:"color,omitempty"`
}

// Page 是一页的绘制轨迹。
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ops    []Op    `json:"ops"`
}

// Image 是登记给画布的图片尺寸。
type Image struct {
	Width, Height float64
	Format        string
}

// Canvas 记录每页的绘制调用。Inner 不为空时测量与绘制都转发给它，
// 否则按 Advance 估算文本宽度。
type Canvas struct {
	Inner  layout.Canvas
	Images map[string]Image

	meta  layout.DocumentMeta
	pages []*Page
}

var _ renderer.Renderer = (*Canvas)(nil)

// New 返回一个独立的记录画布。
func New() *Canvas { return &Canvas{Images: map[string]Image{}} }

// Wrap 包装另一个画布，在转发前记录调用。
func Wrap(inner layout.Canvas) *Canvas {
	c := New()
	c.Inner = inner
	return c
}

// Pages 返回已记录的页面。
func (c *Canvas) Pages() []*Page { return c.pages }

// Meta 返回文档信息。
func (c *Canvas) Meta() layout.DocumentMeta { return c.meta }

// Texts 返回第 i 页按顺序绘制的文本。
func (c *Canvas) Texts(i int) []string {
	if i < 0 || i >= len(c.pages) {
		return nil
	}
	var out []string
	for _, op := range c.pages[i].Ops {
		if op.Kind == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

func (c *Canvas) SetMeta(meta layout.DocumentMeta) {
	c.meta = meta
	if r, ok := c.Inner.(renderer.Renderer); ok {
		r.SetMeta(meta)
	}
}

func (c *Canvas) MeasureText(font string, size float64, text string) float64 {
	if c.Inner != nil {
		return c.Inner.MeasureText(font, size, text)
	}
	return float64(len([]rune(text))) * size * Advance
}

func (c *Canvas) NewPage(width, height float64) error {
	if c.Inner != nil {
		if err := c.Inner.NewPage(width, height); err != nil {
			return err
		}
	}
	c.pages = append(c.pages, &Page{Width: width, Height: height})
	return nil
}

func (c *Canvas) record(op Op) error {
	if len(c.pages) == 0 {
		return fmt.Errorf("尚未创建页面")
	}
	p := c.pages[len(c.pages)-1]
	p.Ops = append(p.Ops, op)
	return nil
}

func (c *Canvas) DrawText(font string, size float64, color layout.Color, x, y float64, text string) error {
	if err := c.record(Op{Kind: "text", X: x, Y: y, Font: font, Size: size, Text: text, Color: &color}); err != nil {
		return err
	}
	if c.Inner != nil {
		return c.Inner.DrawText(font, size, color, x, y, text)
	}
	return nil
}

func (c *Canvas) StrokeLine(x1, y1, x2, y2 float64, color layout.Color) error {
	if err := c.record(Op{Kind: "line", X: x1, Y: y1, X2: x2, Y2: y2, Color: &color}); err != nil {
		return err
	}
	if c.Inner != nil {
		return c.Inner.StrokeLine(x1, y1, x2, y2, color)
	}
	return nil
}

func (c *Canvas) FillShape(kind layout.ShapeKind, x, y, w, h float64, color layout.Color) error {
	if err := c.record(Op{Kind: "shape", Shape: string(kind), X: x, Y: y, W: w, H: h, Color: &color}); err != nil {
		return err
	}
	if c.Inner != nil {
		return c.Inner.FillShape(kind, x, y, w, h, color)
	}
	return nil
}

func (c *Canvas) ImageDimensions(path string) (float64, float64, string, error) {
	if img, ok := c.Images[path]; ok {
		return img.Width, img.Height, img.Format, nil
	}
	if c.Inner != nil {
		return c.Inner.ImageDimensions(path)
	}
	return 0, 0, "", fmt.Errorf("未登记的图片 %s", path)
}

func (c *Canvas) PlaceImage(path string, x, y, scale float64) error {
	if err := c.record(Op{Kind: "image", Text: path, X: x, Y: y, Scale: scale}); err != nil {
		return err
	}
	if c.Inner != nil {
		return c.Inner.PlaceImage(path, x, y, scale)
	}
	return nil
}

func (c *Canvas) PlaceBarcode(kind layout.BarcodeKind, code string, x, y, scale float64, style layout.BarcodeStyle) error {
	if err := c.record(Op{Kind: "barcode", Shape: string(kind), Text: code, X: x, Y: y, Scale: scale, Font: style.Font, Size: style.FontSize}); err != nil {
		return err
	}
	if c.Inner != nil {
		return c.Inner.PlaceBarcode(kind, code, x, y, scale, style)
	}
	return nil
}

// Write 以 JSON 输出文档信息与全部页面轨迹。
func (c *Canvas) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := struct {
		Meta  layout.DocumentMeta `json:"meta"`
		Pages []*Page             `json:"pages"`
	}{c.meta, c.pages}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("写入绘制轨迹失败: %w", err)
	}
	return nil
}
