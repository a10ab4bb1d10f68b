package layout

import "github.com/rs/zerolog"

// Options 配置引擎所需的外部协作者。
type Options struct {
	Canvas Canvas
	Logger *zerolog.Logger
}

// Canvas 是渲染后端：提供文本测量与绘制原语。坐标单位为 pt，原点在页面左上角，y 向下增长。
// 引擎只在同一个 goroutine 中同步调用这些方法。
type Canvas interface {
	MeasureText(font string, size float64, text string) float64
	NewPage(width, height float64) error
	// DrawText 的 y 为文本基线。
	DrawText(font string, size float64, color Color, x, y float64, text string) error
	StrokeLine(x1, y1, x2, y2 float64, color Color) error
	FillShape(kind ShapeKind, x, y, w, h float64, color Color) error
	// ImageDimensions 返回图片的原始尺寸（pt）与格式名。
	ImageDimensions(path string) (width, height float64, format string, err error)
	PlaceImage(path string, x, y, scale float64) error
	PlaceBarcode(kind BarcodeKind, code string, x, y, scale float64, style BarcodeStyle) error
}

// MeasureFunc 测量一段文本的宽度（pt）。
type MeasureFunc func(text string) float64
