package canvasrenderer

import (
	"fmt"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/quire/layout"
)

const (
	moduleWidth   = 1.0 // pt，单个条码模块宽度（缩放前）
	barcodeZone   = 25.0
	barcodeLegend = 7.0
)

// encodeBarcode 生成一维条码符号。
func encodeBarcode(kind layout.BarcodeKind, code string) (barcode.Barcode, error) {
	switch kind {
	case layout.BarcodeCode128:
		return code128.Encode(code)
	case layout.BarcodeCode39:
		return code39.Encode(code, false, true)
	case layout.BarcodeEAN13:
		return ean.Encode(code)
	default:
		return nil, fmt.Errorf("不支持的条码类型 %q", kind)
	}
}

// barRuns 把条码的深色模块合并为 [起始模块, 模块数] 区间。
func barRuns(bc barcode.Barcode) [][2]int {
	b := bc.Bounds()
	var runs [][2]int
	start := -1
	for i := 0; i < b.Dx(); i++ {
		gray := color.GrayModel.Convert(bc.At(b.Min.X+i, b.Min.Y)).(color.Gray)
		dark := gray.Y < 128
		switch {
		case dark && start < 0:
			start = i
		case !dark && start >= 0:
			runs = append(runs, [2]int{start, i - start})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, b.Dx() - start})
	}
	return runs
}

// PlaceBarcode 在 (x, y) 处绘制条码：上留白、条区、下方可读文本。
func (r *Renderer) PlaceBarcode(kind layout.BarcodeKind, code string, x, y, scale float64, style layout.BarcodeStyle) error {
	ctx, err := r.current()
	if err != nil {
		return err
	}
	bc, err := encodeBarcode(kind, code)
	if err != nil {
		return err
	}
	if scale <= 0 {
		scale = 1
	}
	zone := style.Zone
	if zone <= 0 {
		zone = barcodeZone
	}
	top := y + style.UpperZone*scale
	barH := zone * scale
	module := moduleWidth * scale

	ctx.SetStrokeColor(transparent)
	ctx.SetFillColor(colorFromLayout(style.Color))
	for _, run := range barRuns(bc) {
		bx := x + float64(run[0])*module
		ctx.DrawPath(toMm(bx), toMm(top+barH), canvas.Rectangle(toMm(float64(run[1])*module), toMm(barH)))
	}

	if !style.ShowText {
		return nil
	}
	fs := style.FontSize
	if fs <= 0 {
		fs = barcodeLegend
	}
	fs *= scale
	text := bc.Content()
	width := float64(bc.Bounds().Dx()) * module
	tx := x + (width-r.MeasureText(style.Font, fs, text))/2
	return r.DrawText(style.Font, fs, style.Color, tx, top+barH+fs, text)
}
