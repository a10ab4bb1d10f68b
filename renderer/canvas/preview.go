package canvasrenderer

import (
	"fmt"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// WritePNG 把第 index 页（从 0 开始）栅格化为 PNG，dpi <= 0 时使用 96。
func (r *Renderer) WritePNG(w io.Writer, index int, dpi float64) error {
	if index < 0 || index >= len(r.pages) {
		return fmt.Errorf("页码 %d 超出范围（共 %d 页）", index+1, len(r.pages))
	}
	if dpi <= 0 {
		dpi = 96
	}
	img := rasterizer.Draw(r.pages[index].c, canvas.DPMM(dpi/25.4), canvas.DefaultColorSpace)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return nil
}
