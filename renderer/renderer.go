package renderer

import (
	"io"

	"github.com/ByLCY/quire/layout"
)

// Renderer 是可以导出结果的画布：引擎通过 layout.Canvas 逐页绘制，结束后调用 Write 输出。
// Write 的格式由实现决定，例如 PDF 字节流或 JSON 绘制轨迹。
type Renderer interface {
	layout.Canvas
	SetMeta(meta layout.DocumentMeta)
	Write(w io.Writer) error
}
