package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/tdewolff/canvas"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodedImage 缓存解码结果；解码失败也缓存，避免每页重复读取。
type decodedImage struct {
	img    image.Image
	format string
	err    error
}

// ImageDimensions 返回图片像素尺寸，按 1px = 1pt 解释。
func (r *Renderer) ImageDimensions(path string) (float64, float64, string, error) {
	d := r.loadImage(path)
	if d.err != nil {
		return 0, 0, "", d.err
	}
	b := d.img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), d.format, nil
}

// PlaceImage 以 (x, y) 为左上角、按 scale 缩放绘制图片。
func (r *Renderer) PlaceImage(path string, x, y, scale float64) error {
	ctx, err := r.current()
	if err != nil {
		return err
	}
	if scale <= 0 {
		return fmt.Errorf("图片 %s 缩放比例无效: %g", path, scale)
	}
	d := r.loadImage(path)
	if d.err != nil {
		return d.err
	}
	b := d.img.Bounds()
	heightPt := float64(b.Dy()) * scale
	// 每毫米像素数：原始像素宽度 / 目标宽度(mm)
	dpmm := float64(b.Dx()) / toMm(float64(b.Dx())*scale)
	// 图片向上延伸，以左下角定位
	ctx.DrawImage(toMm(x), toMm(y+heightPt), d.img, canvas.DPMM(dpmm))
	return nil
}

func (r *Renderer) loadImage(orig string) *decodedImage {
	if d, ok := r.images[orig]; ok {
		return d
	}
	d := &decodedImage{}
	r.images[orig] = d

	var data []byte
	if strings.HasPrefix(orig, "built-in:") || strings.HasPrefix(orig, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(orig, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			d.err = fmt.Errorf("找不到内置图片资源 built-in:%s", name)
			return d
		}
		data = blob
	} else {
		var err error
		data, err = os.ReadFile(r.resolvePath(orig))
		if err != nil {
			d.err = fmt.Errorf("读取图片 %s 失败: %w", orig, err)
			return d
		}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.err = fmt.Errorf("解码图片 %s 失败: %w", orig, err)
		return d
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		d.err = fmt.Errorf("图片 %s 尺寸为零", orig)
		return d
	}
	d.img, d.format = img, format
	return d
}
