package canvasrenderer

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

const (
	lineWidth          = 0.2 // mm
	defaultMeasureSize = 4096
)

// Renderer 通过 github.com/tdewolff/canvas 实现 layout.Canvas。
// 引擎以 pt 为单位、左上角为原点调用；canvas 内部使用 mm，在边界处统一换算。
type Renderer struct {
	baseDir string
	log     zerolog.Logger

	// 注入的资源
	fonts      map[string]Font
	fontBlobs  map[string][]byte // built-in:<name>
	imageBlobs map[string][]byte // built-in:<name>

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	measures *lru.Cache[measureKey, float64]
	images   map[string]*decodedImage

	meta  layout.DocumentMeta
	pages []*page
}

var (
	_ renderer.Renderer = (*Renderer)(nil)

	transparent = color.RGBA{0, 0, 0, 0}
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

type measureKey struct {
	font string
	size float64
	text string
}

type page struct {
	width, height float64 // mm
	c             *canvas.Canvas
	ctx           *canvas.Context
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	// Fonts 把单元格中的字体名映射到字体来源。
	Fonts map[string]Font
	// Blobs 提供可通过 built-in:<name> 引用的字体或图片字节。
	Blobs map[string]Resource
	// MeasureCacheSize 是文本测量缓存的条目数，0 使用默认值。
	MeasureCacheSize int
	Logger           *zerolog.Logger
}

// Font 描述字体来源。Src 可以是文件路径、embed:<内置字体> 或 built-in:<注入资源>。
type Font struct {
	Src   string
	Style string
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	size := opts.MeasureCacheSize
	if size <= 0 {
		size = defaultMeasureSize
	}
	cache, err := lru.New[measureKey, float64](size)
	if err != nil {
		// 只有 size <= 0 时才会出错
		panic(err)
	}
	r := &Renderer{
		baseDir:      opts.BaseDir,
		log:          zerolog.Nop(),
		fonts:        map[string]Font{},
		fontBlobs:    map[string][]byte{},
		imageBlobs:   map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
		measures:     cache,
		images:       map[string]*decodedImage{},
	}
	if opts.Logger != nil {
		r.log = *opts.Logger
	}
	for name, f := range opts.Fonts {
		r.fonts[name] = f
	}
	for name, res := range opts.Blobs {
		if name == "" {
			continue
		}
		data := res.Bytes
		if len(data) == 0 && res.Path != "" {
			data, _ = os.ReadFile(res.Path) // 读取失败在实际使用时报告
		}
		if len(data) > 0 {
			r.fontBlobs[name] = data
			r.imageBlobs[name] = data
		}
	}
	return r
}

// SetMeta 设置 PDF 文档信息。
func (r *Renderer) SetMeta(meta layout.DocumentMeta) { r.meta = meta }

// Pages 返回已创建的页数。
func (r *Renderer) Pages() int { return len(r.pages) }

// MeasureText 返回文本宽度（pt）。
func (r *Renderer) MeasureText(font string, size float64, text string) float64 {
	if text == "" {
		return 0
	}
	key := measureKey{font: font, size: size, text: text}
	if w, ok := r.measures.Get(key); ok {
		return w
	}
	face, err := r.fontFace(font, size, layout.Black)
	if err != nil {
		// 连内置字体都无法加载时按字号估算
		w := float64(len([]rune(text))) * size * 0.5
		r.measures.Add(key, w)
		return w
	}
	w := toPt(face.TextWidth(text))
	r.measures.Add(key, w)
	return w
}

// NewPage 开始新的一页。
func (r *Renderer) NewPage(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("页面尺寸无效: %gx%g", width, height)
	}
	p := &page{width: toMm(width), height: toMm(height)}
	p.c = canvas.New(p.width, p.height)
	p.ctx = canvas.NewContext(p.c)
	p.ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	r.pages = append(r.pages, p)
	return nil
}

func (r *Renderer) current() (*canvas.Context, error) {
	if len(r.pages) == 0 {
		return nil, fmt.Errorf("尚未创建页面")
	}
	return r.pages[len(r.pages)-1].ctx, nil
}

// DrawText 在基线 y 处从 x 开始绘制一行文本。
func (r *Renderer) DrawText(font string, size float64, col layout.Color, x, y float64, text string) error {
	ctx, err := r.current()
	if err != nil {
		return err
	}
	face, err := r.fontFace(font, size, col)
	if err != nil {
		return err
	}
	ctx.DrawText(toMm(x), toMm(y), canvas.NewTextLine(face, text, canvas.Left))
	return nil
}

// StrokeLine 绘制直线。路径本身不随坐标系翻转，因此纵向位移取反。
func (r *Renderer) StrokeLine(x1, y1, x2, y2 float64, col layout.Color) error {
	ctx, err := r.current()
	if err != nil {
		return err
	}
	ctx.SetFillColor(transparent)
	ctx.SetStrokeColor(colorFromLayout(col))
	ctx.SetStrokeWidth(lineWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(x2-x1), -toMm(y2-y1))
	ctx.DrawPath(toMm(x1), toMm(y1), p)
	return nil
}

// FillShape 填充矩形或内切椭圆，(x, y) 为左上角。
func (r *Renderer) FillShape(kind layout.ShapeKind, x, y, w, h float64, col layout.Color) error {
	ctx, err := r.current()
	if err != nil {
		return err
	}
	ctx.SetStrokeColor(transparent)
	ctx.SetFillColor(colorFromLayout(col))
	switch kind {
	case layout.ShapeEllipse:
		ctx.DrawPath(toMm(x+w/2), toMm(y+h/2), canvas.Ellipse(toMm(w/2), toMm(h/2)))
	default:
		// 矩形路径向上延伸，以左下角定位
		ctx.DrawPath(toMm(x), toMm(y+h), canvas.Rectangle(toMm(w), toMm(h)))
	}
	return nil
}

// Write 输出 PDF。
func (r *Renderer) Write(w io.Writer) error {
	if len(r.pages) == 0 {
		return fmt.Errorf("缺少可渲染的页面")
	}
	first := r.pages[0]
	writer := pdf.New(w, first.width, first.height, nil)
	r.applyMeta(writer)
	for i, p := range r.pages {
		if i > 0 {
			writer.NewPage(p.width, p.height)
		}
		p.c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	keywords := strings.Join(r.meta.Keywords, ", ")
	writer.SetInfo(r.meta.Title, r.meta.Subject, keywords, r.meta.Author, r.meta.Creator)
}

func (r *Renderer) fontFace(name string, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(name)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, canvas.FontStyle, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[name]; ok {
		return entry.family, entry.style, nil
	}

	font, declared := r.fonts[name]
	if !declared && strings.HasPrefix(name, "embed:") {
		font, declared = Font{Src: name}, true
	}
	if declared {
		style := parseFontStyle(font.Style)
		family := canvas.NewFontFamily(name)
		err := r.loadFontIntoFamily(family, font, style)
		if err == nil {
			r.fontFamilies[name] = &fontFamilyEntry{family: family, style: style}
			return family, style, nil
		}
		r.log.Warn().Str("font", name).Err(err).Msg("字体加载失败，使用内置字体")
	}

	fallback, err := r.fallback()
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fontFamilies[name] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
	return fallback, canvas.FontRegular, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font Font, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font Font) ([]byte, error) {
	src := font.Src
	if src == "" {
		return nil, fmt.Errorf("字体缺少 src")
	}
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	return os.ReadFile(r.resolvePath(src))
}

// resolvePath 把相对路径解析到资源目录下。
func (r *Renderer) resolvePath(path string) string {
	if filepath.IsAbs(path) || r.baseDir == "" {
		return path
	}
	return filepath.Join(r.baseDir, path)
}

func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("quire-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
