package layout

// RowSetKind 标识行集的用途，决定几何解析时的默认值与校验规则。
type RowSetKind int

const (
	RowSetData RowSetKind = iota
	RowSetFieldHeaders
	RowSetPageHeader
	RowSetPageFooter
	RowSetGroup
)

func (k RowSetKind) String() string {
	switch k {
	case RowSetData:
		return "data"
	case RowSetFieldHeaders:
		return "field_headers"
	case RowSetPageHeader:
		return "page_header"
	case RowSetPageFooter:
		return "page_footer"
	case RowSetGroup:
		return "group"
	default:
		return "unknown"
	}
}

// HAlign 是水平对齐方式。
type HAlign string

const (
	AlignLeft    HAlign = "left"
	AlignCenter  HAlign = "center"
	AlignRight   HAlign = "right"
	AlignJustify HAlign = "justify"
)

// VAlign 是垂直对齐方式。
type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignMiddle VAlign = "middle"
	VAlignBottom VAlign = "bottom"
)

// ShapeKind 是背景图形的种类。
type ShapeKind string

const (
	ShapeBox     ShapeKind = "box"
	ShapeEllipse ShapeKind = "ellipse"
)

// BarcodeKind 是条码符号体系。
type BarcodeKind string

const (
	BarcodeCode128 BarcodeKind = "code128"
	BarcodeCode39  BarcodeKind = "code39"
	BarcodeEAN13   BarcodeKind = "ean13"
)

// AggregateFunc 是聚合函数名。
type AggregateFunc string

const (
	AggSum   AggregateFunc = "sum"
	AggCount AggregateFunc = "count"
	AggMax   AggregateFunc = "max"
	AggMin   AggregateFunc = "min"
)

// Background 描述单元格背景与边框，Fill/Border 为空表示不绘制。
type Background struct {
	Shape  ShapeKind `json:"shape,omitempty"`
	Fill   *Color    `json:"fill,omitempty"`
	Border *Color    `json:"border,omitempty"`
}

// ImageSpec 描述单元格内的图片。
type ImageSpec struct {
	Path       string  `json:"path"`
	Height     float64 `json:"height,omitempty"` // 显式高度（pt），0 表示按宽度/剩余空间缩放
	ScaleToFit bool    `json:"scaleToFit,omitempty"`
	Buffer     float64 `json:"buffer,omitempty"` // 图片四周留白

	// 计算高度时缓存的尺寸与缩放比例
	width, height float64
	loaded        bool
	err           error
	scale         float64
}

// BarcodeSpec 描述条码单元格。Code 为空时使用记录值。
type BarcodeSpec struct {
	Kind      BarcodeKind `json:"kind"`
	Code      string      `json:"code,omitempty"`
	Scale     float64     `json:"scale,omitempty"`
	Zone      float64     `json:"zone,omitempty"`      // 条高度
	UpperZone float64     `json:"upperZone,omitempty"` // 条上方留白
	LowerZone float64     `json:"lowerZone,omitempty"` // 条下方留白（放置可读文本）
	FontSize  float64     `json:"fontSize,omitempty"`  // 可读文本字号，默认 7pt
	ShowText  bool        `json:"showText,omitempty"`
}

const (
	defaultBarcodeZone      = 25.0
	defaultBarcodeLowerZone = 7.0
)

// Height 返回条码区域高度（含上下留白，已乘缩放）。
func (b *BarcodeSpec) Height() float64 {
	zone := b.Zone
	if zone <= 0 {
		zone = defaultBarcodeZone
	}
	lower := b.LowerZone
	if b.ShowText {
		lower = max(lower, b.LegendSize())
	}
	return (zone + b.UpperZone + lower) * b.scale()
}

// LegendSize 返回可读文本的字号（未缩放）。下方留白至少为该字号，文本不会超出 Height。
func (b *BarcodeSpec) LegendSize() float64 {
	if b.FontSize > 0 {
		return b.FontSize
	}
	return defaultBarcodeLowerZone
}

func (b *BarcodeSpec) scale() float64 {
	if b.Scale <= 0 {
		return 1
	}
	return b.Scale
}

// BarcodeStyle 是传给画布的条码绘制参数。
type BarcodeStyle struct {
	Zone      float64
	UpperZone float64
	LowerZone float64
	Font      string
	FontSize  float64
	ShowText  bool
	Color     Color
}

// Cell 是行集中的一个矩形内容单元。
//
// 定义阶段填写导出属性；New 中的几何解析会写入 Geom，此后除聚合累计外只读。
type Cell struct {
	Name   string `json:"name,omitempty"`
	Text   string `json:"text,omitempty"`
	Header string `json:"header,omitempty"` // 数据单元格在字段表头中的标题，默认为 Name

	Width   string  `json:"width,omitempty"` // "25%" / "120pt" / "30mm"
	Percent float64 `json:"percent,omitempty"`
	X       string  `json:"x,omitempty"`
	Y       string  `json:"y,omitempty"`

	Font            string   `json:"font,omitempty"`
	FontSize        float64  `json:"fontSize,omitempty"`
	Color           *Color   `json:"color,omitempty"`
	Align           HAlign   `json:"align,omitempty"`
	VAlign          VAlign   `json:"valign,omitempty"`
	TextMarginLeft  float64  `json:"textMarginLeft,omitempty"`
	TextMarginRight float64  `json:"textMarginRight,omitempty"`
	Whitespace      *float64 `json:"whitespace,omitempty"`
	Wrap            bool     `json:"wrap,omitempty"`
	Filler          bool     `json:"filler,omitempty"`

	Background *Background  `json:"background,omitempty"`
	Image      *ImageSpec   `json:"image,omitempty"`
	Barcode    *BarcodeSpec `json:"barcode,omitempty"`

	Aggregate       AggregateFunc `json:"aggregate,omitempty"`
	AggregateSource string        `json:"aggregateSource,omitempty"`
	Format          *NumberFormat `json:"format,omitempty"`
	Type            string        `json:"type,omitempty"` // 旧写法，例如 currency
	PrintIfTrue     bool          `json:"printIfTrue,omitempty"`

	// Split 是挂在本单元格下方的子单元格，与父单元格共享水平几何。
	Split *Cell `json:"split,omitempty"`

	// Decorator 可实现 ColorResolver / BackgroundResolver / CustomRenderer 中的任意组合，
	// 只由绘制阶段调用。
	Decorator any `json:"-"`

	Geom Geometry `json:"geom"`

	column int
}

// Geometry 是几何解析后缓存在单元格上的派生值。
type Geometry struct {
	FullWidth       float64 `json:"fullWidth"`
	XBorder         float64 `json:"xBorder"`
	YOffset         float64 `json:"yOffset,omitempty"`
	TextX           float64 `json:"textX"`
	TextWidth       float64 `json:"textWidth"`
	Row             int     `json:"row"`
	RowHeight       float64 `json:"rowHeight"`
	ContentHeight   float64 `json:"contentHeight"`
	FontSize        float64 `json:"fontSize"`
	Whitespace      float64 `json:"whitespace"`
	Absolute        bool    `json:"absolute,omitempty"`
	SplitDepth      int     `json:"splitDepth,omitempty"`
	SplitOffsetUp   float64 `json:"splitOffsetUp,omitempty"`
	SplitOffsetDown float64 `json:"splitOffsetDown,omitempty"`
	SplitVAlign     VAlign  `json:"splitValign,omitempty"`
}

// LineHeight 返回单行文本占用的高度。
func (g Geometry) LineHeight() float64 { return g.FontSize + g.Whitespace }

// RowSet 是一组按顺序排列的单元格，代表一个逻辑打印单元。
type RowSet struct {
	Kind   RowSetKind     `json:"kind"`
	Cells  []*Cell        `json:"cells"`
	Buffer Buffer         `json:"buffer"`
	Geom   RowSetGeometry `json:"geom"`
}

// RowSetGeometry 记录行集解析后的行高。
// 不变式：RowHeights 之和等于 Height。
type RowSetGeometry struct {
	RowHeights    []float64 `json:"rowHeights"`
	Height        float64   `json:"height"`
	MaxCellHeight float64   `json:"maxCellHeight"`
}

// Box 是单元格在页面上的矩形区域。
type Box struct {
	X, Y, Width, Height float64
}

// ColorResolver 按记录值决定文本颜色。
type ColorResolver interface {
	ResolveColor(cell *Cell, value any) (Color, bool)
}

// BackgroundResolver 按记录值决定背景。
type BackgroundResolver interface {
	ResolveBackground(cell *Cell, value any) (*Background, bool)
}

// CustomRenderer 可以替换单元格显示的文本；返回错误时该单元格被跳过并产生警告。
type CustomRenderer interface {
	CustomRender(cell *Cell, value any, box Box) (string, error)
}
