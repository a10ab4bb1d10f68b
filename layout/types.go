package layout

// 该文件定义报表定义与布局结果共用的基础类型；所有长度单位均为 pt。

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	Black = Color{}
	White = Color{R: 255, G: 255, B: 255}
)

// Margin 记录四边页边距。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PageMetrics 描述页面尺寸与可打印区域，报表开始后不可变。
type PageMetrics struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
}

// PrintWidth 返回左右边距之间的宽度。
func (p PageMetrics) PrintWidth() float64 { return p.Width - p.Margin.Left - p.Margin.Right }

// PrintHeight 返回上下边距之间的高度。
func (p PageMetrics) PrintHeight() float64 { return p.Height - p.Margin.Top - p.Margin.Bottom }

// PrintRight 是可打印区域的右边界（页面坐标）。
func (p PageMetrics) PrintRight() float64 { return p.Width - p.Margin.Right }

// PrintBottom 是可打印区域的下边界（页面坐标，y 向下增长）。
func (p PageMetrics) PrintBottom() float64 { return p.Height - p.Margin.Bottom }

// Buffer 是行集上下方的留白。
type Buffer struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Total 返回上下留白之和。
func (b Buffer) Total() float64 { return b.Upper + b.Lower }

// Record 是一条数据记录，按位置对应数据行集中非 filler 的单元格。
type Record []any

// DocumentMeta 保存输出文档的元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Result 汇总一次报表生成的结果。
type Result struct {
	Pages    int       `json:"pages"`
	Records  int       `json:"records"`
	Warnings []Warning `json:"warnings,omitempty"`
}
