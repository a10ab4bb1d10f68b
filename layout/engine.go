package layout

import (
	"fmt"

	"github.com/rs/zerolog"
)

const defaultFontSize = 10.0

// Report 是一份报表定义：页面、默认字体、各行集与分组。
type Report struct {
	Meta     DocumentMeta `json:"meta"`
	Page     PageMetrics  `json:"page"`
	Font     string       `json:"font"`
	FontSize float64      `json:"fontSize"`

	Fields RowSet `json:"fields"`
	// Headings 是字段表头共享的默认属性（字体、颜色、背景、对齐）。
	Headings          *Cell  `json:"headings,omitempty"`
	FieldHeaderBuffer Buffer `json:"fieldHeaderBuffer"`

	PageHeader *RowSet  `json:"pageHeader,omitempty"`
	PageFooter *RowSet  `json:"pageFooter,omitempty"`
	Groups     []*Group `json:"groups,omitempty"`

	NoFieldHeaders bool `json:"noFieldHeaders,omitempty"`
	Footerless     bool `json:"footerless,omitempty"`
	AttachFooter   bool `json:"attachFooter,omitempty"`
}

// PaginationContext 是分页控制器的全部可变状态，显式传入每一步操作。
type PaginationContext struct {
	Y             float64        // 当前纵向位置（页面坐标，向下增长）
	FooterReserve float64        // 为页脚预留的高度
	Queue         []QueuedHeader // 待输出的分组表头（外层在前）
	Page          int
	Rendered      int // 已输出的数据行数
	// FieldHeadersPending 表示下一条数据行之前需要输出字段表头。
	FieldHeadersPending bool
	last                Record
}

// Engine 驱动记录流的分组、分页与渲染。Engine 不可重入，不能在多个 goroutine 间共享。
type Engine struct {
	rep          *Report
	canvas       Canvas
	log          zerolog.Logger
	resolver     *Resolver
	fieldHeaders *RowSet
	aggs         *Aggregates
	pc           *PaginationContext
	fieldCount   int
	grand        map[*Group]bool
	warnings     []Warning
	warned       map[*Cell]bool
	started      bool
	finished     bool
}

// New 规范化并解析报表几何。配置错误在此返回，渲染尚未开始。
func New(rep *Report, opts Options) (*Engine, error) {
	if rep == nil {
		return nil, configErr("报表定义为空")
	}
	if opts.Canvas == nil {
		return nil, fmt.Errorf("layout: 缺少渲染画布 Canvas")
	}
	if rep.Page.Width <= 0 || rep.Page.Height <= 0 {
		return nil, configErr("页面尺寸无效: %gx%g", rep.Page.Width, rep.Page.Height)
	}
	if rep.Page.PrintWidth() <= 0 || rep.Page.PrintHeight() <= 0 {
		return nil, configErr("页边距超出页面")
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	e := &Engine{
		rep:      rep,
		canvas:   opts.Canvas,
		log:      logger,
		resolver: NewResolver(rep.Page, rep.Font, rep.FontSize),
		grand:    map[*Group]bool{},
		warned:   map[*Cell]bool{},
	}
	if err := e.resolve(); err != nil {
		return nil, err
	}
	e.pc = &PaginationContext{}
	if !rep.Footerless {
		e.pc.FooterReserve = staticSetHeight(rep.PageFooter)
	}
	return e, nil
}

func (e *Engine) resolve() error {
	rep := e.rep
	rep.Fields.Kind = RowSetData
	normalizeCells(rep.Fields.Cells)
	if len(rep.Fields.Cells) == 0 {
		return configErr("数据行集为空")
	}
	if _, err := e.resolver.Resolve(&rep.Fields, ""); err != nil {
		return err
	}
	for _, c := range rep.Fields.Cells {
		if !c.Filler {
			e.fieldCount++
		}
	}

	if rep.Headings != nil {
		normalizeCell(rep.Headings)
	}
	e.fieldHeaders = &RowSet{
		Kind:   RowSetFieldHeaders,
		Cells:  fieldHeaderCells(rep.Fields.Cells, rep.Headings),
		Buffer: rep.FieldHeaderBuffer,
	}
	if _, err := e.resolver.Resolve(e.fieldHeaders, ""); err != nil {
		return err
	}

	for _, set := range []*RowSet{rep.PageHeader, rep.PageFooter} {
		if set == nil {
			continue
		}
		normalizeCells(set.Cells)
	}
	if rep.PageHeader != nil {
		rep.PageHeader.Kind = RowSetPageHeader
		if _, err := e.resolver.Resolve(rep.PageHeader, ""); err != nil {
			return err
		}
	}
	if rep.PageFooter != nil {
		rep.PageFooter.Kind = RowSetPageFooter
		if _, err := e.resolver.Resolve(rep.PageFooter, ""); err != nil {
			return err
		}
	}

	e.aggs = newAggregates(rep.Groups)
	names := map[string]bool{}
	inner := ""
	for _, g := range rep.Groups {
		if g == nil || g.Name == "" {
			return configErr("分组缺少名称")
		}
		if names[g.Name] {
			return configErr("分组名称重复: %s", g.Name)
		}
		names[g.Name] = true
		if g.Column < 0 || g.Column > e.fieldCount {
			return configErr("分组 %s 的列序号 %d 超出范围 [0,%d]", g.Name, g.Column, e.fieldCount)
		}
		// 分组由外向内排列，总计分组必须在最外层，否则它的页脚会先于内层页脚输出。
		if g.Column == e.fieldCount {
			if inner != "" {
				return configErr("总计分组 %s 必须排在分组 %s 之前", g.Name, inner)
			}
			e.grand[g] = true
		} else if inner == "" {
			inner = g.Name
		}
		g.resetValue()
		for _, set := range []*RowSet{g.Header, g.Footer} {
			if set == nil {
				continue
			}
			set.Kind = RowSetGroup
			normalizeCells(set.Cells)
			if _, err := e.resolver.Resolve(set, g.Name); err != nil {
				return err
			}
			for _, c := range set.Cells {
				for node := c; node != nil; node = node.Split {
					if node.AggregateSource != "" {
						e.aggs.Init(node.AggregateSource, g.Name)
					}
				}
			}
		}
	}
	for _, c := range rep.Fields.Cells {
		if c.Aggregate == "" {
			continue
		}
		switch c.Aggregate {
		case AggSum, AggCount, AggMax, AggMin:
		default:
			return configErr("单元格 %s 的聚合函数 %q 不受支持", c.Name, c.Aggregate)
		}
		e.aggs.Init(c.Name, GrandTotalName)
	}
	return nil
}

// staticSetHeight 返回行集解析后的静态高度（含留白）。
func staticSetHeight(set *RowSet) float64 {
	if set == nil || len(set.Cells) == 0 {
		return 0
	}
	return set.Geom.Height + set.Buffer.Total()
}

// field 按名称查找数据单元格。
func (e *Engine) field(name string) *Cell {
	col, ok := e.resolver.Column(name)
	if !ok {
		return nil
	}
	for _, c := range e.rep.Fields.Cells {
		if c.column == col && !c.Filler {
			return c
		}
	}
	return nil
}

// Context 返回分页上下文（只读使用）。
func (e *Engine) Context() *PaginationContext { return e.pc }

// FieldHeaders 返回由数据单元格派生的字段表头行集。
func (e *Engine) FieldHeaders() *RowSet { return e.fieldHeaders }

// Run 处理全部记录并收尾。记录需由调用方预先按分组列排序。
func (e *Engine) Run(records []Record) (*Result, error) {
	for _, rec := range records {
		if err := e.Process(rec); err != nil {
			return nil, err
		}
	}
	return e.Finish()
}

// Process 处理一条记录：分组边界、分页判断与渲染。
func (e *Engine) Process(rec Record) error {
	if e.finished {
		return fmt.Errorf("layout: 报表已结束，不能继续写入记录")
	}
	if !e.started {
		if err := e.start(e.pc); err != nil {
			return err
		}
	}
	return e.process(e.pc, rec)
}

// Finish 输出所有仍然打开的分组页脚与最后一页页脚。
func (e *Engine) Finish() (*Result, error) {
	if e.finished {
		return nil, fmt.Errorf("layout: 报表已结束")
	}
	pc := e.pc
	if !e.started {
		if err := e.start(pc); err != nil {
			return nil, err
		}
	}
	if pc.Rendered > 0 {
		groups := e.rep.Groups
		for i := len(groups) - 1; i >= 0; i-- {
			g := groups[i]
			if _, set := g.Value(); set && g.Footer != nil {
				e.renderGroupFooter(pc, g)
			}
		}
	}
	e.closePage(pc)
	e.finished = true
	return &Result{Pages: pc.Page, Records: pc.Rendered, Warnings: e.warnings}, nil
}

// Aggregate 查询 (单元格, 分组) 的当前聚合值。
func (e *Engine) Aggregate(cell, group string) (float64, error) {
	v, ok := e.aggs.Value(cell, group)
	if !ok {
		return 0, fmt.Errorf("%w: 没有单元格 %s 在分组 %s 上的聚合值", ErrLookup, cell, group)
	}
	return v, nil
}

// YNeeded 返回在当前状态下渲染 rec 所需的高度，不修改分页状态。
func (e *Engine) YNeeded(rec Record) float64 { return e.yNeeded(e.pc, rec) }

// Warnings 返回目前累计的警告。
func (e *Engine) Warnings() []Warning { return e.warnings }

func (e *Engine) start(pc *PaginationContext) error {
	e.started = true
	return e.newPage(pc)
}

func (e *Engine) process(pc *PaginationContext, rec Record) error {
	first := pc.Rendered == 0
	pageBreak := e.detectGroups(pc, rec, false, first)
	if !pageBreak {
		need := e.yNeeded(pc, rec)
		if pc.Y+need+pc.FooterReserve > e.rep.Page.PrintBottom() {
			pageBreak = true
			// 表头是否重印取决于是否分页，因此带着已知的分页重新检测分组边界。
			for _, q := range pc.Queue {
				q.Group.resetValue()
			}
			pc.Queue = nil
			e.detectGroups(pc, rec, true, first)
		}
	}
	if pageBreak && pc.Rendered > 0 {
		if err := e.newPage(pc); err != nil {
			return err
		}
	}
	e.renderData(pc, rec)
	return nil
}

// detectGroups 由内向外检查分组边界：输出旧分组页脚、排队新表头、清零聚合并更新分组值。
// forced 为 true 时是分页后的重新检测：此时分页已确定，且不再输出页脚。
func (e *Engine) detectGroups(pc *PaginationContext, rec Record, forced, first bool) bool {
	pageBreak := forced
	groups := e.rep.Groups
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		v := g.key(rec, e.grand[g])
		changed := !g.value.set || g.value.v != v
		if !changed && !(pageBreak && g.ReprintHeader) {
			continue
		}
		if !first && !forced && g.Footer != nil && g.value.set {
			e.renderGroupFooter(pc, g)
		}
		if g.Header != nil {
			pc.Queue = append([]QueuedHeader{{Group: g, Value: v}}, pc.Queue...)
		}
		if changed {
			e.aggs.Reset(g.Name)
		}
		g.value = trackedValue{set: true, v: v}
		if g.PageBreak {
			pageBreak = true
		}
	}
	return pageBreak
}

// newPage 结束当前页并开启新页：页眉、需要重印的分组表头、字段表头。
func (e *Engine) newPage(pc *PaginationContext) error {
	if pc.Page > 0 {
		e.closePage(pc)
	}
	if err := e.canvas.NewPage(e.rep.Page.Width, e.rep.Page.Height); err != nil {
		return fmt.Errorf("创建第 %d 页失败: %w", pc.Page+1, err)
	}
	pc.Page++
	pc.Y = e.rep.Page.Margin.Top
	e.log.Debug().Int("page", pc.Page).Int("queued", len(pc.Queue)).Msg("新页")

	if e.rep.PageHeader != nil {
		e.renderRowSet(pc, e.rep.PageHeader, scope{rec: pc.last})
	}
	if len(pc.Queue) == 0 {
		for _, g := range e.rep.Groups {
			if v, set := g.Value(); set && g.ReprintHeader && g.Header != nil {
				e.renderRowSet(pc, g.Header, scope{rec: pc.last, group: g, value: v})
			}
		}
	}
	pc.FieldHeadersPending = true
	if len(pc.Queue) == 0 && pc.Rendered > 0 {
		e.renderFieldHeaders(pc, pc.last)
	}
	return nil
}

// closePage 输出当前页的页脚。
func (e *Engine) closePage(pc *PaginationContext) {
	if e.rep.Footerless || e.rep.PageFooter == nil || pc.Page == 0 {
		return
	}
	if !e.rep.AttachFooter {
		pc.Y = e.rep.Page.PrintBottom() - pc.FooterReserve
	}
	e.renderRowSet(pc, e.rep.PageFooter, scope{rec: pc.last})
}

// renderGroupFooter 输出分组页脚；页脚能放进一整页但放不进剩余空间时先分页。
func (e *Engine) renderGroupFooter(pc *PaginationContext, g *Group) {
	v, _ := g.Value()
	sc := scope{rec: pc.last, group: g, value: v}
	need := e.rowSetHeight(pc, g.Footer, sc)
	full := e.rep.Page.PrintHeight() - staticSetHeight(e.rep.PageHeader)
	if need+pc.FooterReserve <= full && pc.Y+need+pc.FooterReserve > e.rep.Page.PrintBottom() {
		if err := e.newPage(pc); err != nil {
			e.warn(pc, nil, err)
			return
		}
	}
	e.renderRowSet(pc, g.Footer, sc)
}

func (e *Engine) renderFieldHeaders(pc *PaginationContext, rec Record) {
	pc.FieldHeadersPending = false
	if e.rep.NoFieldHeaders {
		return
	}
	e.renderRowSet(pc, e.fieldHeaders, scope{rec: rec})
}

// renderData 先按 FIFO 顺序输出排队的分组表头，必要时输出字段表头，再输出记录本身并累计聚合。
func (e *Engine) renderData(pc *PaginationContext, rec Record) {
	if len(pc.Queue) > 0 {
		queue := pc.Queue
		pc.Queue = nil
		for _, q := range queue {
			e.renderRowSet(pc, q.Group.Header, scope{rec: rec, group: q.Group, value: q.Value})
		}
		pc.FieldHeadersPending = true
	}
	if pc.FieldHeadersPending {
		e.renderFieldHeaders(pc, rec)
	}
	e.renderRowSet(pc, &e.rep.Fields, scope{rec: rec})
	for _, c := range e.rep.Fields.Cells {
		if c.Aggregate == "" || c.column < 0 {
			continue
		}
		var v any
		if c.column < len(rec) {
			v = rec[c.column]
		}
		e.aggs.Update(c.Name, c.Aggregate, v)
	}
	pc.Rendered++
	pc.last = rec
}

func (e *Engine) warn(pc *PaginationContext, c *Cell, err error) {
	w := Warning{Page: pc.Page, Err: err}
	if c != nil {
		w.Cell = c.Name
	}
	e.warnings = append(e.warnings, w)
	e.log.Warn().Int("page", w.Page).Str("cell", w.Cell).Err(err).Msg("渲染警告")
}
