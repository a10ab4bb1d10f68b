package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var currencyFormat = &NumberFormat{DecimalPlaces: 2, DecimalFill: true, SeparateThousands: true, Currency: true}

func testReport(cells ...*Cell) *Report {
	return &Report{
		Page:           PageMetrics{Width: 400, Height: 300, Margin: Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}},
		Fields:         RowSet{Cells: cells},
		NoFieldHeaders: true,
	}
}

func newTestEngine(t *testing.T, rep *Report) (*Engine, *stubCanvas) {
	t.Helper()
	c := newStubCanvas()
	e, err := New(rep, Options{Canvas: c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, c
}

func salesReport() *Report {
	rep := testReport(
		&Cell{Name: "year", Width: "25%"},
		&Cell{Name: "item", Width: "50%"},
		&Cell{Name: "amount", Width: "25%", Aggregate: AggSum, Format: currencyFormat},
	)
	rep.NoFieldHeaders = false
	rep.Groups = []*Group{
		{Name: "all", Column: 3, Footer: &RowSet{Cells: []*Cell{
			{Width: "75%", Text: "Grand"},
			{Width: "25%", AggregateSource: "amount"},
		}}},
		{Name: "year", Column: 0,
			Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "Year ${value}"}}},
			Footer: &RowSet{Cells: []*Cell{
				{Width: "75%", Text: "Total ${value}"},
				{Width: "25%", AggregateSource: "amount"},
			}}},
	}
	return rep
}

var salesRecords = []Record{
	{"2024", "Paper", 100.0},
	{"2024", "Stapler", 50.0},
	{"2025", "Printer", 200.0},
}

func TestSalesScenario(t *testing.T) {
	e, c := newTestEngine(t, salesReport())
	res, err := e.Run(salesRecords)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 1 || res.Records != 3 || len(res.Warnings) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []string{
		"Year 2024", "year", "item", "amount",
		"2024", "Paper", "$100.00",
		"2024", "Stapler", "$50.00",
		"Total 2024", "$150.00",
		"Year 2025", "year", "item", "amount",
		"2025", "Printer", "$200.00",
		"Total 2025", "$200.00",
		"Grand", "$350.00",
	}
	if diff := cmp.Diff(want, c.texts(0)); diff != "" {
		t.Fatalf("drawn texts (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		group string
		want  float64
	}{{"year", 200}, {"all", 350}, {GrandTotalName, 350}} {
		got, err := e.Aggregate("amount", tc.group)
		if err != nil || got != tc.want {
			t.Fatalf("Aggregate(amount, %s) = %g, %v; want %g", tc.group, got, err, tc.want)
		}
	}
	if _, err := e.Aggregate("item", "year"); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
	if v, ok := e.rep.Groups[1].Value(); !ok || v != "2025" {
		t.Fatalf("tracked value = %q %v", v, ok)
	}
}

func TestProcessAfterFinish(t *testing.T) {
	e, _ := newTestEngine(t, testReport(&Cell{Name: "n", Width: "100%"}))
	res, err := e.Run(nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 1 || res.Records != 0 {
		t.Fatalf("empty stream result: %+v", res)
	}
	if err := e.Process(Record{"x"}); err == nil {
		t.Fatalf("expected error after Finish")
	}
	if _, err := e.Finish(); err == nil {
		t.Fatalf("expected error on second Finish")
	}
}

func pagedReport() *Report {
	rep := testReport(&Cell{Name: "n", Width: "100%"})
	rep.PageHeader = &RowSet{Cells: []*Cell{{Width: "100%", Text: "Header"}}}
	rep.PageFooter = &RowSet{Cells: []*Cell{{Width: "100%", Text: "Page ${page}"}}}
	return rep
}

func TestPageBreaksKeepContentAboveFooter(t *testing.T) {
	e, c := newTestEngine(t, pagedReport())
	if got := e.Context().FooterReserve; got != 15 {
		t.Fatalf("footer reserve = %g", got)
	}
	var recs []Record
	for i := 0; i < 40; i++ {
		recs = append(recs, Record{fmt.Sprint(i)})
	}
	res, err := e.Run(recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 3 || c.pages != 3 {
		t.Fatalf("expected 3 pages, got %d/%d", res.Pages, c.pages)
	}
	footerTop := e.rep.Page.PrintBottom() - 15
	perPage := map[int]int{}
	for _, op := range c.ops {
		switch {
		case op.text == "Header":
		case strings.HasPrefix(op.text, "Page "):
			if op.text != fmt.Sprintf("Page %d", op.page) {
				t.Fatalf("footer %q on page %d", op.text, op.page)
			}
			if op.y < footerTop {
				t.Fatalf("footer baseline %g above footer area %g", op.y, footerTop)
			}
		default:
			perPage[op.page]++
			if op.y > footerTop {
				t.Fatalf("record %s baseline %g overlaps footer area %g", op.text, op.y, footerTop)
			}
		}
	}
	if diff := cmp.Diff(map[int]int{1: 15, 2: 15, 3: 10}, perPage); diff != "" {
		t.Fatalf("records per page (-want +got):\n%s", diff)
	}
}

func TestAttachFooterFollowsContent(t *testing.T) {
	rep := testReport(&Cell{Name: "n", Width: "100%"})
	rep.PageFooter = &RowSet{Cells: []*Cell{{Width: "100%", Text: "F"}}}
	rep.AttachFooter = true
	e, c := newTestEngine(t, rep)
	if _, err := e.Run([]Record{{"x"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	last := c.ops[len(c.ops)-1]
	if last.text != "F" || last.y != 45.5 {
		t.Fatalf("attached footer at %+v", last)
	}

	rep = testReport(&Cell{Name: "n", Width: "100%"})
	rep.PageFooter = &RowSet{Cells: []*Cell{{Width: "100%", Text: "F"}}}
	rep.Footerless = true
	e, c = newTestEngine(t, rep)
	if _, err := e.Run([]Record{{"x"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"x"}, c.texts(0)); diff != "" {
		t.Fatalf("footerless report drew a footer (-want +got):\n%s", diff)
	}
}

func TestGroupPageBreak(t *testing.T) {
	rep := testReport(&Cell{Name: "g", Width: "50%"}, &Cell{Name: "v", Width: "50%"})
	rep.NoFieldHeaders = false
	rep.Groups = []*Group{{Name: "g", Column: 0, PageBreak: true,
		Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "G ${value}"}}}}}
	e, c := newTestEngine(t, rep)
	res, err := e.Run([]Record{{"a", 1.0}, {"a", 2.0}, {"b", 3.0}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	if diff := cmp.Diff([]string{"G b", "g", "v", "b", "3"}, c.texts(2)); diff != "" {
		t.Fatalf("page 2 (-want +got):\n%s", diff)
	}
}

func TestReprintHeaderOnOverflow(t *testing.T) {
	rep := testReport(&Cell{Name: "g", Width: "50%", Aggregate: AggCount}, &Cell{Name: "v", Width: "50%"})
	rep.Groups = []*Group{{Name: "g", Column: 0, ReprintHeader: true,
		Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "G ${value}"}}}}}
	e, c := newTestEngine(t, rep)
	var recs []Record
	for i := 0; i < 20; i++ {
		recs = append(recs, Record{"a", float64(i)})
	}
	res, err := e.Run(recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	for page := 1; page <= 2; page++ {
		texts := c.texts(page)
		if len(texts) == 0 || texts[0] != "G a" {
			t.Fatalf("page %d should start with the group header: %q", page, texts)
		}
		n := 0
		for _, s := range texts {
			if s == "G a" {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("page %d has %d group headers", page, n)
		}
	}
	// 重印表头不清零聚合
	if got, _ := e.Aggregate("g", GrandTotalName); got != 20 {
		t.Fatalf("count = %g", got)
	}
}

func TestGroupFooterMovesWholeToNextPage(t *testing.T) {
	rep := testReport(&Cell{Name: "g", Width: "100%"})
	rep.Groups = []*Group{{Name: "g", Column: 0, Footer: &RowSet{Cells: []*Cell{
		{Width: "100%", Text: "F1 ${value}"},
		{Width: "100%", Text: "F2"},
		{Width: "100%", Text: "F3"},
	}}}}
	e, c := newTestEngine(t, rep)
	var recs []Record
	for i := 0; i < 15; i++ {
		recs = append(recs, Record{"a"})
	}
	recs = append(recs, Record{"b"})
	res, err := e.Run(recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	if got := c.texts(1); len(got) != 15 || got[14] != "a" {
		t.Fatalf("page 1 should hold only the 15 records: %q", got)
	}
	want := []string{"F1 a", "F2", "F3", "b", "F1 b", "F2", "F3"}
	if diff := cmp.Diff(want, c.texts(2)); diff != "" {
		t.Fatalf("page 2 (-want +got):\n%s", diff)
	}
	var ys []float64
	for _, op := range c.ops {
		if op.page == 2 && op.kind == "text" && len(ys) < 3 {
			ys = append(ys, op.y)
		}
	}
	if diff := cmp.Diff([]float64{30.5, 45.5, 60.5}, ys); diff != "" {
		t.Fatalf("footer baselines (-want +got):\n%s", diff)
	}
}

func TestCompositeGroupKey(t *testing.T) {
	rep := testReport(&Cell{Name: "code", Width: "100%"})
	rep.Groups = []*Group{{Name: "g", Column: 0, Delimiter: "-",
		Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "G ${value}"}}}}}
	e, c := newTestEngine(t, rep)
	if _, err := e.Run([]Record{{"a-1"}, {"a-2"}, {"b-1"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"G a", "a-1", "a-2", "G b", "b-1"}, c.texts(0)); diff != "" {
		t.Fatalf("texts (-want +got):\n%s", diff)
	}

	rep = testReport(&Cell{Name: "code", Width: "100%"})
	rep.Groups = []*Group{{Name: "g", Column: 0, Delimiter: "-", DelimiterIndex: 1,
		Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "G[${value}]"}}}}}
	e, c = newTestEngine(t, rep)
	if _, err := e.Run([]Record{{"a-1"}, {"b-1"}, {"b-2"}, {"c"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	// 段序号越界时分组键为空串
	want := []string{"G[1]", "a-1", "b-1", "G[2]", "b-2", "G[]", "c"}
	if diff := cmp.Diff(want, c.texts(0)); diff != "" {
		t.Fatalf("texts with index 1 (-want +got):\n%s", diff)
	}
}

func TestFirstRecordNeverBreaksPage(t *testing.T) {
	rep := testReport(&Cell{Name: "g", Width: "100%"})
	rep.Groups = []*Group{{Name: "g", Column: 0, PageBreak: true,
		Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "G ${value}"}}}}}
	e, c := newTestEngine(t, rep)
	res, err := e.Run([]Record{{"a"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 1 || c.pages != 1 {
		t.Fatalf("first record opened %d pages", c.pages)
	}
	if diff := cmp.Diff([]string{"G a", "a"}, c.texts(1)); diff != "" {
		t.Fatalf("page 1 (-want +got):\n%s", diff)
	}
}

func TestForcedRedetectionRequeuesHeaders(t *testing.T) {
	rep := testReport(&Cell{Name: "o", Width: "50%", Aggregate: AggCount}, &Cell{Name: "i", Width: "50%"})
	rep.Groups = []*Group{
		{Name: "outer", Column: 0, ReprintHeader: true,
			Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "O ${value}"}}}},
		{Name: "inner", Column: 1,
			Header: &RowSet{Cells: []*Cell{{Width: "100%", Text: "I ${value}"}}},
			Footer: &RowSet{Cells: []*Cell{{Width: "100%", Text: "End ${value}"}}}},
	}
	e, c := newTestEngine(t, rep)
	for i := 0; i < 13; i++ {
		if err := e.Process(Record{"a", "x"}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if e.Context().Y != 245 || e.Context().Page != 1 {
		t.Fatalf("unexpected cursor before the break: y=%g page=%d", e.Context().Y, e.Context().Page)
	}
	// 页脚放得下，但页脚之后新表头加记录放不下，触发强制重新检测。
	if err := e.Process(Record{"a", "y"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(e.Context().Queue) != 0 || e.Context().Page != 2 {
		t.Fatalf("queue %v page %d after render", e.Context().Queue, e.Context().Page)
	}
	if texts := c.texts(1); texts[len(texts)-1] != "End x" {
		t.Fatalf("inner footer should close page 1: %q", texts)
	}
	if diff := cmp.Diff([]string{"O a", "I y", "a", "y"}, c.texts(2)); diff != "" {
		t.Fatalf("page 2 (-want +got):\n%s", diff)
	}
	for _, tc := range []struct {
		group string
		want  float64
	}{{"inner", 1}, {"outer", 14}, {GrandTotalName, 14}} {
		if got, _ := e.Aggregate("o", tc.group); got != tc.want {
			t.Fatalf("count in %s = %g, want %g", tc.group, got, tc.want)
		}
	}
	for _, g := range rep.Groups {
		if _, set := g.Value(); !set {
			t.Fatalf("group %s left unset after re-detection", g.Name)
		}
	}
}

func TestPrintIfTrueAndYNeeded(t *testing.T) {
	rep := testReport(
		&Cell{Name: "n", Width: "100%"},
		&Cell{Name: "flag", Width: "100%", PrintIfTrue: true},
	)
	e, c := newTestEngine(t, rep)
	shown, hidden := Record{"x", true}, Record{"y", false}
	if got := e.YNeeded(shown); got != 30 {
		t.Fatalf("YNeeded(shown) = %g", got)
	}
	y := e.Context().Y
	if a, b := e.YNeeded(hidden), e.YNeeded(hidden); a != 15 || a != b || e.Context().Y != y {
		t.Fatalf("YNeeded must be idempotent: %g %g (y %g -> %g)", a, b, y, e.Context().Y)
	}
	if _, err := e.Run([]Record{shown, hidden}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "true", "y"}, c.texts(0)); diff != "" {
		t.Fatalf("texts (-want +got):\n%s", diff)
	}

	// 全部行都被抑制时行集高度为 0
	only := testReport(&Cell{Name: "flag", Width: "100%", PrintIfTrue: true})
	e, _ = newTestEngine(t, only)
	if got := e.YNeeded(Record{0}); got != 0 {
		t.Fatalf("suppressed row set height = %g", got)
	}
}

func TestYNeededIncludesQueuedHeaders(t *testing.T) {
	e, _ := newTestEngine(t, salesReport())
	if got := e.YNeeded(salesRecords[0]); got != 15 {
		t.Fatalf("without queued headers = %g", got)
	}
	e.pc.Queue = []QueuedHeader{{Group: e.rep.Groups[1], Value: "2024"}}
	if got := e.YNeeded(salesRecords[0]); got != 45 {
		t.Fatalf("with queued header and field headers = %g", got)
	}
}

type signColor struct{}

func (signColor) ResolveColor(_ *Cell, v any) (Color, bool) {
	if f, ok := toFloat(v); ok && f < 0 {
		return Color{R: 255}, true
	}
	return Color{}, false
}

type ellipseBackground struct{}

func (ellipseBackground) ResolveBackground(_ *Cell, _ any) (*Background, bool) {
	return &Background{Shape: ShapeEllipse, Fill: &Color{G: 255}}, true
}

type stars struct{}

func (stars) CustomRender(_ *Cell, v any, _ Box) (string, error) {
	return "**" + FormatValue(v, nil) + "**", nil
}

type failing struct{}

func (failing) CustomRender(_ *Cell, _ any, _ Box) (string, error) {
	return "", errors.New("boom")
}

type inert struct{}

func TestDecorators(t *testing.T) {
	rep := testReport(
		&Cell{Name: "a", Width: "20%", Decorator: signColor{}},
		&Cell{Name: "b", Width: "20%", Decorator: ellipseBackground{}},
		&Cell{Name: "c", Width: "20%", Decorator: stars{}},
		&Cell{Name: "d", Width: "20%", Decorator: inert{}},
		&Cell{Name: "e", Width: "20%", Decorator: failing{}},
	)
	e, c := newTestEngine(t, rep)
	res, err := e.Run([]Record{{-1.0, 1.0, 5.0, "x", "y"}, {2.0, 1.0, 6.0, "x", "y"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"-1", "1", "**5**", "x", "2", "1", "**6**", "x"}, c.texts(0)); diff != "" {
		t.Fatalf("texts (-want +got):\n%s", diff)
	}
	for _, op := range c.ops {
		if op.kind != "text" {
			continue
		}
		red := op.color == Color{R: 255}
		if red != (op.text == "-1") {
			t.Fatalf("unexpected color %+v for %q", op.color, op.text)
		}
	}
	if n := c.count(string(ShapeEllipse)); n != 2 {
		t.Fatalf("expected 2 ellipse backgrounds, got %d", n)
	}
	var cells []string
	for _, w := range res.Warnings {
		cells = append(cells, w.Cell)
	}
	if diff := cmp.Diff([]string{"d", "e", "e"}, cells); diff != "" {
		t.Fatalf("warnings (-want +got):\n%s", diff)
	}
}

func TestBackgroundAndBorder(t *testing.T) {
	rep := testReport(&Cell{Name: "n", Width: "100pt",
		Background: &Background{Fill: &Color{R: 200, G: 200, B: 200}, Border: &Color{}}})
	e, c := newTestEngine(t, rep)
	if _, err := e.Run([]Record{{"x"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if c.count(string(ShapeBox)) != 1 || c.count("line") != 4 {
		t.Fatalf("expected one fill and four border lines: %+v", c.ops)
	}
	box := c.ops[0]
	if box.x != 20 || box.y != 20 || box.w != 100 || box.h != 15 {
		t.Fatalf("background box %+v", box)
	}
}

func TestImageAndBarcodeCells(t *testing.T) {
	rep := testReport(
		&Cell{Name: "logo", Width: "25%", Image: &ImageSpec{Path: "logo.png", ScaleToFit: true}},
		&Cell{Name: "code", Width: "25%", Barcode: &BarcodeSpec{Kind: "Code128"}},
		&Cell{Name: "broken", Width: "25%", Image: &ImageSpec{Path: "missing.png"}},
	)
	c := newStubCanvas()
	c.images["logo.png"] = [2]float64{100, 50}
	e, err := New(rep, Options{Canvas: c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run([]Record{{nil, "ABC", nil}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := rep.Fields.Cells[0].Image.scale; got != 0.9 {
		t.Fatalf("image scale = %g", got)
	}
	var img, bar *stubOp
	for i := range c.ops {
		switch c.ops[i].kind {
		case "image":
			img = &c.ops[i]
		case "barcode":
			bar = &c.ops[i]
		}
	}
	if img == nil || img.w != 90 || img.h != 45 || img.x != 20 || img.y != 20 {
		t.Fatalf("image op %+v", img)
	}
	if bar == nil || bar.text != "ABC" || bar.x != 115 || bar.y != 20 {
		t.Fatalf("barcode op %+v", bar)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Cell != "broken" {
		t.Fatalf("expected one warning for the missing image: %+v", res.Warnings)
	}
	if got := e.Context().Y; got != 65 {
		t.Fatalf("row should be as tall as the image, y = %g", got)
	}
}

func TestBarcodeLegendFitsReservedHeight(t *testing.T) {
	cases := []struct {
		spec     BarcodeSpec
		height   float64
		fontSize float64
	}{
		{BarcodeSpec{Kind: BarcodeCode128, ShowText: true}, 32, 7},
		{BarcodeSpec{Kind: BarcodeCode128, ShowText: true, FontSize: 10}, 35, 10},
		{BarcodeSpec{Kind: BarcodeCode128, ShowText: true, FontSize: 10, LowerZone: 12}, 37, 10},
		{BarcodeSpec{Kind: BarcodeCode128, ShowText: true, Scale: 2}, 64, 7},
		{BarcodeSpec{Kind: BarcodeCode128}, 25, 7},
	}
	for _, tc := range cases {
		spec := tc.spec
		if got := spec.Height(); got != tc.height {
			t.Fatalf("Height(%+v) = %g, want %g", spec, got, tc.height)
		}
		rep := testReport(&Cell{Name: "code", Width: "100%", Barcode: &spec})
		e, c := newTestEngine(t, rep)
		if _, err := e.Run([]Record{{"Q1"}}); err != nil {
			t.Fatalf("run: %v", err)
		}
		if c.count("barcode") != 1 {
			t.Fatalf("expected one barcode op, got %d", c.count("barcode"))
		}
		for _, op := range c.ops {
			if op.kind == "barcode" && op.size != tc.fontSize {
				t.Fatalf("legend size %g, want %g (cell font is 10)", op.size, tc.fontSize)
			}
		}
		if got := e.Context().Y; got != 20+tc.height {
			t.Fatalf("row height %g, want %g", got-20, tc.height)
		}
	}
}

func TestNewConfigErrors(t *testing.T) {
	cases := map[string]func(*Report){
		"duplicate group": func(r *Report) {
			r.Groups = []*Group{{Name: "g"}, {Name: "g"}}
		},
		"column out of range": func(r *Report) {
			r.Groups = []*Group{{Name: "g", Column: 2}}
		},
		"unnamed group": func(r *Report) {
			r.Groups = []*Group{{Column: 0}}
		},
		"bad aggregate": func(r *Report) {
			r.Fields.Cells[0].Aggregate = "avg"
		},
		"empty fields": func(r *Report) {
			r.Fields.Cells = nil
		},
		"margins": func(r *Report) {
			r.Page.Margin.Left = 400
		},
		"grand total inside group": func(r *Report) {
			r.Groups = []*Group{{Name: "g", Column: 0}, {Name: "all", Column: 1}}
		},
	}
	for name, mutate := range cases {
		rep := testReport(&Cell{Name: "n", Width: "100%"})
		mutate(rep)
		if _, err := New(rep, Options{Canvas: newStubCanvas()}); !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: expected ErrConfig, got %v", name, err)
		}
	}
	if _, err := New(testReport(&Cell{Name: "n", Width: "100%"}), Options{}); err == nil {
		t.Fatalf("expected error without canvas")
	}
}

func TestAggregateFunctions(t *testing.T) {
	a := newAggregates([]*Group{{Name: "g"}})
	a.Init("max", "g")
	for _, v := range []any{"x", -3.0, -1.0, nil, -2.0} {
		a.Update("max", AggMax, v)
		a.Update("min", AggMin, v)
		a.Update("count", AggCount, v)
		a.Update("sum", AggSum, v)
	}
	check := func(field string, want float64) {
		t.Helper()
		got, ok := a.Value(field, "g")
		if !ok || got != want {
			t.Fatalf("%s = %g %v, want %g", field, got, ok, want)
		}
	}
	check("max", 0)
	check("min", -3)
	check("count", 5)
	check("sum", -6)
	a.Reset("g")
	check("sum", 0)
	if got, _ := a.Value("sum", GrandTotalName); got != -6 {
		t.Fatalf("grand total reset with group: %g", got)
	}
	if _, ok := a.Value("nope", "g"); ok {
		t.Fatalf("unknown field should not have a value")
	}
}

func TestMinMaxStartFromZero(t *testing.T) {
	cases := []struct {
		fn     AggregateFunc
		values []float64
		want   float64
	}{
		{AggMin, []float64{5, 3, 7}, 0},
		{AggMax, []float64{-5, -3}, 0},
		{AggMax, []float64{2, 9, 4}, 9},
		{AggMin, []float64{-2, -8, 1}, -8},
	}
	for _, tc := range cases {
		a := newAggregates([]*Group{{Name: "g"}})
		a.Init("v", "g")
		for _, v := range tc.values {
			a.Update("v", tc.fn, v)
		}
		for _, g := range []string{"g", GrandTotalName} {
			if got, _ := a.Value("v", g); got != tc.want {
				t.Fatalf("%s over %v in %s = %g, want %g", tc.fn, tc.values, g, got, tc.want)
			}
		}
		a.Update("v", tc.fn, 100.0)
		a.Update("v", tc.fn, -100.0)
		a.Reset("g")
		if got, _ := a.Value("v", "g"); got != 0 {
			t.Fatalf("%s after reset = %g, want 0", tc.fn, got)
		}
	}
}

func TestSnapshotAndDebugJSON(t *testing.T) {
	e, _ := newTestEngine(t, salesReport())
	if e.Snapshot().Result != nil {
		t.Fatalf("result should be absent before Finish")
	}
	if _, err := e.Run(salesRecords); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := e.Snapshot()
	if s.Result == nil || s.Result.Pages != 1 || len(s.Groups) != 2 {
		t.Fatalf("snapshot %+v", s)
	}
	if s.Groups[1].Value == nil || *s.Groups[1].Value != "2025" {
		t.Fatalf("group value missing from snapshot")
	}
	path := filepath.Join(t.TempDir(), "geometry.json")
	if err := WriteDebugJSON(s, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"page", "fields", "fieldHeaders", "groups", "result"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("debug JSON is missing %q", key)
		}
	}
}

func TestWarningJSON(t *testing.T) {
	data, err := json.Marshal(Warning{Page: 2, Cell: "amount", Err: errors.New("bad")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"page":2,"cell":"amount","message":"bad"}` {
		t.Fatalf("unexpected JSON %s", data)
	}
}
