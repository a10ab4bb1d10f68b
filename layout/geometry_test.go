package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testPage() PageMetrics {
	return PageMetrics{Width: 200, Height: 300, Margin: Margin{Top: 10, Right: 10, Bottom: 10, Left: 10}}
}

func TestResolveRowsFold(t *testing.T) {
	r := NewResolver(testPage(), "Body", 0)
	set := &RowSet{Kind: RowSetData, Cells: []*Cell{
		{Name: "a", Width: "50%"},
		{Name: "b", Width: "50%"},
		{Name: "c", Width: "10%"},
		{Name: "d", Width: "90pt"},
	}}
	if _, err := r.Resolve(set, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var rows []int
	var xs []float64
	for _, c := range set.Cells {
		rows = append(rows, c.Geom.Row)
		xs = append(xs, c.Geom.XBorder)
	}
	if diff := cmp.Diff([]int{0, 0, 1, 1}, rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10, 100, 10, 28}, xs); diff != "" {
		t.Fatalf("x borders (-want +got):\n%s", diff)
	}
	// 默认字号 10，留白 5，单行高 15
	if diff := cmp.Diff([]float64{15, 15}, set.Geom.RowHeights); diff != "" {
		t.Fatalf("row heights (-want +got):\n%s", diff)
	}
	if set.Geom.Height != 30 {
		t.Fatalf("height = %g", set.Geom.Height)
	}
	a := set.Cells[0]
	if a.Geom.TextX != 15 || a.Geom.TextWidth != 80 {
		t.Fatalf("text area = %g/%g", a.Geom.TextX, a.Geom.TextWidth)
	}
	if a.Align != AlignLeft || a.VAlign != VAlignBottom {
		t.Fatalf("data defaults = %s/%s", a.Align, a.VAlign)
	}
	if col, ok := r.Column("d"); !ok || col != 3 {
		t.Fatalf("column of d = %d %v", col, ok)
	}
}

func TestResolveFullWidthSingleRow(t *testing.T) {
	r := NewResolver(testPage(), "", 12)
	set := &RowSet{Kind: RowSetGroup, Cells: []*Cell{{Width: "100%", Text: "x"}}}
	if _, err := r.Resolve(set, "g"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Cells[0].Geom.Row != 0 || set.Cells[0].Geom.FullWidth != 180 {
		t.Fatalf("unexpected geometry %+v", set.Cells[0].Geom)
	}
}

func TestResolveAbsoluteAndWhitespace(t *testing.T) {
	r := NewResolver(testPage(), "", 10)
	ws := 2.0
	set := &RowSet{Kind: RowSetPageHeader, Cells: []*Cell{
		{Width: "50pt", X: "120pt", Y: "4pt", Whitespace: &ws, TextMarginLeft: 3},
		{Width: "100%"},
	}}
	if _, err := r.Resolve(set, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c := set.Cells[0]
	if !c.Geom.Absolute || c.Geom.XBorder != 120 || c.Geom.YOffset != 4 {
		t.Fatalf("absolute cell geometry %+v", c.Geom)
	}
	if c.Geom.TextX != 125 || c.Geom.TextWidth != 43 || c.Geom.LineHeight() != 12 {
		t.Fatalf("text geometry %+v", c.Geom)
	}
	// 绝对定位不占用流式位置
	if set.Cells[1].Geom.Row != 0 || set.Cells[1].Geom.XBorder != 10 {
		t.Fatalf("flow cell geometry %+v", set.Cells[1].Geom)
	}
}

func TestResolveErrors(t *testing.T) {
	cases := map[string][]*Cell{
		"missing width": {{Name: "a"}},
		"duplicate":     {{Name: "a", Width: "10%"}, {Name: "a", Width: "10%"}},
		"missing name":  {{Width: "10%"}},
		"bad width":     {{Name: "a", Width: "12px"}},
		"nil cell":      {nil},
	}
	for name, cells := range cases {
		r := NewResolver(testPage(), "", 10)
		_, err := r.Resolve(&RowSet{Kind: RowSetData, Cells: cells}, "")
		if !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: expected ErrConfig, got %v", name, err)
		}
	}
}

func TestResolveFillerHasNoColumn(t *testing.T) {
	r := NewResolver(testPage(), "", 10)
	set := &RowSet{Kind: RowSetData, Cells: []*Cell{
		{Width: "10%", Filler: true},
		{Name: "a", Width: "10%"},
	}}
	if _, err := r.Resolve(set, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Cells[0].column != -1 || set.Cells[1].column != 0 {
		t.Fatalf("columns = %d, %d", set.Cells[0].column, set.Cells[1].column)
	}
}

func TestResolveSplitOffsets(t *testing.T) {
	r := NewResolver(testPage(), "", 10)
	c := &Cell{Width: "50%", Align: AlignRight, Text: "top",
		Split: &Cell{FontSize: 20, Text: "mid",
			Split: &Cell{Text: "bottom", Align: AlignLeft, AggregateSource: "amount"}}}
	set := &RowSet{Kind: RowSetGroup, Cells: []*Cell{c}}
	if _, err := r.Resolve(set, "year"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mid, bottom := c.Split, c.Split.Split
	if c.Geom.SplitOffsetDown != 45 || mid.Geom.SplitOffsetDown != 15 || bottom.Geom.SplitOffsetDown != 0 {
		t.Fatalf("offsets down: %g %g %g", c.Geom.SplitOffsetDown, mid.Geom.SplitOffsetDown, bottom.Geom.SplitOffsetDown)
	}
	if mid.Geom.SplitOffsetUp != 15 || bottom.Geom.SplitOffsetUp != 45 {
		t.Fatalf("offsets up: %g %g", mid.Geom.SplitOffsetUp, bottom.Geom.SplitOffsetUp)
	}
	if set.Geom.Height != 60 {
		t.Fatalf("chain height = %g", set.Geom.Height)
	}
	if bottom.Geom.FullWidth != 90 || bottom.Align != AlignRight || bottom.Geom.SplitDepth != 2 {
		t.Fatalf("child did not inherit geometry: %+v align=%s", bottom.Geom, bottom.Align)
	}
	if bottom.Text != "year" {
		t.Fatalf("aggregate cell text should be the group name, got %q", bottom.Text)
	}
}

func TestFieldHeaderCells(t *testing.T) {
	ws := 1.0
	fields := []*Cell{{Name: "year", Width: "20%"}, {Name: "amount", Header: "Amount", Width: "30%"}, {Width: "5%", Filler: true}}
	headings := &Cell{Font: "Bold", FontSize: 8, Whitespace: &ws}
	cells := fieldHeaderCells(fields, headings)
	if len(cells) != 3 || cells[0].Text != "year" || cells[1].Text != "Amount" || cells[2].Text != "" {
		t.Fatalf("unexpected header cells: %+v", cells)
	}
	r := NewResolver(testPage(), "", 10)
	set := &RowSet{Kind: RowSetFieldHeaders, Cells: cells}
	if _, err := r.Resolve(set, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, c := range cells {
		if c.Align != AlignCenter || c.VAlign != VAlignMiddle || !c.Wrap || c.Font != "Bold" {
			t.Fatalf("header defaults not applied: %+v", c)
		}
		if math.Abs(c.Geom.LineHeight()-9) > 1e-9 {
			t.Fatalf("line height = %g", c.Geom.LineHeight())
		}
	}
}

func TestNormalizeLegacyAttributes(t *testing.T) {
	c := &Cell{Percent: 25, Type: "Currency", Align: "centre", VAlign: "m",
		Background: &Background{Shape: "circle"}, Barcode: &BarcodeSpec{Kind: "CODE_128"}}
	normalizeCell(c)
	if c.Width != "25%" || c.Format == nil || !c.Format.Currency || !c.Format.DecimalFill {
		t.Fatalf("legacy width/type not translated: %+v", c)
	}
	if c.Align != AlignCenter || c.VAlign != VAlignMiddle {
		t.Fatalf("alignment = %s/%s", c.Align, c.VAlign)
	}
	if c.Background.Shape != ShapeEllipse || c.Barcode.Kind != BarcodeCode128 {
		t.Fatalf("shape/barcode = %s/%s", c.Background.Shape, c.Barcode.Kind)
	}

	keep := &NumberFormat{DecimalPlaces: 4}
	d := &Cell{Width: "10pt", Percent: 50, Type: "currency", Format: keep}
	normalizeCell(d)
	if d.Width != "10pt" || d.Format != keep {
		t.Fatalf("explicit attributes must win: %+v", d)
	}
}
