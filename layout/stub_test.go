package layout

import "fmt"

// stubCanvas 是测试用画布：每个字符宽度为 0.5×字号，记录所有绘制调用。
type stubCanvas struct {
	pages  int
	ops    []stubOp
	images map[string][2]float64
}

type stubOp struct {
	page  int
	kind  string
	text  string
	x, y  float64
	w, h  float64
	size  float64
	color Color
}

func newStubCanvas() *stubCanvas { return &stubCanvas{images: map[string][2]float64{}} }

func (s *stubCanvas) MeasureText(_ string, size float64, text string) float64 {
	return float64(len([]rune(text))) * size * 0.5
}

func (s *stubCanvas) NewPage(_, _ float64) error {
	s.pages++
	return nil
}

func (s *stubCanvas) DrawText(_ string, _ float64, color Color, x, y float64, text string) error {
	s.ops = append(s.ops, stubOp{page: s.pages, kind: "text", text: text, x: x, y: y, color: color})
	return nil
}

func (s *stubCanvas) StrokeLine(x1, y1, x2, y2 float64, color Color) error {
	s.ops = append(s.ops, stubOp{page: s.pages, kind: "line", x: x1, y: y1, w: x2 - x1, h: y2 - y1, color: color})
	return nil
}

func (s *stubCanvas) FillShape(kind ShapeKind, x, y, w, h float64, color Color) error {
	s.ops = append(s.ops, stubOp{page: s.pages, kind: string(kind), x: x, y: y, w: w, h: h, color: color})
	return nil
}

func (s *stubCanvas) ImageDimensions(path string) (float64, float64, string, error) {
	d, ok := s.images[path]
	if !ok {
		return 0, 0, "", fmt.Errorf("no image %s", path)
	}
	return d[0], d[1], "png", nil
}

func (s *stubCanvas) PlaceImage(path string, x, y, scale float64) error {
	d := s.images[path]
	s.ops = append(s.ops, stubOp{page: s.pages, kind: "image", text: path, x: x, y: y, w: d[0] * scale, h: d[1] * scale})
	return nil
}

func (s *stubCanvas) PlaceBarcode(kind BarcodeKind, code string, x, y, scale float64, style BarcodeStyle) error {
	s.ops = append(s.ops, stubOp{page: s.pages, kind: "barcode", text: code, x: x, y: y, w: scale, size: style.FontSize})
	return nil
}

// texts 返回按顺序绘制的文本；page 为 0 时返回全部页面。
func (s *stubCanvas) texts(page int) []string {
	var out []string
	for _, op := range s.ops {
		if op.kind == "text" && (page == 0 || op.page == page) {
			out = append(out, op.text)
		}
	}
	return out
}

func (s *stubCanvas) count(kind string) int {
	n := 0
	for _, op := range s.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}
