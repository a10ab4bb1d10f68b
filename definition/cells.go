package definition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// cellFlags 在参数列表中单独出现即表示 true。
var cellFlags = map[string]bool{
	"wrap":          true,
	"filler":        true,
	"print-if-true": true,
	"scale-to-fit":  true,
	"show-text":     true,
	"decimal-fill":  true,
	"thousands":     true,
	"currency":      true,
	"null-if-zero":  true,
}

// cellKeys 是需要一个取值的单元格属性。
var cellKeys = map[string]bool{
	"name": true, "header": true, "style": true,
	"width": true, "percent": true, "x": true, "y": true,
	"font": true, "font-size": true, "color": true, "align": true, "valign": true,
	"margin-left": true, "margin-right": true, "whitespace": true,
	"aggregate": true, "source": true, "format": true, "type": true,
	"decimals": true, "currency-symbol": true,
	"background": true, "border": true, "shape": true,
	"image": true, "image-height": true, "image-buffer": true,
	"barcode": true, "code": true, "barcode-scale": true, "zone": true,
	"upper-zone": true, "lower-zone": true, "barcode-font-size": true,
}

// attrAliases 是旧写法的属性名。
var attrAliases = map[string]string{
	"colour":            "color",
	"background-colour": "background",
	"border-colour":     "border",
}

// parseArgs 把 `cell amount width 40% wrap` 形式的参数拆成名称与属性表。
// named 为 true 时，第一个记号在不是开关、且后面没有紧跟取值时作为名称，
// 因此 `cell name width 50%` 中的 name 是名称。
func parseArgs(args []*dsl.Arg, keys, flags map[string]bool, named bool) (string, map[string]string, error) {
	attrs := map[string]string{}
	name := ""
	for i := 0; i < len(args); i++ {
		tok := normalizeKey(args[i].Value())
		switch {
		case named && i == 0 && !flags[tok] && positionalName(args, keys, flags):
			name = args[i].Value()
		case flags[tok]:
			attrs[tok] = "true"
		case keys[tok]:
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%w: 属性 %s 缺少取值（%s）", layout.ErrConfig, tok, args[i].Pos)
			}
			attrs[tok] = args[i+1].Value()
			i++
		default:
			return "", nil, fmt.Errorf("%w: 无法识别的参数 %q（%s）", layout.ErrConfig, args[i].Value(), args[i].Pos)
		}
	}
	return name, attrs, nil
}

func normalizeKey(tok string) string {
	tok = strings.ToLower(tok)
	if alias, ok := attrAliases[tok]; ok {
		return alias
	}
	return tok
}

// positionalName 判断首个记号是否为名称：它不是属性，或者它之后没有可作为取值的记号。
func positionalName(args []*dsl.Arg, keys, flags map[string]bool) bool {
	if !keys[normalizeKey(args[0].Value())] || len(args) == 1 {
		return true
	}
	next := normalizeKey(args[1].Value())
	return keys[next] || flags[next]
}

type compiler struct {
	res    Resources
	styles map[string]Style
}

// attributes 合并样式、行内参数与块内赋值，后者优先。
func (c *compiler) attributes(args []*dsl.Arg, block *dsl.Block) (string, map[string]string, error) {
	name, inline, err := parseArgs(args, cellKeys, cellFlags, true)
	if err != nil {
		return "", nil, err
	}
	for k, v := range blockAssignments(block) {
		if alias, ok := attrAliases[k]; ok {
			k = alias
		}
		inline[k] = v
	}
	out := map[string]string{}
	if styleName := inline["style"]; styleName != "" {
		style, ok := c.styles[styleName]
		if !ok {
			return "", nil, fmt.Errorf("%w: style %s 未定义", layout.ErrConfig, styleName)
		}
		for k, v := range style.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	delete(out, "style")
	if n := out["name"]; n != "" {
		name = n
	}
	delete(out, "name")
	return name, out, nil
}

// cell 编译一个 cell 或 split 命令（含其下挂的 split 链）。
func (c *compiler) cell(cmd *dsl.Command) (*layout.Cell, error) {
	name, attrs, err := c.attributes(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	cell := &layout.Cell{Name: name, Text: extractText(cmd.Block)}
	if err := c.applyCell(cell, attrs); err != nil {
		return nil, fmt.Errorf("单元格 %q: %w", name, err)
	}
	if cmd.Block == nil {
		return cell, nil
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		if stmt.Command.Name != "split" {
			return nil, fmt.Errorf("%w: 单元格 %q 中未知的命令 %q", layout.ErrConfig, name, stmt.Command.Name)
		}
		if cell.Split != nil {
			return nil, fmt.Errorf("%w: 单元格 %q 只能有一个 split", layout.ErrConfig, name)
		}
		child, err := c.cell(stmt.Command)
		if err != nil {
			return nil, err
		}
		cell.Split = child
	}
	return cell, nil
}

// applyCell 把属性写入单元格；未知属性是配置错误。
func (c *compiler) applyCell(cell *layout.Cell, attrs map[string]string) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !cellKeys[k] && !cellFlags[k] {
			return fmt.Errorf("%w: 未知的单元格属性 %q", layout.ErrConfig, k)
		}
	}

	var err error
	for _, k := range keys {
		v := attrs[k]
		switch k {
		case "header":
			cell.Header = v
		case "width":
			cell.Width = v
		case "percent":
			cell.Percent, err = strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		case "x":
			cell.X = v
		case "y":
			cell.Y = v
		case "font":
			cell.Font = v
		case "font-size":
			cell.FontSize, err = length(v)
		case "color":
			var col layout.Color
			if col, err = resolveColor(v, c.res); err == nil {
				cell.Color = &col
			}
		case "align":
			cell.Align = layout.HAlign(v)
		case "valign":
			cell.VAlign = layout.VAlign(v)
		case "margin-left":
			cell.TextMarginLeft, err = length(v)
		case "margin-right":
			cell.TextMarginRight, err = length(v)
		case "whitespace":
			var ws float64
			if ws, err = length(v); err == nil {
				cell.Whitespace = &ws
			}
		case "wrap":
			cell.Wrap, err = parseBool(k, v)
		case "filler":
			cell.Filler, err = parseBool(k, v)
		case "print-if-true":
			cell.PrintIfTrue, err = parseBool(k, v)
		case "aggregate":
			cell.Aggregate = layout.AggregateFunc(strings.ToLower(v))
		case "source":
			cell.AggregateSource = v
		case "type":
			cell.Type = v
		case "background", "border", "shape":
			err = c.applyBackground(cell, k, v)
		}
		if err != nil {
			return err
		}
	}
	if err := applyFormat(cell, attrs); err != nil {
		return err
	}
	if err := c.applyImage(cell, attrs); err != nil {
		return err
	}
	return applyBarcode(cell, attrs)
}

func (c *compiler) applyBackground(cell *layout.Cell, key, v string) error {
	if cell.Background == nil {
		cell.Background = &layout.Background{}
	}
	if key == "shape" {
		cell.Background.Shape = layout.ShapeKind(v)
		return nil
	}
	col, err := resolveColor(v, c.res)
	if err != nil {
		return err
	}
	if key == "background" {
		cell.Background.Fill = &col
	} else {
		cell.Background.Border = &col
	}
	return nil
}

// applyFormat 先按 format 取预设，再叠加单独的格式开关。
func applyFormat(cell *layout.Cell, attrs map[string]string) error {
	switch f := strings.ToLower(attrs["format"]); f {
	case "":
	case "currency":
		cell.Format = &layout.NumberFormat{DecimalPlaces: 2, DecimalFill: true, SeparateThousands: true, Currency: true}
	case "number":
		cell.Format = &layout.NumberFormat{}
	case "currency:no_fill", "thousands_separated":
		cell.Type = f
	default:
		return fmt.Errorf("%w: 不支持的数值格式 %q", layout.ErrConfig, attrs["format"])
	}
	ensure := func() *layout.NumberFormat {
		if cell.Format == nil {
			cell.Format = &layout.NumberFormat{}
		}
		return cell.Format
	}
	if v, ok := attrs["decimals"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: decimals 需要非负整数，得到 %q", layout.ErrConfig, v)
		}
		ensure().DecimalPlaces = n
	}
	for _, k := range []string{"decimal-fill", "thousands", "currency", "null-if-zero"} {
		v, ok := attrs[k]
		if !ok {
			continue
		}
		b, err := parseBool(k, v)
		if err != nil {
			return err
		}
		f := ensure()
		switch k {
		case "decimal-fill":
			f.DecimalFill = b
		case "thousands":
			f.SeparateThousands = b
		case "currency":
			f.Currency = b
		case "null-if-zero":
			f.NullIfZero = b
		}
	}
	if v, ok := attrs["currency-symbol"]; ok {
		ensure().CurrencySymbol = v
	}
	return nil
}

func (c *compiler) applyImage(cell *layout.Cell, attrs map[string]string) error {
	src, ok := attrs["image"]
	if !ok {
		for _, k := range []string{"image-height", "image-buffer", "scale-to-fit"} {
			if _, set := attrs[k]; set {
				return fmt.Errorf("%w: %s 需要同时指定 image", layout.ErrConfig, k)
			}
		}
		return nil
	}
	if path, named := c.res.Images[src]; named {
		src = path
	}
	img := &layout.ImageSpec{Path: src}
	var err error
	if v, ok := attrs["image-height"]; ok {
		if img.Height, err = length(v); err != nil {
			return err
		}
	}
	if v, ok := attrs["image-buffer"]; ok {
		if img.Buffer, err = length(v); err != nil {
			return err
		}
	}
	if v, ok := attrs["scale-to-fit"]; ok {
		if img.ScaleToFit, err = parseBool("scale-to-fit", v); err != nil {
			return err
		}
	}
	cell.Image = img
	return nil
}

func applyBarcode(cell *layout.Cell, attrs map[string]string) error {
	kind, ok := attrs["barcode"]
	if !ok {
		return nil
	}
	b := &layout.BarcodeSpec{Kind: layout.BarcodeKind(kind), Code: attrs["code"]}
	var err error
	if v, ok := attrs["barcode-scale"]; ok {
		if b.Scale, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%w: barcode-scale 无法解析 %q", layout.ErrConfig, v)
		}
	}
	lengths := map[string]*float64{
		"zone":              &b.Zone,
		"upper-zone":        &b.UpperZone,
		"lower-zone":        &b.LowerZone,
		"barcode-font-size": &b.FontSize,
	}
	for k, dst := range lengths {
		if v, ok := attrs[k]; ok {
			if *dst, err = length(v); err != nil {
				return err
			}
		}
	}
	if v, ok := attrs["show-text"]; ok {
		if b.ShowText, err = parseBool("show-text", v); err != nil {
			return err
		}
	}
	switch layout.BarcodeKind(strings.ToLower(strings.ReplaceAll(kind, "_", ""))) {
	case layout.BarcodeCode128, layout.BarcodeCode39, layout.BarcodeEAN13:
	default:
		return fmt.Errorf("%w: 不支持的条码类型 %q", layout.ErrConfig, kind)
	}
	cell.Barcode = b
	return nil
}

// rowSet 编译一个包含 cell 命令的块；params 只接受 buffer。
func (c *compiler) rowSet(kind layout.RowSetKind, params []*dsl.Arg, block *dsl.Block) (*layout.RowSet, error) {
	set := &layout.RowSet{Kind: kind}
	for i := 0; i < len(params); i++ {
		if !strings.EqualFold(params[i].Value(), "buffer") {
			return nil, fmt.Errorf("%w: %s 行集不支持参数 %q", layout.ErrConfig, kind, params[i].Value())
		}
		var vals []string
		for j := i + 1; j < len(params) && len(vals) < 2 && isLength(params[j].Value()); j++ {
			vals = append(vals, params[j].Value())
			i = j
		}
		buf, err := bufferFrom(vals)
		if err != nil {
			return nil, err
		}
		set.Buffer = buf
	}
	if block == nil {
		return set, nil
	}
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		if stmt.Command.Name != "cell" {
			return nil, fmt.Errorf("%w: %s 行集中未知的命令 %q", layout.ErrConfig, kind, stmt.Command.Name)
		}
		cell, err := c.cell(stmt.Command)
		if err != nil {
			return nil, err
		}
		set.Cells = append(set.Cells, cell)
	}
	return set, nil
}

// headings 编译字段表头的共享属性。
func (c *compiler) headings(h *dsl.HeadingsSection) (*layout.Cell, error) {
	_, attrs, err := c.attributes(h.Params, h.Block)
	if err != nil {
		return nil, err
	}
	cell := &layout.Cell{}
	if err := c.applyCell(cell, attrs); err != nil {
		return nil, fmt.Errorf("headings: %w", err)
	}
	return cell, nil
}
