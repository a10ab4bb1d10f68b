// Package records 从 CSV / JSON / YAML 文件读取数据记录。
//
// 记录按位置对应数据行集中的非 filler 单元格。带表头（CSV）或以对象形式给出（JSON/YAML）的数据
// 会按字段名重新排列；缺失的字段为 nil。
package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/quire/layout"
)

// ErrFormat 表示数据文件无法解析或结构不符合要求。
var ErrFormat = errors.New("数据格式错误")

// FieldNames 返回数据行集中参与记录的字段名。
func FieldNames(set *layout.RowSet) []string {
	var names []string
	for _, c := range set.Cells {
		if !c.Filler {
			names = append(names, c.Name)
		}
	}
	return names
}

// LoadFile 按扩展名选择格式读取记录。
func LoadFile(path string, fields []string) ([]layout.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(bytes.NewReader(data), fields)
	case ".json":
		return ReadJSON(data, fields)
	case ".yaml", ".yml":
		return ReadYAML(data, fields)
	default:
		return nil, fmt.Errorf("%w: 不支持的数据文件扩展名 %q", ErrFormat, filepath.Ext(path))
	}
}

// ReadCSV 读取带表头的 CSV。能解析为数字的单元格转换为 float64，空单元格为 nil。
func ReadCSV(r io.Reader, fields []string) ([]layout.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	order := columnOrder(header, fields)
	out := make([]layout.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		values := make([]any, len(row))
		for i, s := range row {
			values[i] = scalar(s)
		}
		out = append(out, pick(values, order))
	}
	return out, nil
}

// ReadJSON 读取记录数组，每个元素可以是数组或对象。
func ReadJSON(data []byte, fields []string) ([]layout.Record, error) {
	var raw []any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return fromItems(raw, fields)
}

// ReadYAML 与 ReadJSON 相同，但数据为 YAML 序列。
func ReadYAML(data []byte, fields []string) ([]layout.Record, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return fromItems(raw, fields)
}

func fromItems(items []any, fields []string) ([]layout.Record, error) {
	out := make([]layout.Record, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case []any:
			rec := make(layout.Record, len(v))
			for j, x := range v {
				rec[j] = normalize(x)
			}
			out = append(out, rec)
		case map[string]any:
			if len(fields) == 0 {
				return nil, fmt.Errorf("%w: 第 %d 条记录是对象，但没有字段名", ErrFormat, i+1)
			}
			rec := make(layout.Record, len(fields))
			for j, name := range fields {
				rec[j] = normalize(v[name])
			}
			out = append(out, rec)
		default:
			return nil, fmt.Errorf("%w: 第 %d 条记录类型 %T 无效", ErrFormat, i+1, item)
		}
	}
	return out, nil
}

// columnOrder 把字段名映射到 CSV 列。表头与字段名完全不匹配时按位置读取。
func columnOrder(header, fields []string) []int {
	if len(fields) == 0 {
		return nil
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	order := make([]int, len(fields))
	matched := false
	for i, name := range fields {
		if col, ok := index[name]; ok {
			order[i] = col
			matched = true
		} else {
			order[i] = -1
		}
	}
	if !matched {
		return nil
	}
	return order
}

func pick(values []any, order []int) layout.Record {
	if order == nil {
		return layout.Record(values)
	}
	rec := make(layout.Record, len(order))
	for i, col := range order {
		if col >= 0 && col < len(values) {
			rec[i] = values[col]
		}
	}
	return rec
}

func scalar(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return v
	}
}
