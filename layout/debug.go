package layout

import (
	"encoding/json"
	"os"
)

// Snapshot 是几何解析后各行集的可序列化视图，便于调试或可视化。
type Snapshot struct {
	Page         PageMetrics     `json:"page"`
	Fields       *RowSet         `json:"fields"`
	FieldHeaders *RowSet         `json:"fieldHeaders"`
	PageHeader   *RowSet         `json:"pageHeader,omitempty"`
	PageFooter   *RowSet         `json:"pageFooter,omitempty"`
	Groups       []GroupSnapshot `json:"groups,omitempty"`
	Result       *Result         `json:"result,omitempty"`
}

// GroupSnapshot 记录分组的几何与当前值。
type GroupSnapshot struct {
	Name   string  `json:"name"`
	Column int     `json:"column"`
	Value  *string `json:"value,omitempty"`
	Header *RowSet `json:"header,omitempty"`
	Footer *RowSet `json:"footer,omitempty"`
}

// Snapshot 返回当前的几何快照；Finish 之后调用时附带结果。
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Page:         e.rep.Page,
		Fields:       &e.rep.Fields,
		FieldHeaders: e.fieldHeaders,
		PageHeader:   e.rep.PageHeader,
		PageFooter:   e.rep.PageFooter,
	}
	for _, g := range e.rep.Groups {
		gs := GroupSnapshot{Name: g.Name, Column: g.Column, Header: g.Header, Footer: g.Footer}
		if v, ok := g.Value(); ok {
			gs.Value = &v
		}
		s.Groups = append(s.Groups, gs)
	}
	if e.finished {
		s.Result = &Result{Pages: e.pc.Page, Records: e.pc.Rendered, Warnings: e.warnings}
	}
	return s
}

// WriteDebugJSON 将几何快照输出为 JSON。
func WriteDebugJSON(s *Snapshot, path string) error {
	if s == nil {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
