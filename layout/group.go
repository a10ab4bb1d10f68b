package layout

import (
	"fmt"
	"strings"
)

// Group 是按某一列连续取值相同的记录组成的分组。
type Group struct {
	Name   string `json:"name"`
	Column int    `json:"column"`
	// Delimiter 非空时先按分隔符切分列值，再取 DelimiterIndex 段作为分组键。
	Delimiter      string  `json:"delimiter,omitempty"`
	DelimiterIndex int     `json:"delimiterIndex,omitempty"`
	PageBreak      bool    `json:"pageBreak,omitempty"`
	ReprintHeader  bool    `json:"reprintHeader,omitempty"`
	Header         *RowSet `json:"header,omitempty"`
	Footer         *RowSet `json:"footer,omitempty"`

	value trackedValue
}

// trackedValue 是分组当前值；set 为 false 即“未设置”哨兵。
type trackedValue struct {
	set bool
	v   string
}

// Value 返回分组当前跟踪的值。
func (g *Group) Value() (string, bool) { return g.value.v, g.value.set }

func (g *Group) resetValue() { g.value = trackedValue{} }

// key 从记录中取出分组键。grand 为 true 的总计分组不读取记录。
func (g *Group) key(rec Record, grand bool) string {
	if grand {
		return ""
	}
	var raw any
	if g.Column >= 0 && g.Column < len(rec) {
		raw = rec[g.Column]
	}
	s := FormatValue(raw, nil)
	if g.Delimiter != "" {
		parts := strings.Split(s, g.Delimiter)
		if g.DelimiterIndex < 0 || g.DelimiterIndex >= len(parts) {
			return ""
		}
		s = parts[g.DelimiterIndex]
	}
	return s
}

// QueuedHeader 是等待下一次数据行渲染时输出的分组表头。
type QueuedHeader struct {
	Group *Group
	Value string
}

func (q QueuedHeader) String() string { return fmt.Sprintf("%s=%s", q.Group.Name, q.Value) }
