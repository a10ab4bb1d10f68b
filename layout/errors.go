package layout

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrConfig 表示报表定义本身有误，在渲染开始前中止。
	ErrConfig = errors.New("报表配置错误")
	// ErrUnit 表示长度字符串无法解析。
	ErrUnit = errors.New("无法识别的长度")
	// ErrLookup 表示按名称查询单元格或分组失败。
	ErrLookup = errors.New("查询失败")
)

// Warning 是渲染期间的非致命问题：对应的单元格或行被跳过，报表继续生成。
type Warning struct {
	Page int    `json:"page"`
	Cell string `json:"cell,omitempty"`
	Err  error  `json:"-"`
}

func (w Warning) Error() string {
	if w.Cell != "" {
		return fmt.Sprintf("第 %d 页 单元格 %s: %v", w.Page, w.Cell, w.Err)
	}
	return fmt.Sprintf("第 %d 页: %v", w.Page, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// MarshalJSON 输出警告文本，error 本身无法序列化。
func (w Warning) MarshalJSON() ([]byte, error) {
	msg := ""
	if w.Err != nil {
		msg = w.Err.Error()
	}
	return json.Marshal(struct {
		Page    int    `json:"page"`
		Cell    string `json:"cell,omitempty"`
		Message string `json:"message"`
	}{w.Page, w.Cell, msg})
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
