package layout

// GrandTotalName 是总计累加器使用的分组名。列序号等于字段数的分组即为总计分组。
const GrandTotalName = "GrandTotals"

// Aggregates 保存每个 (字段, 分组) 的聚合值。
type Aggregates struct {
	values map[string]map[string]float64
	groups []string
}

func newAggregates(groups []*Group) *Aggregates {
	a := &Aggregates{values: map[string]map[string]float64{}}
	for _, g := range groups {
		a.groups = append(a.groups, g.Name)
	}
	hasGrand := false
	for _, name := range a.groups {
		if name == GrandTotalName {
			hasGrand = true
		}
	}
	if !hasGrand {
		a.groups = append(a.groups, GrandTotalName)
	}
	return a
}

// Init 把 (field, group) 置零。
func (a *Aggregates) Init(field, group string) {
	if a.values[field] == nil {
		a.values[field] = map[string]float64{}
	}
	a.values[field][group] = 0
}

// Reset 在分组值变化时把该分组的所有字段清零。
func (a *Aggregates) Reset(group string) {
	for field := range a.values {
		a.values[field][group] = 0
	}
}

// Update 把一个记录值累加到所有分组与总计。
// sum 与 count 把缺失或非数值视为 0；max/min 跳过非数值，只在严格大于/小于当前值时替换。
// 累加器从 0 开始，因此全为正数时 min 保持 0，全为负数时 max 保持 0。
func (a *Aggregates) Update(field string, fn AggregateFunc, value any) {
	if a.values[field] == nil {
		a.Init(field, GrandTotalName)
	}
	n, numeric := toFloat(value)
	for _, g := range a.groups {
		cur := a.values[field][g]
		switch fn {
		case AggSum:
			cur += n
		case AggCount:
			cur++
		case AggMax:
			if !numeric {
				continue
			}
			if n > cur {
				cur = n
			}
		case AggMin:
			if !numeric {
				continue
			}
			if n < cur {
				cur = n
			}
		default:
			return
		}
		a.values[field][g] = cur
	}
}

// Value 返回 (field, group) 的当前聚合值。
func (a *Aggregates) Value(field, group string) (float64, bool) {
	byGroup, ok := a.values[field]
	if !ok {
		return 0, false
	}
	v, ok := byGroup[group]
	return v, ok
}
