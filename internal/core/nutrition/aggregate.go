package nutrition

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIndexOutOfRange 選擇的食譜索引不在目錄範圍內
var ErrIndexOutOfRange = errors.New("recipe index out of range")

// IndexError 帶有索引資訊的越界錯誤
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("recipe index %d out of range [0, %d)", e.Index, e.Size)
}

// Is 讓 errors.Is(err, ErrIndexOutOfRange) 成立
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// Totals 一人份的累計結果
type Totals struct {
	CaloriesPerPerson float64
	Portions          map[Category]float64
}

// Get 取得類別份數，缺少的類別視為 0
func (t Totals) Get(c Category) float64 {
	return t.Portions[c]
}

// Aggregate 累加所選食譜的一人份熱量與六大類份數。
// 任一索引越界即中止，不回傳部分結果；無法解析的類別直接略過。
// 索引排序後才累加，選取順序不同時浮點結果仍一致。
func Aggregate(recipes []Recipe, selected []int, cm *CategoryMap) (Totals, error) {
	if cm == nil {
		cm = DefaultCategoryMap()
	}

	order := append([]int(nil), selected...)
	sort.Ints(order)

	totals := Totals{Portions: make(map[Category]float64)}
	for _, idx := range order {
		if idx < 0 || idx >= len(recipes) {
			return Totals{}, &IndexError{Index: idx, Size: len(recipes)}
		}
		r := recipes[idx]
		totals.CaloriesPerPerson += r.Calories

		// 依標籤排序累加，避免 map 迭代順序造成浮點誤差不同
		labels := make([]string, 0, len(r.Portions))
		for label := range r.Portions {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			if c, ok := cm.Resolve(label); ok {
				totals.Portions[c] += r.Portions[label]
			}
		}
	}
	return totals, nil
}
