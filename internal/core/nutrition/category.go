package nutrition

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category 六大類食物
type Category string

const (
	Vegetable   Category = "Vegetable"
	Protein     Category = "Protein"
	WholeGrains Category = "Whole Grains"
	Fruit       Category = "Fruit"
	Dairy       Category = "Dairy"
	NutsOils    Category = "Nuts & Oils"
)

// Categories 依報表順序列出六大類
var Categories = []Category{Vegetable, Protein, WholeGrains, Fruit, Dairy, NutsOils}

var categoryLabels = map[Category]string{
	Vegetable:   "蔬菜類",
	Protein:     "豆魚蛋肉類",
	WholeGrains: "全穀雜糧類",
	Fruit:       "水果類",
	Dairy:       "乳品類",
	NutsOils:    "油脂與堅果種子類",
}

// Label 回傳中文類別名稱
func (c Category) Label() string {
	return categoryLabels[c]
}

// DisplayName 報表顯示名稱，例如 "Vegetable (蔬菜類)"
func (c Category) DisplayName() string {
	if label := c.Label(); label != "" {
		return string(c) + " (" + label + ")"
	}
	return string(c)
}

// CategoryEntry 類別別名與對應的標準類別
type CategoryEntry struct {
	Alias    string
	Category Category
}

// CategoryMap 類別別名對照表，建立後唯讀，可跨 goroutine 共用。
//
// Resolve 先做完全比對，失敗時依定義順序掃描別名，回傳第一個被標籤包含的別名
// 所對應的類別（FirstDefinedSubstring）。這是啟發式規則，不保證是「最佳」匹配：
// 若某別名是另一類別別名的子字串，結果取決於定義順序，見 Ambiguities。
type CategoryMap struct {
	entries []CategoryEntry
	exact   map[string]Category
}

// defaultEntries 各版本食譜資料中出現過的類別寫法
var defaultEntries = []CategoryEntry{
	{"蔬菜", Vegetable}, {"青菜", Vegetable}, {"菜", Vegetable}, {"蔬", Vegetable},
	{"根莖類", Vegetable}, {"葉菜類", Vegetable}, {"蔬菜類", Vegetable},
	{"豆魚蛋肉", Protein}, {"豆魚肉蛋", Protein}, {"豆魚蛋肉類", Protein},
	{"肉蛋豆魚", Protein}, {"蛋白質類", Protein}, {"肉類", Protein},
	{"魚類", Protein}, {"蛋類", Protein}, {"豆類", Protein}, {"豆製品", Protein},
	{"全穀雜糧", WholeGrains}, {"全穀類", WholeGrains}, {"全穀", WholeGrains},
	{"五穀雜糧", WholeGrains}, {"雜糧類", WholeGrains}, {"穀類", WholeGrains},
	{"全谷雜糧", WholeGrains}, {"全谷", WholeGrains},
	{"水果", Fruit}, {"水果類", Fruit},
	{"奶類", Dairy}, {"乳品類", Dairy}, {"乳類", Dairy}, {"乳製品", Dairy},
	{"堅果油脂", NutsOils}, {"油脂類", NutsOils}, {"堅果種子類", NutsOils},
	{"堅果類", NutsOils}, {"油脂", NutsOils},
	// 已轉換過的英文標準名稱
	{"Vegetable", Vegetable}, {"Protein", Protein}, {"Whole Grains", WholeGrains},
	{"Fruit", Fruit}, {"Dairy", Dairy}, {"Nuts & Oils", NutsOils},
}

var defaultCategoryMap = NewCategoryMap(defaultEntries)

// DefaultCategoryMap 回傳內建的類別對照表
func DefaultCategoryMap() *CategoryMap {
	return defaultCategoryMap
}

// NewCategoryMap 依給定順序建立對照表；重複別名以先出現者為準
func NewCategoryMap(entries []CategoryEntry) *CategoryMap {
	m := &CategoryMap{
		entries: make([]CategoryEntry, 0, len(entries)),
		exact:   make(map[string]Category, len(entries)),
	}
	for _, e := range entries {
		key := NormalizeLabel(e.Alias)
		if key == "" {
			continue
		}
		if _, dup := m.exact[key]; dup {
			continue
		}
		m.exact[key] = e.Category
		m.entries = append(m.entries, CategoryEntry{Alias: key, Category: e.Category})
	}
	return m
}

// NormalizeLabel NFKC 正規化、去除前後空白並轉小寫
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(label)))
}

// Resolve 將任意類別標籤解析為標準類別，無法解析時 ok 為 false
func (m *CategoryMap) Resolve(label string) (Category, bool) {
	name := NormalizeLabel(label)
	if name == "" {
		return "", false
	}
	if c, ok := m.exact[name]; ok {
		return c, true
	}
	for _, e := range m.entries {
		if strings.Contains(name, e.Alias) {
			return e.Category, true
		}
	}
	return "", false
}

// Len 別名數量
func (m *CategoryMap) Len() int {
	return len(m.entries)
}

// Ambiguity 一個別名是另一個不同類別別名的子字串
type Ambiguity struct {
	Inner CategoryEntry
	Outer CategoryEntry
}

// Ambiguities 列出可能讓子字串比對誤判的別名組合
func (m *CategoryMap) Ambiguities() []Ambiguity {
	var out []Ambiguity
	for _, inner := range m.entries {
		for _, outer := range m.entries {
			if inner.Alias == outer.Alias || inner.Category == outer.Category {
				continue
			}
			if strings.Contains(outer.Alias, inner.Alias) {
				out = append(out, Ambiguity{Inner: inner, Outer: outer})
			}
		}
	}
	return out
}
