package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVegetableVariants(t *testing.T) {
	cm := DefaultCategoryMap()

	for _, label := range []string{"蔬菜類", "蔬菜", "蔬", " 蔬菜 ", "葉菜類"} {
		c, ok := cm.Resolve(label)
		assert.True(t, ok, label)
		assert.Equal(t, Vegetable, c, label)
	}
}

func TestResolveExactMatch(t *testing.T) {
	cm := DefaultCategoryMap()

	tests := map[string]Category{
		"豆魚蛋肉":        Protein,
		"豆製品":         Protein,
		"全穀雜糧":        WholeGrains,
		"全谷雜糧":        WholeGrains,
		"水果類":         Fruit,
		"乳製品":         Dairy,
		"堅果種子類":       NutsOils,
		"Whole Grains": WholeGrains,
		"nuts & oils":  NutsOils,
		"FRUIT":        Fruit,
	}
	for label, want := range tests {
		got, ok := cm.Resolve(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}
}

func TestResolveSubstringFallback(t *testing.T) {
	cm := DefaultCategoryMap()

	// 複合標籤不在表中，依定義順序取第一個被包含的別名
	c, ok := cm.Resolve("有機蔬菜拼盤")
	assert.True(t, ok)
	assert.Equal(t, Vegetable, c)

	c, ok = cm.Resolve("低脂乳品類(無糖)")
	assert.True(t, ok)
	assert.Equal(t, Dairy, c)

	// 同時包含兩類別別名時，先定義者勝出
	c, ok = cm.Resolve("水果蔬菜汁")
	assert.True(t, ok)
	assert.Equal(t, Vegetable, c)
}

func TestResolveFullWidthLabel(t *testing.T) {
	c, ok := DefaultCategoryMap().Resolve("ＦＲＵＩＴ")
	assert.True(t, ok)
	assert.Equal(t, Fruit, c)
}

func TestResolveUnknown(t *testing.T) {
	cm := DefaultCategoryMap()

	for _, label := range []string{"unknown-label", "", "   ", "調味料"} {
		c, ok := cm.Resolve(label)
		assert.False(t, ok, label)
		assert.Empty(t, c)
	}
}

func TestNewCategoryMapKeepsFirstDuplicate(t *testing.T) {
	cm := NewCategoryMap([]CategoryEntry{
		{"豆", Protein},
		{" 豆 ", Vegetable},
		{"", Fruit},
	})

	assert.Equal(t, 1, cm.Len())
	c, ok := cm.Resolve("豆")
	assert.True(t, ok)
	assert.Equal(t, Protein, c)
}

func TestDefaultCategoryMapHasNoAmbiguities(t *testing.T) {
	assert.Empty(t, DefaultCategoryMap().Ambiguities())
}

func TestAmbiguitiesDetectsCrossCategorySubstring(t *testing.T) {
	cm := NewCategoryMap([]CategoryEntry{
		{"豆", Protein},
		{"豆芽菜", Vegetable},
		{"豆腐", Protein},
	})

	amb := cm.Ambiguities()
	if assert.Len(t, amb, 1) {
		assert.Equal(t, "豆", amb[0].Inner.Alias)
		assert.Equal(t, "豆芽菜", amb[0].Outer.Alias)
	}

	// 定義順序決定結果：豆芽菜 被解析為 Protein
	c, _ := cm.Resolve("炒豆芽菜")
	assert.Equal(t, Protein, c)
}

func TestCategoryDisplayName(t *testing.T) {
	assert.Equal(t, "Vegetable (蔬菜類)", Vegetable.DisplayName())
	assert.Equal(t, "Nuts & Oils (油脂與堅果種子類)", NutsOils.DisplayName())
	assert.Equal(t, "Other", Category("Other").DisplayName())
	assert.Len(t, Categories, 6)
}
