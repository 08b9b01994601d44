package nutrition

import (
	"strings"

	"recipe-nutrition/internal/pkg/common"
)

// 對外顯示精度：食材數量 2 位、熱量 1 位
const (
	amountPrecision   = 2
	caloriesPrecision = 1
)

// ScaledRecipe 依人數放大後的食譜視圖
type ScaledRecipe struct {
	Name          string   `json:"name"`
	CaloriesOne   float64  `json:"calories_one"`
	CaloriesTotal float64  `json:"calories_total"`
	Ingredients   []string `json:"ingredients"`
}

// Scale 將一人份食譜依人數換算；Amount 為 0 的食材不列出
func Scale(r Recipe, servings float64, tr Translator) ScaledRecipe {
	if tr == nil {
		tr = IdentityTranslator{}
	}

	ingredients := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if ing.Amount == 0 {
			continue
		}
		ingredients = append(ingredients, FormatIngredient(common.Round(ing.Amount*servings, amountPrecision), ing.Unit, tr.Translate(ing.Name)))
	}

	return ScaledRecipe{
		Name:          r.Name,
		CaloriesOne:   r.Calories,
		CaloriesTotal: common.Round(r.Calories*servings, caloriesPrecision),
		Ingredients:   ingredients,
	}
}

// FormatIngredient 組成 "<數量><單位> <名稱>"，去除多餘的空白
func FormatIngredient(amount float64, unit, name string) string {
	return strings.TrimSpace(common.FormatNumber(amount) + strings.TrimSpace(unit) + " " + strings.TrimSpace(name))
}
