package nutrition

import (
	"errors"
	"fmt"
	"math"

	"recipe-nutrition/internal/pkg/common"
)

// ErrInvalidServings 人數必須為大於 0 的有限數字
var ErrInvalidServings = errors.New("servings must be a positive number")

// portionUnit 六大類份數單位
const portionUnit = "份"

// CalculationResult 單次計算結果，不會被保存
type CalculationResult struct {
	Servings          float64           `json:"servings"`
	CaloriesTotal     float64           `json:"calories_total"`
	CaloriesPerPerson float64           `json:"calories_per_person"`
	Portions          map[string]string `json:"portions"`
	Advice            []string          `json:"advice"`
	Recipes           []ScaledRecipe    `json:"recipes"`
}

// Engine 營養計算引擎。食譜目錄、類別表與翻譯表在建立後皆唯讀，
// 因此同一個 Engine 可被多個請求同時使用而不需加鎖。
type Engine struct {
	recipes    []Recipe
	categories *CategoryMap
	translator Translator
}

// NewEngine 創建計算引擎；cm 或 tr 為 nil 時使用預設值
func NewEngine(recipes []Recipe, cm *CategoryMap, tr Translator) *Engine {
	if cm == nil {
		cm = DefaultCategoryMap()
	}
	if tr == nil {
		tr = IdentityTranslator{}
	}
	return &Engine{
		recipes:    cloneRecipes(recipes),
		categories: cm,
		translator: tr,
	}
}

// Recipes 回傳食譜目錄的深層副本
func (e *Engine) Recipes() []Recipe {
	return cloneRecipes(e.recipes)
}

// Size 目錄中的食譜數量
func (e *Engine) Size() int {
	return len(e.recipes)
}

// Calculate 計算所選食譜的總熱量、一人份六大類份數與建議。
// 熱量與份數先以一人份累加，最後才乘上人數。
func (e *Engine) Calculate(selected []int, servings float64) (*CalculationResult, error) {
	if servings <= 0 || math.IsNaN(servings) || math.IsInf(servings, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidServings, servings)
	}

	totals, err := Aggregate(e.recipes, selected, e.categories)
	if err != nil {
		return nil, err
	}

	scaled := make([]ScaledRecipe, 0, len(selected))
	for _, idx := range selected {
		scaled = append(scaled, Scale(e.recipes[idx], servings, e.translator))
	}

	return &CalculationResult{
		Servings:          servings,
		CaloriesTotal:     common.Round(totals.CaloriesPerPerson*servings, caloriesPrecision),
		CaloriesPerPerson: common.Round(totals.CaloriesPerPerson, caloriesPrecision),
		Portions:          FormatPortions(totals.Portions),
		Advice:            Advise(totals.Portions),
		Recipes:           scaled,
	}, nil
}

// FormatPortions 將份數轉為 "<數量> 份"，只列出有累計到的類別
func FormatPortions(portions map[Category]float64) map[string]string {
	out := make(map[string]string, len(portions))
	for _, c := range Categories {
		v, ok := portions[c]
		if !ok {
			continue
		}
		out[c.DisplayName()] = common.FormatNumber(common.Round(v, amountPrecision)) + " " + portionUnit
	}
	return out
}
