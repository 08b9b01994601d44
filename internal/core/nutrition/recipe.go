package nutrition

// Ingredient 一人份食材；Amount 為 0 代表不列入採購清單
type Ingredient struct {
	Name   string  `json:"name" yaml:"name"`
	Amount float64 `json:"amount" yaml:"amount"`
	Unit   string  `json:"unit" yaml:"unit"`
}

// Recipe 食譜，所有數值皆為一人份。載入後不可修改。
type Recipe struct {
	Name        string             `json:"name" yaml:"name"`
	Calories    float64            `json:"calories" yaml:"calories"`
	Portions    map[string]float64 `json:"portions" yaml:"portions"`
	Ingredients []Ingredient       `json:"ingredients" yaml:"ingredients"`
}

func (r Recipe) clone() Recipe {
	if r.Portions != nil {
		portions := make(map[string]float64, len(r.Portions))
		for k, v := range r.Portions {
			portions[k] = v
		}
		r.Portions = portions
	}
	if r.Ingredients != nil {
		r.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	}
	return r
}

func cloneRecipes(recipes []Recipe) []Recipe {
	if recipes == nil {
		return nil
	}
	out := make([]Recipe, len(recipes))
	for i, r := range recipes {
		out[i] = r.clone()
	}
	return out
}

// Translator 將食材名稱轉為顯示名稱
type Translator interface {
	Translate(identifier string) string
}

// IdentityTranslator 原樣回傳
type IdentityTranslator struct{}

// Translate 實作 Translator
func (IdentityTranslator) Translate(identifier string) string {
	return identifier
}
