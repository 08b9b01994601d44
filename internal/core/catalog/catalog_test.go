package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-nutrition/internal/core/nutrition"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const recipesJSON = `[
  {
    "name": " 豆腐湯 ",
    "calories": 200,
    "portions": {"蔬菜": 2, "豆魚蛋肉": 1},
    "ingredients": [
      {"name": "豆腐", "amount": 100, "unit": "g"},
      {"name": "水", "amount": 0, "unit": "ml"}
    ]
  },
  {
    "name": "舊版燕麥粥",
    "calories": "150.5",
    "portions": {"全谷雜糧": "1.5", "奶類": 1, "奶類 ": 0.5, "調味料": 1},
    "ingredients": [{"name": "燕麥", "amount": "40", "unit": "g"}]
  }
]`

func TestLoadRecipesJSON(t *testing.T) {
	recipes, err := LoadRecipes(writeFile(t, "recipes.json", recipesJSON))
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	assert.Equal(t, nutrition.Recipe{
		Name:     "豆腐湯",
		Calories: 200,
		Portions: map[string]float64{"蔬菜": 2, "豆魚蛋肉": 1},
		Ingredients: []nutrition.Ingredient{
			{Name: "豆腐", Amount: 100, Unit: "g"},
			{Name: "水", Amount: 0, Unit: "ml"},
		},
	}, recipes[0])

	legacy := recipes[1]
	assert.Equal(t, 150.5, legacy.Calories)
	assert.Equal(t, map[string]float64{"全谷雜糧": 1.5, "奶類": 1.5, "調味料": 1}, legacy.Portions)
	assert.Equal(t, 40.0, legacy.Ingredients[0].Amount)
}

func TestLoadRecipesWrappedJSON(t *testing.T) {
	path := writeFile(t, "recipes.json", "\xef\xbb\xbf"+`{"recipes": [{"name": "沙拉", "calories": 90, "portions": {"蔬菜類": 1.5}}]}`)

	recipes, err := LoadRecipes(path)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "沙拉", recipes[0].Name)
	assert.Empty(t, recipes[0].Ingredients)
}

func TestLoadRecipesYAML(t *testing.T) {
	const doc = `
recipes:
  - name: 烤鮭魚
    calories: 310
    portions:
      豆魚蛋肉類: 2
      油脂: "0.5"
    ingredients:
      - {name: 鮭魚, amount: 120, unit: g}
      - {name: 檸檬, amount: ~, unit: 片}
`
	recipes, err := LoadRecipes(writeFile(t, "recipes.yaml", doc))
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	assert.Equal(t, 310.0, recipes[0].Calories)
	assert.Equal(t, map[string]float64{"豆魚蛋肉類": 2, "油脂": 0.5}, recipes[0].Portions)
	assert.Equal(t, 0.0, recipes[0].Ingredients[1].Amount)
}

func TestLoadRecipesYAMLList(t *testing.T) {
	recipes, err := LoadRecipes(writeFile(t, "recipes.yml", "- name: 白飯\n  calories: 280\n  portions: {全穀雜糧: 4}\n"))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, 4.0, recipes[0].Portions["全穀雜糧"])
}

func TestLoadRecipesRejectsInvalidData(t *testing.T) {
	tests := map[string]string{
		"missing name":      `[{"calories": 10}]`,
		"negative calories": `[{"name": "a", "calories": -1}]`,
		"negative portion":  `[{"name": "a", "calories": 1, "portions": {"蔬菜": -0.5}}]`,
		"negative amount":   `[{"name": "a", "calories": 1, "ingredients": [{"name": "x", "amount": -2}]}]`,
		"empty label":       `[{"name": "a", "calories": 1, "portions": {" ": 1}}]`,
		"unnamed food":      `[{"name": "a", "calories": 1, "ingredients": [{"name": "", "amount": 2}]}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRecipes(writeFile(t, "recipes.json", doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecipe), err.Error())
			assert.Contains(t, err.Error(), "recipe 0")
		})
	}
}

func TestLoadRecipesMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":      `[{"name": "a",`,
		"bad number":  `[{"name": "a", "calories": "many"}]`,
		"nan":         `[{"name": "a", "calories": "NaN"}]`,
		"extra token": `[] []`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRecipes(writeFile(t, "recipes.json", doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadRecipes(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadRecipes(writeFile(t, "recipes.toml", "x = 1"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseFoodDictionary(t *testing.T) {
	const doc = "\ufeff編號,中文食材,英文名稱\n1, 豆腐 ,Tofu\n2,地瓜葉,Sweet potato leaves\n3,短列\n"

	dict, err := ParseFoodDictionary(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Len(t, dict, 2)
	assert.Equal(t, "Tofu", dict.Translate("豆腐"))
	assert.Equal(t, "Sweet potato leaves", dict.Translate("地瓜葉"))
	assert.Equal(t, "短列", dict.Translate("短列"))
}

func TestParseFoodDictionaryRequiresHeader(t *testing.T) {
	_, err := ParseFoodDictionary(strings.NewReader("name,english\n豆腐,Tofu\n"))
	assert.True(t, errors.Is(err, ErrDictionaryHeader))

	_, err = ParseFoodDictionary(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrDictionaryHeader))
}

func TestLoadFoodDictionaryMissingFile(t *testing.T) {
	dict, err := LoadFoodDictionary(filepath.Join(t.TempDir(), "none.csv"))
	assert.True(t, errors.Is(err, ErrDictionaryMissing))
	assert.NotNil(t, dict)
	assert.Empty(t, dict)
	assert.Equal(t, "豆腐", dict.Translate("豆腐"))

	_, err = LoadFoodDictionary("")
	assert.True(t, errors.Is(err, ErrDictionaryMissing))
}

func TestLoadToleratesMissingDictionary(t *testing.T) {
	recipesPath := writeFile(t, "recipes.json", recipesJSON)

	c, err := Load(context.Background(), recipesPath, filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Len(t, c.Recipes, 2)
	assert.Empty(t, c.Dictionary)
	assert.True(t, errors.Is(c.DictionaryErr, ErrDictionaryMissing))

	engine := nutrition.NewEngine(c.Recipes, nil, c.Dictionary)
	result, err := engine.Calculate([]int{0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"200g 豆腐"}, result.Recipes[0].Ingredients)
}

func TestLoadWithDictionary(t *testing.T) {
	recipesPath := writeFile(t, "recipes.json", recipesJSON)
	dictPath := writeFile(t, "food.csv", "中文食材,英文名稱\n豆腐,Tofu\n燕麥,Oats\n")

	c, err := Load(context.Background(), recipesPath, dictPath)
	require.NoError(t, err)
	assert.NoError(t, c.DictionaryErr)
	assert.Equal(t, "Oats", c.Dictionary.Translate("燕麥"))
}

func TestLoadFailsOnBadCatalog(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "")
	assert.Error(t, err)
}

func TestUnresolvedLabels(t *testing.T) {
	recipes, err := LoadRecipes(writeFile(t, "recipes.json", recipesJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"調味料"}, UnresolvedLabels(recipes, nil))
}
