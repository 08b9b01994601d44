package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"
)

var (
	// ErrInvalidRecipe 食譜資料不符合格式
	ErrInvalidRecipe = errors.New("invalid recipe")
	// ErrUnsupportedFormat 不支援的目錄檔案格式
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// number 接受數字或數字字串；舊版資料的熱量與份量曾以字串儲存
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	return n.parse(s)
}

func (n *number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	if value.Tag == "!!null" {
		*n = 0
		return nil
	}
	return n.parse(value.Value)
}

func (n *number) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = number(f)
	return nil
}

type rawIngredient struct {
	Name   string `json:"name" yaml:"name"`
	Amount number `json:"amount" yaml:"amount"`
	Unit   string `json:"unit" yaml:"unit"`
}

type rawRecipe struct {
	Name        string            `json:"name" yaml:"name"`
	Calories    number            `json:"calories" yaml:"calories"`
	Portions    map[string]number `json:"portions" yaml:"portions"`
	Ingredients []rawIngredient   `json:"ingredients" yaml:"ingredients"`
}

// rawCatalog 以物件包裝的目錄：{"recipes": [...]}
type rawCatalog struct {
	Recipes []rawRecipe `json:"recipes" yaml:"recipes"`
}

// LoadRecipes 讀取食譜目錄（.json / .yaml / .yml），並轉換為統一格式
func LoadRecipes(path string) ([]nutrition.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe catalog: %w", err)
	}

	var raw []rawRecipe
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		raw, err = decodeJSONCatalog(data)
	case ".yaml", ".yml":
		raw, err = decodeYAMLCatalog(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe catalog %s: %w", path, err)
	}

	return migrate(raw)
}

func decodeJSONCatalog(data []byte) ([]rawRecipe, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) > 0 && data[0] == '{' {
		var wrapped rawCatalog
		if err := common.ParseJSONBytes(data, &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Recipes, nil
	}
	var list []rawRecipe
	if err := common.ParseJSONBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func decodeYAMLCatalog(data []byte) ([]rawRecipe, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		var wrapped rawCatalog
		if err := root.Decode(&wrapped); err != nil {
			return nil, err
		}
		return wrapped.Recipes, nil
	}
	var list []rawRecipe
	if err := root.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// migrate 驗證並正規化原始食譜：
//   - 名稱、類別標籤、食材名稱與單位去除空白，標籤做 NFKC 正規化
//   - 正規化後重複的類別標籤份數相加
//   - 熱量、份數、食材數量不可為負
func migrate(raw []rawRecipe) ([]nutrition.Recipe, error) {
	recipes := make([]nutrition.Recipe, 0, len(raw))
	for i, r := range raw {
		recipe, err := migrateRecipe(r)
		if err != nil {
			return nil, fmt.Errorf("recipe %d: %w", i, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func migrateRecipe(r rawRecipe) (nutrition.Recipe, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nutrition.Recipe{}, fmt.Errorf("%w: name is required", ErrInvalidRecipe)
	}
	if r.Calories < 0 {
		return nutrition.Recipe{}, fmt.Errorf("%w: %s has negative calories", ErrInvalidRecipe, name)
	}

	portions := make(map[string]float64, len(r.Portions))
	for label, value := range r.Portions {
		key := strings.TrimSpace(norm.NFKC.String(label))
		if key == "" {
			return nutrition.Recipe{}, fmt.Errorf("%w: %s has an empty category label", ErrInvalidRecipe, name)
		}
		if value < 0 {
			return nutrition.Recipe{}, fmt.Errorf("%w: %s has negative portion for %s", ErrInvalidRecipe, name, key)
		}
		portions[key] += float64(value)
	}

	ingredients := make([]nutrition.Ingredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ingName := strings.TrimSpace(ing.Name)
		if ingName == "" {
			return nutrition.Recipe{}, fmt.Errorf("%w: %s has an ingredient without name", ErrInvalidRecipe, name)
		}
		if ing.Amount < 0 {
			return nutrition.Recipe{}, fmt.Errorf("%w: %s has negative amount for %s", ErrInvalidRecipe, name, ingName)
		}
		ingredients = append(ingredients, nutrition.Ingredient{
			Name:   ingName,
			Amount: float64(ing.Amount),
			Unit:   strings.TrimSpace(ing.Unit),
		})
	}

	return nutrition.Recipe{
		Name:        name,
		Calories:    float64(r.Calories),
		Portions:    portions,
		Ingredients: ingredients,
	}, nil
}

// UnresolvedLabels 列出目錄中無法對應到六大類的標籤（去重、排序）
func UnresolvedLabels(recipes []nutrition.Recipe, cm *nutrition.CategoryMap) []string {
	if cm == nil {
		cm = nutrition.DefaultCategoryMap()
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range recipes {
		for label := range r.Portions {
			if seen[label] {
				continue
			}
			seen[label] = true
			if _, ok := cm.Resolve(label); !ok {
				out = append(out, label)
			}
		}
	}
	sort.Strings(out)
	return out
}
