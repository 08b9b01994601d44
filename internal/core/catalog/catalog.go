package catalog

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"
)

// Catalog 啟動時載入的靜態資料
type Catalog struct {
	Recipes    []nutrition.Recipe
	Dictionary nutrition.FoodDictionary
	// DictionaryErr 食材對照表載入失敗的原因；非 nil 時 Dictionary 為空
	DictionaryErr error
}

// Load 同時載入食譜目錄與食材對照表。
// 目錄錯誤會回傳錯誤；對照表錯誤只記錄警告並以空表繼續。
func Load(ctx context.Context, recipesPath, dictPath string) (*Catalog, error) {
	c := &Catalog{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		recipes, err := LoadRecipes(recipesPath)
		if err != nil {
			return err
		}
		c.Recipes = recipes
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Dictionary, c.DictionaryErr = LoadFoodDictionary(dictPath)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if c.DictionaryErr != nil {
		common.LogWarn("食材對照表無法載入，食材名稱將不會翻譯",
			zap.String("path", dictPath),
			zap.Error(c.DictionaryErr),
		)
	}

	if unresolved := UnresolvedLabels(c.Recipes, nil); len(unresolved) > 0 {
		common.LogWarn("食譜中有無法對應六大類的標籤，計算時將略過",
			zap.Strings("labels", unresolved),
		)
	}
	for _, a := range nutrition.DefaultCategoryMap().Ambiguities() {
		common.LogWarn("類別別名可能誤判",
			zap.String("alias", a.Inner.Alias),
			zap.String("category", string(a.Inner.Category)),
			zap.String("contained_in", a.Outer.Alias),
			zap.String("contained_in_category", string(a.Outer.Category)),
		)
	}

	common.LogInfo("靜態資料載入完成",
		zap.Int("recipes", len(c.Recipes)),
		zap.Int("dictionary_entries", len(c.Dictionary)),
	)
	return c, nil
}
