package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"recipe-nutrition/internal/core/nutrition"
)

// 食材對照表 CSV 欄位
const (
	ColumnSourceName  = "中文食材"
	ColumnDisplayName = "英文名稱"
)

var (
	// ErrDictionaryMissing 找不到食材對照表
	ErrDictionaryMissing = errors.New("food dictionary not found")
	// ErrDictionaryHeader CSV 缺少必要欄位
	ErrDictionaryHeader = errors.New("food dictionary header is missing required columns")
)

// LoadFoodDictionary 讀取食材對照表。任何錯誤都會回傳空的對照表，
// 呼叫端記錄警告後照常啟動，翻譯退化為原樣輸出。
func LoadFoodDictionary(path string) (nutrition.FoodDictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nutrition.FoodDictionary{}, ErrDictionaryMissing
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nutrition.FoodDictionary{}, fmt.Errorf("%w: %s", ErrDictionaryMissing, path)
		}
		return nutrition.FoodDictionary{}, fmt.Errorf("failed to open food dictionary: %w", err)
	}
	defer f.Close()

	dict, err := ParseFoodDictionary(f)
	if err != nil {
		return nutrition.FoodDictionary{}, fmt.Errorf("failed to parse food dictionary %s: %w", path, err)
	}
	return dict, nil
}

// ParseFoodDictionary 解析含標題列的 CSV
func ParseFoodDictionary(r io.Reader) (nutrition.FoodDictionary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrDictionaryHeader
	}
	if err != nil {
		return nil, err
	}

	src, dst := -1, -1
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		switch col {
		case ColumnSourceName:
			src = i
		case ColumnDisplayName:
			dst = i
		}
	}
	if src < 0 || dst < 0 {
		return nil, ErrDictionaryHeader
	}

	pairs := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if src >= len(record) || dst >= len(record) {
			continue
		}
		pairs[record[src]] = record[dst]
	}
	return nutrition.NewFoodDictionary(pairs), nil
}
