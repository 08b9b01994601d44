package nutrition

import "strings"

// FoodDictionary 食材名稱對照表（中文 → 英文），建立後唯讀
type FoodDictionary map[string]string

// NewFoodDictionary 以去除空白後的鍵值建立對照表，空鍵略過
func NewFoodDictionary(pairs map[string]string) FoodDictionary {
	d := make(FoodDictionary, len(pairs))
	for k, v := range pairs {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		d[k] = v
	}
	return d
}

// Translate 完全比對；找不到時回傳原始名稱
func (d FoodDictionary) Translate(identifier string) string {
	if name, ok := d[strings.TrimSpace(identifier)]; ok && name != "" {
		return name
	}
	return identifier
}
