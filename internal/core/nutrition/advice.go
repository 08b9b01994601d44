package nutrition

// AdviceRule 單一份數門檻規則：Category 份數低於 Min 時給出 Message
type AdviceRule struct {
	Category Category
	Min      float64
	Message  string
}

// DefaultAdviceRules 固定的飲食建議規則，依序獨立判斷
var DefaultAdviceRules = []AdviceRule{
	{Category: Protein, Min: 1, Message: "蛋白質不足，建議加豆腐、蛋或瘦肉"},
	{Category: Vegetable, Min: 2, Message: "蔬菜量不足，多吃綠色蔬菜"},
	{Category: WholeGrains, Min: 1, Message: "全穀類不足，可加糙米或燕麥"},
}

// Advise 依一人份份數產生建議；缺少的類別視為 0
func Advise(perPerson map[Category]float64) []string {
	advice := make([]string, 0, len(DefaultAdviceRules))
	for _, rule := range DefaultAdviceRules {
		if perPerson[rule.Category] < rule.Min {
			advice = append(advice, rule.Message)
		}
	}
	return advice
}
