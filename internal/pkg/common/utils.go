package common

import (
	"math"
	"strconv"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Round 四捨五入到指定小數位（遠離零）
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FormatNumber 以最短表示輸出數字，整數不帶小數點
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
