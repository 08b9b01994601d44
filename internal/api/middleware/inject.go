package middleware

import (
	"github.com/gin-gonic/gin"
)

// gin context 中的共用依賴鍵
const (
	ContextKeyConfig  = "config"
	ContextKeyCatalog = "catalog"
	ContextKeyRelay   = "relay"
	ContextKeyCache   = "cache"
)

// Inject 將共用依賴放入 gin context；值為 nil 時略過
func Inject(values map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range values {
			if v != nil {
				c.Set(k, v)
			}
		}
		c.Next()
	}
}
