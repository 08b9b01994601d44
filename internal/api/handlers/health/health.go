package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-nutrition/internal/api/middleware"
	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/catalog"
	"recipe-nutrition/internal/core/relay"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Catalog   *CatalogStatus         `json:"catalog,omitempty"`
	Queue     *relay.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// CatalogStatus 靜態資料狀態
type CatalogStatus struct {
	Recipes           int    `json:"recipes"`
	DictionaryEntries int    `json:"dictionary_entries"`
	DictionaryLoaded  bool   `json:"dictionary_loaded"`
	DictionaryError   string `json:"dictionary_error,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	v, _ := c.Get(middleware.ContextKeyConfig)
	cfg, ok := v.(*config.Config)
	if !ok {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, common.ErrInternalError.Response(false))
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Catalog: catalogStatus(c),
	}

	if r, ok := c.Get(middleware.ContextKeyRelay); ok {
		if rl, ok := r.(*relay.Relay); ok {
			status := rl.Status()
			response.Queue = &status
		}
	}
	if s, ok := c.Get(middleware.ContextKeyCache); ok {
		if store, ok := s.(cache.Store); ok {
			response.Cache = store.Stats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 食譜目錄載入後才算就緒
func ReadinessCheck(c *gin.Context) {
	status := catalogStatus(c)
	if status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "catalog not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"catalog": status,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func catalogStatus(c *gin.Context) *CatalogStatus {
	v, ok := c.Get(middleware.ContextKeyCatalog)
	if !ok {
		return nil
	}
	cat, ok := v.(*catalog.Catalog)
	if !ok || cat == nil {
		return nil
	}

	status := &CatalogStatus{
		Recipes:           len(cat.Recipes),
		DictionaryEntries: len(cat.Dictionary),
		DictionaryLoaded:  cat.DictionaryErr == nil,
	}
	if cat.DictionaryErr != nil {
		status.DictionaryError = cat.DictionaryErr.Error()
	}
	return status
}
