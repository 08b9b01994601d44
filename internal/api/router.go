package api

import (
	"errors"
	"fmt"
	"time"

	"recipe-nutrition/internal/api/handlers/health"
	nutritionHandler "recipe-nutrition/internal/api/handlers/nutrition"
	relayHandler "recipe-nutrition/internal/api/handlers/relay"
	"recipe-nutrition/internal/api/middleware"
	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/catalog"
	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/relay"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Catalog *catalog.Catalog
	Engine  *nutrition.Engine
	Relay   *relay.Relay
	Cache   cache.Store
}

// Router 路由與其背景資源
type Router struct {
	*gin.Engine
	dedup   *middleware.Deduplicator
	limiter *middleware.ClientRateLimiter
}

// Close 停止中間件的背景工作
func (r *Router) Close() {
	r.dedup.Close()
	if r.limiter != nil {
		r.limiter.Close()
	}
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*Router, error) {
	if deps.Engine == nil {
		return nil, errors.New("nutrition engine is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 未列出的代理送來的 X-Forwarded-For 一律忽略
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "X-Stream-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	injected := map[string]interface{}{middleware.ContextKeyConfig: cfg}
	if deps.Catalog != nil {
		injected[middleware.ContextKeyCatalog] = deps.Catalog
	}
	if deps.Relay != nil {
		injected[middleware.ContextKeyRelay] = deps.Relay
	}
	if deps.Cache != nil {
		injected[middleware.ContextKeyCache] = deps.Cache
	}
	router.Use(middleware.Inject(injected))

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	nh := nutritionHandler.NewHandler(deps.Engine, cfg.App.Debug)

	// 舊版前端使用的路徑
	router.GET("/api/recipesMVP", nh.ListRecipes)
	router.POST("/api/calculate", nh.Calculate)

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	var limiter *middleware.ClientRateLimiter

	v1 := router.Group("/api/v1")
	{
		v1.GET("/recipes", nh.ListRecipes)
		v1.POST("/calculate", nh.Calculate)

		if deps.Relay != nil {
			rh := relayHandler.NewHandler(deps.Relay, cfg.App.Debug)

			relayGroup := v1.Group("/relay")
			if cfg.RateLimit.Enabled {
				limiter = middleware.NewClientRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
				relayGroup.Use(limiter.Middleware())
			}
			relayGroup.Use(dedup.Middleware())
			relayGroup.GET("/generate", rh.Generate)
			relayGroup.POST("/generate", rh.Generate)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Int("recipes", deps.Engine.Size()),
		zap.Bool("relay_enabled", deps.Relay != nil),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return &Router{Engine: router, dedup: dedup, limiter: limiter}, nil
}
