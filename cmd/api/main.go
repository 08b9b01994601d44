package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-nutrition/internal/api"
	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/catalog"
	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/relay"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("relay_provider", cfg.Relay.Provider),
		zap.String("openrouter_key", config.MaskAPIKey(cfg.Relay.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.Relay.OpenRouter.Model),
		zap.String("recipes_path", cfg.Data.RecipesPath),
		zap.String("food_dict_path", cfg.Data.FoodDictPath),
	)

	// 載入食譜與食材對照表
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	data, err := catalog.Load(loadCtx, cfg.Data.RecipesPath, cfg.Data.FoodDictPath)
	cancelLoad()
	if err != nil {
		common.LogFatal("Failed to load recipe catalog", zap.Error(err))
	}

	engine := nutrition.NewEngine(data.Recipes, nutrition.DefaultCategoryMap(), data.Dictionary)

	// 初始化快取
	store, err := cache.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	// 初始化生成轉發
	generator, err := relay.NewGenerator(&cfg.Relay)
	if err != nil {
		common.LogFatal("Failed to initialize relay", zap.Error(err))
	}
	relaySvc := relay.New(generator, relay.NewLimiter(&cfg.Queue), store)
	defer relaySvc.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Catalog: data,
		Engine:  engine,
		Relay:   relaySvc,
		Cache:   store,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}
	defer router.Close()

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Int("recipes", engine.Size()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
