package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"stock_market/internal/api"
	"stock_market/internal/config"
	"stock_market/internal/database"
	"stock_market/internal/repository"
	"stock_market/internal/service"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}
	// 初始化日志
	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {

		}
	}(logger)
	logger.Info("配置加载成功")

	// 初始化数据库
	if err := database.InitDB(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()

	// 选择数据源：未配置上游 Token 时整个进程使用模拟数据源
	mockSource := service.NewMockDataSource()
	var primary service.DataSource = mockSource
	if cfg.Tushare.Token != "" {
		primary = service.NewTushareClient(&cfg.Tushare)
		logger.Info("上游数据源客户端初始化成功")
	} else {
		logger.Warn("未配置上游 Token，使用模拟数据源")
	}

	// 持久层与行情编排服务
	stockRepo := repository.NewStockRepository(database.GetDB())
	marketData := service.NewMarketDataService(stockRepo, primary, mockSource, &cfg.Market, logger)

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 创建 Gin 引擎
	r := gin.Default()

	// 创建 API 处理器
	handler := api.NewHandler(marketData, logger)
	handler.RegisterRoutes(r)

	// 启动服务器
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info("服务器启动", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}

// initLogger 初始化日志
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	// 创建日志目录
	if err := os.MkdirAll("./logs", 0755); err != nil {
		return nil, err
	}

	// 配置日志
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{
		"stdout",
		cfg.File,
	}

	// 设置日志级别
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
