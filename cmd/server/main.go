package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"effitrack/backend/config"
	"effitrack/backend/internal/api/handler"
	"effitrack/backend/internal/api/router"
	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/repository"
	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/database"
	"effitrack/backend/pkg/localstore"
	applogger "effitrack/backend/pkg/logger"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 加载团队目录
	registry, err := catalog.Load()
	if err != nil {
		logger.Fatal("加载团队目录失败", zap.Error(err))
	}

	// 4. 连接远端数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 4.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接本地状态存储（本地优先架构的主存储，必须可用）
	store, err := localstore.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("本地状态存储连接失败", zap.Error(err))
	}

	// 6. 表格镜像
	sheet, err := repository.NewSheetMirror(cfg.Sync.SheetMirrorDir, logger)
	if err != nil {
		logger.Fatal("表格镜像初始化失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)

	// 7.1 目录落库（远端不可达时降级启动，本地流程不受影响）
	syncCtx, syncCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.SyncCatalog(syncCtx, registry); err != nil {
		logger.Warn("团队目录落库失败，远端同步将在重试时补齐", zap.Error(err))
	}
	syncCancel()

	svc := service.NewService(registry, repo, sheet, store, cfg, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, store, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭本地状态存储
	store.Close()

	logger.Info("服务器已关闭")
}
