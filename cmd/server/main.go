package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/api/handler"
	"github.com/baratadiego/appestagio/internal/api/router"
	"github.com/baratadiego/appestagio/internal/job"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/database"
	"github.com/baratadiego/appestagio/pkg/jwt"
	applogger "github.com/baratadiego/appestagio/pkg/logger"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/redis"
	"github.com/baratadiego/appestagio/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认位置查找")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
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
		zap.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level == "debug", logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级运行，登出与限流只在本进程生效）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、登录限流与扫描锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 文件存储与指标
	store, err := storage.NewLocalStorage(cfg.Storage.Root)
	if err != nil {
		logger.Fatal("初始化文件存储失败", zap.Error(err), zap.String("root", cfg.Storage.Root))
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)

	var blacklist service.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}
	svc, err := service.NewService(cfg, repo, jwtMgr, blacklist, store, m, logger)
	if err != nil {
		logger.Fatal("初始化业务服务失败", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	if cfg.Feature.SeedAdmin {
		if err := svc.Auth.SeedAdmin(context.Background(), cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("初始化管理员账号失败", zap.Error(err))
		}
	}

	// 7. 截止提醒调度
	var scheduler *job.Scheduler
	if cfg.Scheduler.Enabled {
		opts := job.ScannerOptions{
			LookaheadDays: cfg.Scheduler.LookaheadDays,
			LockTTL:       cfg.Scheduler.LockTTL,
			Stats:         svc.Statistics,
			Metrics:       m,
		}
		if rdb != nil {
			opts.Locker = rdb
		}
		scanner := job.NewDeadlineScanner(repo.Internship, repo.Notification, opts, logger)
		scheduler, err = job.NewScheduler(&cfg.Scheduler, scanner, logger)
		if err != nil {
			logger.Fatal("初始化调度器失败", zap.Error(err))
		}
		scheduler.Start()
	}

	// 8. 初始化路由并启动 HTTP 服务器
	engine := router.Setup(cfg, h, jwtMgr, rdb, m, reg, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // 导出与下载可能较慢
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("等待扫描任务结束超时", zap.Error(err))
		}
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
