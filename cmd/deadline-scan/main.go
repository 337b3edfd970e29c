// deadline-scan 手动执行一次截止提醒扫描，供运维补跑或在外部调度器中调用。
//
//	deadline-scan --date 2024-03-10
//	deadline-scan --config ./config/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/job"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/database"
	applogger "github.com/baratadiego/appestagio/pkg/logger"
	"github.com/baratadiego/appestagio/pkg/redis"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// 退出码
const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
	exitLocked  = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认位置查找")
	dateFlag := flag.String("date", "", "扫描日期 YYYY-MM-DD，默认机构时区的今天")
	noLock := flag.Bool("no-lock", false, "不获取 Redis 运行锁")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return exitFailed
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return exitFailed
	}
	defer logger.Sync()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "无效的时区 %q: %v\n", cfg.Scheduler.Timezone, err)
		return exitFailed
	}
	today := timeutil.Today(loc)
	if *dateFlag != "" {
		today, err = timeutil.Parse(*dateFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "无效的日期 %q，应为 YYYY-MM-DD\n", *dateFlag)
			return exitFailed
		}
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level == "debug", logger)
	if err != nil {
		logger.Error("数据库连接失败", zap.Error(err))
		return exitFailed
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	repo := repository.NewRepository(db)
	opts := job.ScannerOptions{
		LookaheadDays: cfg.Scheduler.LookaheadDays,
		LockTTL:       cfg.Scheduler.LockTTL,
	}

	if !*noLock {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 不可用，不加运行锁", zap.Error(err))
		} else {
			defer rdb.Close()
			opts.Locker = rdb
		}
	}

	opts.Stats = service.NewStatisticsService(repo, loc, nil, logger)

	timeout := cfg.Scheduler.LockTTL
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	scanner := job.NewDeadlineScanner(repo.Internship, repo.Notification, opts, logger)
	result, err := scanner.Run(ctx, today)
	switch {
	case errors.Is(err, job.ErrScanLocked):
		fmt.Fprintln(os.Stderr, "另一个扫描正在进行，本次跳过")
		return exitLocked
	case err != nil:
		fmt.Fprintf(os.Stderr, "扫描失败: %v\n", err)
		return exitFailed
	}

	fmt.Printf("日期 %s  窗口至 %s  候选 %d  新建 %d  已存在 %d  失败 %d\n",
		timeutil.Format(result.Date), timeutil.Format(result.WindowTo),
		result.Selected, result.Created, result.Existing, result.Failed())
	for _, f := range result.Failures {
		fmt.Printf("  失败 internship=%s intern=%s: %v\n", f.InternshipID, f.InternID, f.Err)
	}
	if result.Failed() > 0 {
		return exitPartial
	}
	return exitOK
}
