package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// DefaultSpec 默认每天 08:00（机构时区）
const DefaultSpec = "0 8 * * *"

// Scheduler 按 cron 表达式周期性触发截止提醒扫描
type Scheduler struct {
	cron    *cron.Cron
	scanner *DeadlineScanner
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger
	entryID cron.EntryID
}

// NewScheduler 创建调度器，spec 在机构时区下解释
func NewScheduler(cfg *config.SchedulerConfig, scanner *DeadlineScanner, logger *zap.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scanner: scanner,
		loc:     loc,
		timeout: cfg.LockTTL,
		logger:  logger,
	}

	s.entryID, err = s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("无效的 cron 表达式 %q: %w", spec, err)
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("截止提醒调度已启动", zap.Time("next_run", s.Next()))
}

// Stop 停止调度并等待正在执行的扫描结束，最长等待到 ctx 取消
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next 下一次触发时间
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunNow 以机构时区的今天立即扫描一次
func (s *Scheduler) RunNow(ctx context.Context) (*ScanResult, error) {
	return s.scanner.Run(ctx, timeutil.Today(s.loc))
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.RunNow(ctx); err != nil {
		if errors.Is(err, ErrScanLocked) {
			s.logger.Info("其他实例正在扫描，本次跳过")
			return
		}
		s.logger.Error("定时截止提醒扫描失败", zap.Error(err))
	}
}

// cronLogger 把 cron 的内部日志转到 zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
