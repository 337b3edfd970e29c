// Package job 后台定时任务
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// 截止提醒的固定标题，同时作为 (intern_id, dedup_key) 的去重键
const (
	ReminderTitle       = "Prazo do Estágio"
	reminderMessageFmt  = "Seu estágio termina em breve: %s"
	DefaultLookaheadDay = 3
	scanLockName        = "deadline-scan"
)

// ErrScanLocked 另一个扫描正在进行
var ErrScanLocked = errors.New("截止提醒扫描正在进行中")

// Locker 分布式运行锁，由 pkg/redis.Client 实现
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// StatsRecomputer 扫描产生新提醒后刷新统计快照
type StatsRecomputer interface {
	Recompute(ctx context.Context) (*model.StatisticsSnapshot, error)
}

// ScanFailure 单条实习记录处理失败
type ScanFailure struct {
	InternshipID string
	InternID     string
	Err          error
}

// ScanResult 一次扫描的结果
type ScanResult struct {
	Date     time.Time
	WindowTo time.Time
	Selected int
	Created  int
	Existing int
	Failures []ScanFailure
}

// Failed 失败条数
func (r *ScanResult) Failed() int { return len(r.Failures) }

// ScannerOptions 扫描器可选依赖
type ScannerOptions struct {
	LookaheadDays int
	Locker        Locker
	LockTTL       time.Duration
	Stats         StatsRecomputer
	Metrics       *metrics.Metrics
}

// DeadlineScanner 为即将结束的进行中实习生成一次性提醒
type DeadlineScanner struct {
	internships   repository.InternshipRepository
	notifications repository.NotificationRepository
	lookahead     int
	locker        Locker
	lockTTL       time.Duration
	stats         StatsRecomputer
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewDeadlineScanner 创建扫描器；LookaheadDays 为 0 时使用默认的 3 天
func NewDeadlineScanner(
	internships repository.InternshipRepository,
	notifications repository.NotificationRepository,
	opts ScannerOptions,
	logger *zap.Logger,
) *DeadlineScanner {
	lookahead := opts.LookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDay
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &DeadlineScanner{
		internships:   internships,
		notifications: notifications,
		lookahead:     lookahead,
		locker:        opts.Locker,
		lockTTL:       lockTTL,
		stats:         opts.Stats,
		metrics:       opts.Metrics,
		logger:        logger,
	}
}

// Window 返回 today 对应的提醒窗口 [today, today+W]，两端包含
func (s *DeadlineScanner) Window(today time.Time) (from, to time.Time) {
	from = timeutil.Normalize(today)
	return from, timeutil.AddDays(from, s.lookahead)
}

// Run 扫描一次。对同一天重复执行不会产生重复提醒。
// 单条记录失败只记入 ScanResult.Failures，不中断其余记录；
// 只有查询候选记录失败或运行锁被占用时返回 error。
func (s *DeadlineScanner) Run(ctx context.Context, today time.Time) (*ScanResult, error) {
	started := time.Now()

	if s.locker != nil {
		token, ok, err := s.locker.AcquireLock(ctx, scanLockName, s.lockTTL)
		switch {
		case err != nil:
			// 锁服务不可用时照常扫描，幂等性由唯一索引保证
			s.logger.Warn("获取扫描锁失败，继续执行", zap.Error(err))
		case !ok:
			s.metrics.ObserveScan("skipped", 0, 0, time.Since(started))
			return nil, ErrScanLocked
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), scanLockName, token); err != nil {
					s.logger.Warn("释放扫描锁失败", zap.Error(err))
				}
			}()
		}
	}

	from, to := s.Window(today)
	result := &ScanResult{Date: from, WindowTo: to}

	candidates, err := s.internships.ListEndingBetween(ctx, from, to)
	if err != nil {
		s.metrics.ObserveScan("error", 0, 0, time.Since(started))
		s.logger.Error("查询即将结束的实习失败", zap.Error(err))
		return nil, fmt.Errorf("查询即将结束的实习失败: %w", err)
	}
	result.Selected = len(candidates)

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.remind(ctx, &candidates[i])
		switch {
		case err != nil:
			result.Failures = append(result.Failures, ScanFailure{
				InternshipID: candidates[i].InternshipID,
				InternID:     candidates[i].InternID,
				Err:          err,
			})
			s.logger.Error("生成截止提醒失败",
				zap.String("internship_id", candidates[i].InternshipID),
				zap.Error(err),
			)
		case created:
			result.Created++
		default:
			result.Existing++
		}
	}

	if result.Created > 0 && s.stats != nil {
		if _, err := s.stats.Recompute(ctx); err != nil {
			s.logger.Warn("扫描后刷新统计失败", zap.Error(err))
		}
	}

	outcome := "ok"
	if result.Failed() > 0 {
		outcome = "partial"
	}
	s.metrics.ObserveScan(outcome, result.Created, result.Failed(), time.Since(started))
	s.logger.Info("截止提醒扫描完成",
		zap.String("date", timeutil.Format(from)),
		zap.String("window_to", timeutil.Format(to)),
		zap.Int("selected", result.Selected),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// ── 内部辅助方法 ──

func (s *DeadlineScanner) remind(ctx context.Context, in *model.Internship) (bool, error) {
	key := ReminderTitle
	n := &model.Notification{
		InternID: in.InternID,
		Title:    ReminderTitle,
		Message:  fmt.Sprintf(reminderMessageFmt, timeutil.Format(in.EndDate)),
		Type:     model.NotificationAlert,
		SentAt:   time.Now().UTC(),
		DedupKey: &key,
	}
	return s.notifications.GetOrCreate(ctx, n)
}
