package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// StatisticsService 仪表盘统计
type StatisticsService interface {
	// Recompute 全量重算并原地覆盖唯一的快照行；并发重算以最后写入为准
	Recompute(ctx context.Context) (*model.StatisticsSnapshot, error)
	Get(ctx context.Context, caller policy.Principal) (*dto.StatisticsResponse, error)
	MonthlyTrends(ctx context.Context, caller policy.Principal) ([]dto.MonthlyTrend, error)
	CourseDistribution(ctx context.Context, caller policy.Principal) ([]dto.CourseCount, error)
}

type statisticsService struct {
	repo    *repository.Repository
	clock   clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewStatisticsService 创建 StatisticsService 实例
func NewStatisticsService(repo *repository.Repository, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) StatisticsService {
	return newStatisticsService(repo, newClock(loc), m, logger)
}

func newStatisticsService(repo *repository.Repository, clk clock, m *metrics.Metrics, logger *zap.Logger) StatisticsService {
	return &statisticsService{repo: repo, clock: clk, metrics: m, logger: logger}
}

// ────────────────────── Recompute ──────────────────────

func (s *statisticsService) Recompute(ctx context.Context) (*model.StatisticsSnapshot, error) {
	snap := &model.StatisticsSnapshot{Singleton: true}
	var byStatus, unreadByType []repository.GroupCount

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	active := true
	count(&snap.TotalInterns, func(c context.Context) (int64, error) {
		return s.repo.Intern.Count(c, repository.InternFilter{})
	})
	count(&snap.ActiveInterns, func(c context.Context) (int64, error) {
		return s.repo.Intern.Count(c, repository.InternFilter{Status: model.InternActive})
	})
	count(&snap.TotalInternships, func(c context.Context) (int64, error) {
		return s.repo.Internship.Count(c, repository.InternshipFilter{})
	})
	count(&snap.InProgressCount, func(c context.Context) (int64, error) {
		return s.repo.Internship.Count(c, repository.InternshipFilter{Status: model.InternshipInProgress})
	})
	count(&snap.TotalAgreements, func(c context.Context) (int64, error) {
		return s.repo.Agreement.Count(c, repository.AgreementFilter{})
	})
	count(&snap.ActiveAgreements, func(c context.Context) (int64, error) {
		return s.repo.Agreement.Count(c, repository.AgreementFilter{IsActive: &active})
	})
	count(&snap.TotalDocuments, s.repo.Document.Count)
	count(&snap.UnreadNotifications, s.repo.Notification.CountUnread)
	g.Go(func() error {
		var err error
		byStatus, err = s.repo.Internship.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unreadByType, err = s.repo.Notification.CountUnreadByType(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.metrics.IncRecompute("error")
		s.logger.Error("统计计数失败", zap.Error(err))
		return nil, err
	}

	breakdown := model.StatisticsBreakdown{
		InternshipsByStatus: make(map[string]int64, len(model.AllInternshipStatuses)),
		UnreadByType:        map[string]int64{model.NotificationInfo: 0, model.NotificationAlert: 0, model.NotificationUrgent: 0},
	}
	for _, st := range model.AllInternshipStatuses {
		breakdown.InternshipsByStatus[string(st)] = 0
	}
	for _, r := range byStatus {
		breakdown.InternshipsByStatus[r.Key] = r.Total
	}
	for _, r := range unreadByType {
		breakdown.UnreadByType[r.Key] = r.Total
	}
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("序列化统计分组失败: %w", err)
	}
	snap.Breakdown = datatypes.JSON(raw)
	snap.ComputedAt = s.clock.now().UTC()

	if err := s.repo.Statistics.Save(ctx, snap); err != nil {
		s.metrics.IncRecompute("error")
		s.logger.Error("保存统计快照失败", zap.Error(err))
		return nil, err
	}
	s.metrics.IncRecompute("ok")
	return snap, nil
}

// ────────────────────── Get ──────────────────────

// Get 先重算；重算失败时退回到已存的快照
func (s *statisticsService) Get(ctx context.Context, caller policy.Principal) (*dto.StatisticsResponse, error) {
	if err := policy.Check(caller, policy.ViewStatistics, policy.Target{}); err != nil {
		return nil, err
	}

	snap, err := s.Recompute(ctx)
	if err != nil {
		stored, getErr := s.repo.Statistics.Get(ctx)
		if getErr != nil {
			return nil, err
		}
		s.logger.Warn("统计重算失败，返回上次快照", zap.Time("computed_at", stored.ComputedAt), zap.Error(err))
		snap = stored
	}

	var breakdown model.StatisticsBreakdown
	if len(snap.Breakdown) > 0 {
		if err := json.Unmarshal(snap.Breakdown, &breakdown); err != nil {
			s.logger.Warn("解析统计分组失败", zap.Error(err))
		}
	}

	today := s.clock.today()
	until := timeutil.AddDays(today, EndingSoonDays)
	endingSoon, err := s.repo.Internship.Count(ctx, repository.InternshipFilter{
		Status:  model.InternshipInProgress,
		EndFrom: &today,
		EndTo:   &until,
	})
	if err != nil {
		s.logger.Error("统计即将结束的实习失败", zap.Error(err))
		return nil, err
	}
	recentDocs, err := s.repo.Document.CountUploadedSince(ctx, s.clock.now().UTC().Add(-EndingSoonDays*24*time.Hour))
	if err != nil {
		s.logger.Error("统计近期文档失败", zap.Error(err))
		return nil, err
	}

	return &dto.StatisticsResponse{
		TotalInterns:            snap.TotalInterns,
		ActiveInterns:           snap.ActiveInterns,
		TotalInternships:        snap.TotalInternships,
		InProgressInternships:   snap.InProgressCount,
		TotalAgreements:         snap.TotalAgreements,
		ActiveAgreements:        snap.ActiveAgreements,
		TotalDocuments:          snap.TotalDocuments,
		UnreadNotifications:     snap.UnreadNotifications,
		ComputedAt:              formatTime(snap.ComputedAt),
		ActiveInternsPercent:    percent(snap.ActiveInterns, snap.TotalInterns),
		InProgressPercent:       percent(snap.InProgressCount, snap.TotalInternships),
		ActiveAgreementsPercent: percent(snap.ActiveAgreements, snap.TotalAgreements),
		EndingWithin30Days:      endingSoon,
		DocumentsLast30Days:     recentDocs,
		UnreadByType:            breakdown.UnreadByType,
		InternshipsByStatus:     breakdown.InternshipsByStatus,
	}, nil
}

// ────────────────────── 趋势与分布 ──────────────────────

func (s *statisticsService) MonthlyTrends(ctx context.Context, caller policy.Principal) ([]dto.MonthlyTrend, error) {
	if err := policy.Check(caller, policy.ViewStatistics, policy.Target{}); err != nil {
		return nil, err
	}
	rows, err := s.repo.Intern.CountByMonth(ctx)
	if err != nil {
		s.logger.Error("按月统计实习生失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.MonthlyTrend, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.MonthlyTrend{Month: r.Month.Format("2006-01"), Total: r.Total})
	}
	return result, nil
}

func (s *statisticsService) CourseDistribution(ctx context.Context, caller policy.Principal) ([]dto.CourseCount, error) {
	if err := policy.Check(caller, policy.ViewStatistics, policy.Target{}); err != nil {
		return nil, err
	}
	rows, err := s.repo.Intern.CountByCourse(ctx)
	if err != nil {
		s.logger.Error("按课程统计实习生失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.CourseCount, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.CourseCount{Course: r.Key, Total: r.Total})
	}
	return result, nil
}

// percent 保留两位小数，分母为 0 时为 0
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
