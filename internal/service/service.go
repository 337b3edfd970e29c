package service

import (
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/pkg/jwt"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Intern       InternService
	Agreement    AgreementService
	Internship   InternshipService
	Document     DocumentService
	Notification NotificationService
	Statistics   StatisticsService
	Report       ReportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	store storage.Storage,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Service, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	clk := newClock(loc)

	stats := newStatisticsService(repo, clk, m, logger)
	// 写操作后刷新快照可按配置关闭，仪表盘读取时总会重算
	var hook StatisticsService
	if cfg.Feature.RecomputeStatsOnWrite {
		hook = stats
	}

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Intern:       NewInternService(repo, store, clk, hook, logger),
		Agreement:    NewAgreementService(repo, store, clk, hook, logger),
		Internship:   NewInternshipService(repo, store, clk, hook, m, logger),
		Document:     NewDocumentService(repo, store, cfg.Storage, clk, hook, logger),
		Notification: NewNotificationService(repo, clk, hook, logger),
		Statistics:   stats,
		Report:       NewReportService(repo, clk, logger),
	}, nil
}
