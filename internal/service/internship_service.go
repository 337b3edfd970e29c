package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/storage"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// ── 实习记录模块业务错误 ──

var (
	ErrInternshipNotFound = fmt.Errorf("实习%w", pkgerrors.ErrNotFound)
	ErrInvalidTransition  = errors.New("当前状态不允许该操作")
)

// 状态流转时发给实习生的通知
const (
	TitleInternshipFinished = "Estágio Finalizado"
	TitleInternshipCanceled = "Estágio Cancelado"

	cancelReasonPrefix  = "\n\nMotivo do cancelamento: "
	suspendReasonPrefix = "\n\nMotivo da suspensão: "

	// EndingSoonDays 仪表盘"即将结束"的天数
	EndingSoonDays = 30
)

// InternshipService 实习记录业务接口，含状态流转
type InternshipService interface {
	Create(ctx context.Context, caller policy.Principal, req *dto.CreateInternshipRequest) (*dto.InternshipResponse, error)
	GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.InternshipResponse, error)
	List(ctx context.Context, caller policy.Principal, req *dto.InternshipListRequest) ([]dto.InternshipResponse, int64, error)
	Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateInternshipRequest) (*dto.InternshipResponse, error)
	Delete(ctx context.Context, caller policy.Principal, id string) error

	// Finish IN_PROGRESS → FINISHED，并给实习生发送 INFO 通知
	Finish(ctx context.Context, caller policy.Principal, id string) (*dto.InternshipResponse, error)
	// Cancel IN_PROGRESS / SUSPENDED → CANCELED，原因追加到备注，并发送 ALERT 通知
	Cancel(ctx context.Context, caller policy.Principal, id, reason string) (*dto.InternshipResponse, error)
	// Suspend IN_PROGRESS → SUSPENDED，由管理员在系统外部情况变化时操作，不发通知
	Suspend(ctx context.Context, caller policy.Principal, id, reason string) (*dto.InternshipResponse, error)

	EndingSoon(ctx context.Context, caller policy.Principal, days int) ([]dto.InternshipResponse, error)
	Documents(ctx context.Context, caller policy.Principal, id string) ([]dto.DocumentResponse, error)
}

type internshipService struct {
	repo    *repository.Repository
	store   storage.Storage
	clock   clock
	hook    statsHook
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewInternshipService 创建 InternshipService 实例
func NewInternshipService(
	repo *repository.Repository,
	store storage.Storage,
	clk clock,
	stats StatisticsService,
	m *metrics.Metrics,
	logger *zap.Logger,
) InternshipService {
	return &internshipService{
		repo:    repo,
		store:   store,
		clock:   clk,
		hook:    statsHook{stats: stats, logger: logger},
		metrics: m,
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *internshipService) Create(ctx context.Context, caller policy.Principal, req *dto.CreateInternshipRequest) (*dto.InternshipResponse, error) {
	if err := policy.Check(caller, policy.ManageInternship, policy.Target{}); err != nil {
		return nil, err
	}

	var errs validation.Errors
	start, err := validation.Date("start_date", req.StartDate)
	errs.Add(err)
	end, err := validation.Date("end_date", req.EndDate)
	errs.Add(err)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	intern, err := s.repo.Intern.GetByID(ctx, req.InternID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInternNotFound
		}
		s.logger.Error("查询实习生失败", zap.String("intern_id", req.InternID), zap.Error(err))
		return nil, err
	}
	agreement, err := s.activeAgreement(ctx, req.AgreementID)
	if err != nil {
		return nil, err
	}

	internship := &model.Internship{
		InternID:        intern.InternID,
		AgreementID:     agreement.AgreementID,
		SupervisorName:  strings.TrimSpace(req.SupervisorName),
		SupervisorEmail: optionalString(req.SupervisorEmail),
		WeeklyHours:     req.WeeklyHours,
		StartDate:       start,
		EndDate:         end,
		Status:          model.InternshipInProgress,
		Notes:           strings.TrimSpace(req.Notes),
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.validate(ctx, tx, internship); err != nil {
			return err
		}
		return tx.Internship.Create(ctx, internship)
	})
	if err != nil {
		if !isValidationError(err) {
			s.logger.Error("创建实习记录失败", zap.Error(err))
		}
		return nil, err
	}
	internship.Intern = intern
	internship.Agreement = agreement

	s.hook.refresh(ctx)
	resp := toInternshipResponse(internship, s.clock.today())
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *internshipService) GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.InternshipResponse, error) {
	internship, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewInternship, internshipTarget(internship)); err != nil {
		return nil, err
	}
	resp := toInternshipResponse(internship, s.clock.today())
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *internshipService) List(ctx context.Context, caller policy.Principal, req *dto.InternshipListRequest) ([]dto.InternshipResponse, int64, error) {
	filter := repository.InternshipFilter{
		Status:      model.InternshipStatus(req.Status),
		InternID:    req.InternID,
		AgreementID: req.AgreementID,
		Search:      strings.TrimSpace(req.Search),
	}
	return s.list(ctx, caller, filter, req.Offset(), req.GetPageSize())
}

// EndingSoon 进行中且在 days 天内结束的实习
func (s *internshipService) EndingSoon(ctx context.Context, caller policy.Principal, days int) ([]dto.InternshipResponse, error) {
	if days <= 0 {
		days = EndingSoonDays
	}
	today := s.clock.today()
	until := timeutil.AddDays(today, days)
	filter := repository.InternshipFilter{
		Status:  model.InternshipInProgress,
		EndFrom: &today,
		EndTo:   &until,
	}
	list, _, err := s.list(ctx, caller, filter, 0, 0)
	return list, err
}

// ────────────────────── Update ──────────────────────

// Update 修改实习信息；状态只能通过流转动作改变
func (s *internshipService) Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateInternshipRequest) (*dto.InternshipResponse, error) {
	if err := policy.Check(caller, policy.ManageInternship, policy.Target{}); err != nil {
		return nil, err
	}
	internship, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != internship.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	var errs validation.Errors
	if req.StartDate != nil {
		start, err := validation.Date("start_date", *req.StartDate)
		errs.Add(err)
		internship.StartDate = start
	}
	if req.EndDate != nil {
		end, err := validation.Date("end_date", *req.EndDate)
		errs.Add(err)
		internship.EndDate = end
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if req.AgreementID != nil && *req.AgreementID != internship.AgreementID {
		agreement, err := s.activeAgreement(ctx, *req.AgreementID)
		if err != nil {
			return nil, err
		}
		internship.AgreementID = agreement.AgreementID
		internship.Agreement = agreement
	}
	if req.SupervisorName != nil {
		internship.SupervisorName = strings.TrimSpace(*req.SupervisorName)
	}
	if req.SupervisorEmail != nil {
		internship.SupervisorEmail = optionalString(*req.SupervisorEmail)
	}
	if req.WeeklyHours != nil {
		internship.WeeklyHours = *req.WeeklyHours
	}
	if req.Notes != nil {
		internship.Notes = strings.TrimSpace(*req.Notes)
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.validate(ctx, tx, internship); err != nil {
			return err
		}
		return tx.Internship.Update(ctx, internship)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) && !isValidationError(err) {
			s.logger.Error("更新实习记录失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	resp := toInternshipResponse(internship, s.clock.today())
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 行锁阻塞并发上传，文档路径与删除在同一事务中完成；文件在提交后清理
func (s *internshipService) Delete(ctx context.Context, caller policy.Principal, id string) error {
	if err := policy.Check(caller, policy.ManageInternship, policy.Target{}); err != nil {
		return err
	}

	var docs []model.Document
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ids, err := tx.Internship.LockForDelete(ctx, repository.DeleteScope{InternshipID: id})
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrInternshipNotFound
		}
		if docs, err = documentsOf(ctx, tx, repository.DocumentFilter{InternshipID: id}); err != nil {
			return err
		}
		return tx.Internship.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrInternshipNotFound) {
			s.logger.Error("删除实习记录失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	purgeFiles(ctx, s.store, docs, s.logger)
	s.hook.refresh(ctx)
	return nil
}

// ────────────────────── 状态流转 ──────────────────────

func (s *internshipService) Finish(ctx context.Context, caller policy.Principal, id string) (*dto.InternshipResponse, error) {
	return s.transition(ctx, caller, id, model.ActionFinish, "")
}

func (s *internshipService) Cancel(ctx context.Context, caller policy.Principal, id, reason string) (*dto.InternshipResponse, error) {
	return s.transition(ctx, caller, id, model.ActionCancel, reason)
}

func (s *internshipService) Suspend(ctx context.Context, caller policy.Principal, id, reason string) (*dto.InternshipResponse, error) {
	return s.transition(ctx, caller, id, model.ActionSuspend, reason)
}

// transition 状态更新与通知写入在同一事务中，任一失败整体回滚
func (s *internshipService) transition(ctx context.Context, caller policy.Principal, id string, action model.LifecycleAction, reason string) (*dto.InternshipResponse, error) {
	internship, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	perm := policy.TransitionInternship
	if action == model.ActionSuspend {
		perm = policy.SuspendInternship
	}
	if err := policy.Check(caller, perm, internshipTarget(internship)); err != nil {
		return nil, err
	}

	from := internship.Status
	to, ok := from.Next(action)
	if !ok {
		s.metrics.IncTransition(string(action), "rejected")
		return nil, fmt.Errorf("%w: %s 状态不能执行 %s", ErrInvalidTransition, from, action)
	}

	notification, err := s.lifecycleNotification(ctx, internship, action)
	if err != nil {
		return nil, err
	}

	internship.Status = to
	if reason = strings.TrimSpace(reason); reason != "" {
		switch action {
		case model.ActionCancel:
			internship.Notes = strings.TrimSpace(internship.Notes + cancelReasonPrefix + reason)
		case model.ActionSuspend:
			internship.Notes = strings.TrimSpace(internship.Notes + suspendReasonPrefix + reason)
		}
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Internship.Update(ctx, internship); err != nil {
			return err
		}
		if notification == nil {
			return nil
		}
		if err := tx.Notification.Create(ctx, notification); err != nil {
			return fmt.Errorf("发送状态通知失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.IncTransition(string(action), "error")
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("实习状态流转失败",
				zap.String("id", id),
				zap.String("action", string(action)),
				zap.String("from", string(from)),
				zap.Error(err))
		}
		return nil, err
	}

	s.metrics.IncTransition(string(action), "ok")
	s.logger.Info("实习状态已变更",
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	s.hook.refresh(ctx)

	resp := toInternshipResponse(internship, s.clock.today())
	return &resp, nil
}

// lifecycleNotification 流转动作对应的通知；暂停不通知
func (s *internshipService) lifecycleNotification(ctx context.Context, internship *model.Internship, action model.LifecycleAction) (*model.Notification, error) {
	var title, verb, typ string
	switch action {
	case model.ActionFinish:
		title, verb, typ = TitleInternshipFinished, "finalizado", model.NotificationInfo
	case model.ActionCancel:
		title, verb, typ = TitleInternshipCanceled, "cancelado", model.NotificationAlert
	default:
		return nil, nil
	}

	agreement := internship.Agreement
	if agreement == nil {
		var err error
		if agreement, err = s.repo.Agreement.GetByID(ctx, internship.AgreementID); err != nil {
			if isNotFound(err) {
				return nil, ErrAgreementNotFound
			}
			s.logger.Error("查询合作协议失败", zap.String("id", internship.AgreementID), zap.Error(err))
			return nil, err
		}
	}

	return &model.Notification{
		InternID: internship.InternID,
		Title:    title,
		Message:  fmt.Sprintf("Seu estágio na empresa %s foi %s.", agreement.CompanyName, verb),
		Type:     typ,
		SentAt:   s.clock.now().UTC(),
	}, nil
}

// ────────────────────── Documents ──────────────────────

func (s *internshipService) Documents(ctx context.Context, caller policy.Principal, id string) ([]dto.DocumentResponse, error) {
	internship, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewDocument, internshipTarget(internship)); err != nil {
		return nil, err
	}

	docs, _, err := s.repo.Document.List(ctx, repository.DocumentFilter{InternshipID: id}, 0, 0)
	if err != nil {
		s.logger.Error("查询实习文档失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		result = append(result, toDocumentResponse(&docs[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *internshipService) get(ctx context.Context, id string) (*model.Internship, error) {
	internship, err := s.repo.Internship.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInternshipNotFound
		}
		s.logger.Error("查询实习记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return internship, nil
}

func (s *internshipService) list(ctx context.Context, caller policy.Principal, filter repository.InternshipFilter, offset, limit int) ([]dto.InternshipResponse, int64, error) {
	if err := policy.Check(caller, policy.ViewInternship, policy.Target{InternEmail: caller.Email}); err != nil {
		return nil, 0, err
	}
	if caller.Kind == policy.KindIntern {
		filter.InternEmail = caller.Email
	}

	internships, total, err := s.repo.Internship.List(ctx, filter, offset, limit)
	if err != nil {
		s.logger.Error("列出实习记录失败", zap.Error(err))
		return nil, 0, err
	}
	today := s.clock.today()
	result := make([]dto.InternshipResponse, 0, len(internships))
	for i := range internships {
		result = append(result, toInternshipResponse(&internships[i], today))
	}
	return result, total, nil
}

func (s *internshipService) activeAgreement(ctx context.Context, id string) (*model.HostAgreement, error) {
	agreement, err := s.repo.Agreement.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAgreementNotFound
		}
		s.logger.Error("查询合作协议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !agreement.IsActive {
		return nil, ErrAgreementInactive
	}
	return agreement, nil
}

// validate 字段规则 + 与同一实习生其他进行中实习的期间冲突检查
// validate 在 tx 内先锁住该实习生，再读取其进行中的实习做重叠检查
func (s *internshipService) validate(ctx context.Context, tx *repository.Repository, internship *model.Internship) error {
	if err := tx.Internship.LockIntern(ctx, internship.InternID); err != nil {
		s.logger.Error("锁定实习生失败", zap.String("intern_id", internship.InternID), zap.Error(err))
		return err
	}
	others, err := tx.Internship.ListActiveByIntern(ctx, internship.InternID, internship.InternshipID)
	if err != nil {
		s.logger.Error("查询进行中的实习失败", zap.String("intern_id", internship.InternID), zap.Error(err))
		return err
	}
	return validation.Internship(validation.InternshipInput{
		ID:             internship.InternshipID,
		SupervisorName: internship.SupervisorName,
		WeeklyHours:    internship.WeeklyHours,
		StartDate:      internship.StartDate,
		EndDate:        internship.EndDate,
		Status:         internship.Status,
	}, others)
}

func toInternshipResponse(i *model.Internship, today time.Time) dto.InternshipResponse {
	resp := dto.InternshipResponse{
		ID:              i.InternshipID,
		InternID:        i.InternID,
		AgreementID:     i.AgreementID,
		SupervisorName:  i.SupervisorName,
		SupervisorEmail: i.SupervisorEmailValue(),
		WeeklyHours:     i.WeeklyHours,
		StartDate:       timeutil.Format(i.StartDate),
		EndDate:         timeutil.Format(i.EndDate),
		DurationDays:    timeutil.DaysBetween(i.StartDate, i.EndDate),
		Status:          string(i.Status),
		Notes:           i.Notes,
		Version:         i.Version,
		CreatedAt:       formatTime(i.CreatedAt),
		UpdatedAt:       formatTime(i.UpdatedAt),
	}
	if i.Intern != nil {
		resp.InternName = i.Intern.Name
	}
	if i.Agreement != nil {
		resp.CompanyName = i.Agreement.CompanyName
	}
	if i.Status == model.InternshipInProgress {
		if left := timeutil.DaysBetween(today, i.EndDate); left > 0 {
			resp.RemainingDays = left
		}
	}
	return resp
}
