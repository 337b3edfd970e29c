package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = fmt.Errorf("通知%w", pkgerrors.ErrNotFound)

// NotificationService 通知业务接口
type NotificationService interface {
	Create(ctx context.Context, caller policy.Principal, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error)
	List(ctx context.Context, caller policy.Principal, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	Unread(ctx context.Context, caller policy.Principal) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error)
	MarkUnread(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error)
	// MarkAllRead internID 为空时：管理员作用于全部通知，实习生作用于本人通知
	MarkAllRead(ctx context.Context, caller policy.Principal, internID string) (int64, error)
	Delete(ctx context.Context, caller policy.Principal, id string) error
}

type notificationService struct {
	repo   *repository.Repository
	clock  clock
	hook   statsHook
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, clk clock, stats StatisticsService, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		clock:  clk,
		hook:   statsHook{stats: stats, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *notificationService) Create(ctx context.Context, caller policy.Principal, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	if err := policy.Check(caller, policy.CreateNotification, policy.Target{}); err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = model.NotificationInfo
	}
	if err := validation.ManualNotification(req.Title, req.Message, typ); err != nil {
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

	n := &model.Notification{
		InternID: intern.InternID,
		Title:    strings.TrimSpace(req.Title),
		Message:  strings.TrimSpace(req.Message),
		Type:     typ,
		SentAt:   s.clock.now().UTC(),
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("创建通知失败", zap.Error(err))
		return nil, err
	}
	n.Intern = intern

	s.hook.refresh(ctx)
	resp := toNotificationResponse(n)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *notificationService) GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error) {
	n, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewNotification, notificationTarget(n)); err != nil {
		return nil, err
	}
	resp := toNotificationResponse(n)
	return &resp, nil
}

func (s *notificationService) List(ctx context.Context, caller policy.Principal, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	if err := policy.Check(caller, policy.ViewNotification, policy.Target{InternEmail: caller.Email}); err != nil {
		return nil, 0, err
	}

	filter := repository.NotificationFilter{
		InternID: req.InternID,
		IsRead:   req.IsRead,
		Type:     req.Type,
		Search:   strings.TrimSpace(req.Search),
	}
	if caller.Kind == policy.KindIntern {
		filter.InternEmail = caller.Email
	}

	list, total, err := s.repo.Notification.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出通知失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *notificationService) Unread(ctx context.Context, caller policy.Principal) ([]dto.NotificationResponse, error) {
	unread := false
	list, _, err := s.List(ctx, caller, &dto.NotificationListRequest{
		IsRead:            &unread,
		PaginationRequest: dto.PaginationRequest{PageSize: maxUnpaged},
	})
	return list, err
}

// ────────────────────── 已读标记 ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error) {
	return s.mark(ctx, caller, id, true)
}

func (s *notificationService) MarkUnread(ctx context.Context, caller policy.Principal, id string) (*dto.NotificationResponse, error) {
	return s.mark(ctx, caller, id, false)
}

func (s *notificationService) mark(ctx context.Context, caller policy.Principal, id string, read bool) (*dto.NotificationResponse, error) {
	n, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.MarkNotification, notificationTarget(n)); err != nil {
		return nil, err
	}

	if read {
		err = s.repo.Notification.MarkRead(ctx, id, s.clock.now().UTC())
	} else {
		err = s.repo.Notification.MarkUnread(ctx, id)
	}
	if err != nil {
		s.logger.Error("更新通知已读状态失败", zap.String("id", id), zap.Bool("read", read), zap.Error(err))
		return nil, err
	}

	// 已读时间以库中为准（重复标记已读不改变原时间）
	updated, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hook.refresh(ctx)
	resp := toNotificationResponse(updated)
	return &resp, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, caller policy.Principal, internID string) (int64, error) {
	switch {
	case internID != "":
		intern, err := s.repo.Intern.GetByID(ctx, internID)
		if err != nil {
			if isNotFound(err) {
				return 0, ErrInternNotFound
			}
			s.logger.Error("查询实习生失败", zap.String("intern_id", internID), zap.Error(err))
			return 0, err
		}
		if err := policy.Check(caller, policy.MarkNotification, policy.Target{InternEmail: intern.Email}); err != nil {
			return 0, err
		}
	case caller.Kind == policy.KindIntern:
		intern, err := s.repo.Intern.GetByEmail(ctx, caller.Email)
		if err != nil {
			if isNotFound(err) {
				return 0, ErrInternNotFound
			}
			s.logger.Error("查询实习生失败", zap.String("email", caller.Email), zap.Error(err))
			return 0, err
		}
		internID = intern.InternID
	default:
		if err := policy.Check(caller, policy.MarkNotification, policy.Target{}); err != nil {
			return 0, err
		}
	}

	count, err := s.repo.Notification.MarkAllRead(ctx, internID, s.clock.now().UTC())
	if err != nil {
		s.logger.Error("批量标记已读失败", zap.String("intern_id", internID), zap.Error(err))
		return 0, err
	}
	if count > 0 {
		s.hook.refresh(ctx)
	}
	return count, nil
}

// ────────────────────── Delete ──────────────────────

func (s *notificationService) Delete(ctx context.Context, caller policy.Principal, id string) error {
	if err := policy.Check(caller, policy.DeleteNotification, policy.Target{}); err != nil {
		return err
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Notification.Delete(ctx, id); err != nil {
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.hook.refresh(ctx)
	return nil
}

// ── 内部辅助方法 ──

func (s *notificationService) get(ctx context.Context, id string) (*model.Notification, error) {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return n, nil
}

func notificationTarget(n *model.Notification) policy.Target {
	if n.Intern == nil {
		return policy.Target{}
	}
	return policy.Target{InternEmail: n.Intern.Email}
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:       n.NotificationID,
		InternID: n.InternID,
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		IsRead:   n.IsRead,
		SentAt:   formatTime(n.SentAt),
		ReadAt:   formatTimePtr(n.ReadAt),
	}
	if n.Intern != nil {
		resp.InternName = n.Intern.Name
	}
	return resp
}
