package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/storage"
)

// ── 合作协议模块业务错误 ──

var (
	ErrAgreementNotFound  = fmt.Errorf("合作协议%w", pkgerrors.ErrNotFound)
	ErrAgreementDuplicate = errors.New("该企业税号已登记")
	ErrAgreementInactive  = errors.New("合作协议已停用，不能新建实习")
)

// AgreementService 合作协议业务接口
type AgreementService interface {
	Create(ctx context.Context, caller policy.Principal, req *dto.CreateAgreementRequest) (*dto.AgreementResponse, error)
	GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.AgreementResponse, error)
	List(ctx context.Context, caller policy.Principal, req *dto.AgreementListRequest) ([]dto.AgreementResponse, int64, error)
	ListActive(ctx context.Context, caller policy.Principal) ([]dto.AgreementResponse, error)
	Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateAgreementRequest) (*dto.AgreementResponse, error)
	SetActive(ctx context.Context, caller policy.Principal, id string, active bool) error
	Delete(ctx context.Context, caller policy.Principal, id string) error
	Internships(ctx context.Context, caller policy.Principal, id string) ([]dto.InternshipResponse, error)
}

type agreementService struct {
	repo   *repository.Repository
	store  storage.Storage
	clock  clock
	hook   statsHook
	logger *zap.Logger
}

// NewAgreementService 创建 AgreementService 实例
func NewAgreementService(repo *repository.Repository, store storage.Storage, clk clock, stats StatisticsService, logger *zap.Logger) AgreementService {
	return &agreementService{
		repo:   repo,
		store:  store,
		clock:  clk,
		hook:   statsHook{stats: stats, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *agreementService) Create(ctx context.Context, caller policy.Principal, req *dto.CreateAgreementRequest) (*dto.AgreementResponse, error) {
	if err := policy.Check(caller, policy.ManageAgreement, policy.Target{}); err != nil {
		return nil, err
	}

	agreement := &model.HostAgreement{
		CompanyName:  strings.TrimSpace(req.CompanyName),
		TaxID:        req.TaxID,
		Address:      strings.TrimSpace(req.Address),
		Phone:        req.Phone,
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: optionalString(req.ContactEmail),
		IsActive:     true,
	}
	if req.IsActive != nil {
		agreement.IsActive = *req.IsActive
	}
	if err := validateAgreement(agreement); err != nil {
		return nil, err
	}

	if err := s.repo.Agreement.Create(ctx, agreement); err != nil {
		if isDuplicate(err) {
			return nil, ErrAgreementDuplicate
		}
		s.logger.Error("创建合作协议失败", zap.Error(err))
		return nil, err
	}

	s.hook.refresh(ctx)
	return toAgreementResponse(agreement), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *agreementService) GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.AgreementResponse, error) {
	if err := policy.Check(caller, policy.ViewAgreement, policy.Target{}); err != nil {
		return nil, err
	}
	agreement, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAgreementResponse(agreement), nil
}

// ────────────────────── List ──────────────────────

func (s *agreementService) List(ctx context.Context, caller policy.Principal, req *dto.AgreementListRequest) ([]dto.AgreementResponse, int64, error) {
	if err := policy.Check(caller, policy.ViewAgreement, policy.Target{}); err != nil {
		return nil, 0, err
	}

	filter := repository.AgreementFilter{IsActive: req.IsActive, Search: strings.TrimSpace(req.Search)}
	agreements, total, err := s.repo.Agreement.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出合作协议失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AgreementResponse, 0, len(agreements))
	for i := range agreements {
		result = append(result, *toAgreementResponse(&agreements[i]))
	}
	return result, total, nil
}

func (s *agreementService) ListActive(ctx context.Context, caller policy.Principal) ([]dto.AgreementResponse, error) {
	active := true
	list, _, err := s.List(ctx, caller, &dto.AgreementListRequest{
		IsActive:          &active,
		PaginationRequest: dto.PaginationRequest{PageSize: maxUnpaged},
	})
	return list, err
}

// ────────────────────── Update ──────────────────────

func (s *agreementService) Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateAgreementRequest) (*dto.AgreementResponse, error) {
	if err := policy.Check(caller, policy.ManageAgreement, policy.Target{}); err != nil {
		return nil, err
	}
	agreement, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		agreement.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.TaxID != nil {
		agreement.TaxID = *req.TaxID
	}
	if req.Address != nil {
		agreement.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		agreement.Phone = *req.Phone
	}
	if req.ContactName != nil {
		agreement.ContactName = strings.TrimSpace(*req.ContactName)
	}
	if req.ContactEmail != nil {
		agreement.ContactEmail = optionalString(*req.ContactEmail)
	}
	if err := validateAgreement(agreement); err != nil {
		return nil, err
	}

	if err := s.repo.Agreement.Update(ctx, agreement); err != nil {
		if isDuplicate(err) {
			return nil, ErrAgreementDuplicate
		}
		s.logger.Error("更新合作协议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toAgreementResponse(agreement), nil
}

// ────────────────────── SetActive ──────────────────────

func (s *agreementService) SetActive(ctx context.Context, caller policy.Principal, id string, active bool) error {
	if err := policy.Check(caller, policy.ManageAgreement, policy.Target{}); err != nil {
		return err
	}
	if err := s.repo.Agreement.SetActive(ctx, id, active); err != nil {
		if isNotFound(err) {
			return ErrAgreementNotFound
		}
		s.logger.Error("切换合作协议状态失败", zap.String("id", id), zap.Bool("active", active), zap.Error(err))
		return err
	}
	s.hook.refresh(ctx)
	return nil
}

// ────────────────────── Delete ──────────────────────

// Delete 级联删除该协议下的实习记录与文档。协议与其实习先加行锁，
// 文档路径与删除在同一事务中完成；文件在提交后清理
func (s *agreementService) Delete(ctx context.Context, caller policy.Principal, id string) error {
	if err := policy.Check(caller, policy.ManageAgreement, policy.Target{}); err != nil {
		return err
	}

	var docs []model.Document
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Agreement.LockForUpdate(ctx, id); err != nil {
			return err
		}
		if _, err := tx.Internship.LockForDelete(ctx, repository.DeleteScope{AgreementID: id}); err != nil {
			return err
		}
		var err error
		if docs, err = documentsOf(ctx, tx, repository.DocumentFilter{AgreementID: id}); err != nil {
			return err
		}
		return tx.Agreement.Delete(ctx, id)
	})
	if err != nil {
		if isNotFound(err) {
			return ErrAgreementNotFound
		}
		s.logger.Error("删除合作协议失败", zap.String("id", id), zap.Error(err))
		return err
	}

	purgeFiles(ctx, s.store, docs, s.logger)
	s.hook.refresh(ctx)
	return nil
}

// ────────────────────── Internships ──────────────────────

func (s *agreementService) Internships(ctx context.Context, caller policy.Principal, id string) ([]dto.InternshipResponse, error) {
	if err := policy.Check(caller, policy.ViewInternship, policy.Target{}); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	internships, _, err := s.repo.Internship.List(ctx, repository.InternshipFilter{AgreementID: id}, 0, 0)
	if err != nil {
		s.logger.Error("查询协议下的实习失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	today := s.clock.today()
	result := make([]dto.InternshipResponse, 0, len(internships))
	for i := range internships {
		result = append(result, toInternshipResponse(&internships[i], today))
	}
	return result, nil
}

// ── 内部辅助方法 ──

// maxUnpaged "全部"类列表的上限
const maxUnpaged = 1000

func (s *agreementService) get(ctx context.Context, id string) (*model.HostAgreement, error) {
	agreement, err := s.repo.Agreement.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAgreementNotFound
		}
		s.logger.Error("查询合作协议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return agreement, nil
}

func validateAgreement(a *model.HostAgreement) error {
	return validation.Agreement(validation.AgreementInput{
		CompanyName: a.CompanyName,
		TaxID:       a.TaxID,
		Address:     a.Address,
		Phone:       a.Phone,
		ContactName: a.ContactName,
	})
}

func toAgreementResponse(a *model.HostAgreement) *dto.AgreementResponse {
	return &dto.AgreementResponse{
		ID:           a.AgreementID,
		CompanyName:  a.CompanyName,
		TaxID:        a.TaxID,
		Address:      a.Address,
		Phone:        a.Phone,
		ContactName:  a.ContactName,
		ContactEmail: stringValue(a.ContactEmail),
		IsActive:     a.IsActive,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
}
