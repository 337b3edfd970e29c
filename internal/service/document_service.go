package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/storage"
)

// ── 文档模块业务错误 ──

var (
	ErrDocumentNotFound = fmt.Errorf("文档%w", pkgerrors.ErrNotFound)
	ErrDocTypeRequired  = errors.New("需要指定文档类型")
)

// UploadFile 待上传的文件
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// DocumentFile 下载用的文件流，调用方负责关闭 Reader
type DocumentFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReadCloser
}

// DocumentService 文档业务接口
type DocumentService interface {
	Upload(ctx context.Context, caller policy.Principal, req *dto.UploadDocumentRequest, file UploadFile) (*dto.DocumentResponse, error)
	GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.DocumentResponse, error)
	List(ctx context.Context, caller policy.Principal, req *dto.DocumentListRequest) ([]dto.DocumentResponse, int64, error)
	ListByType(ctx context.Context, caller policy.Principal, docType string) ([]dto.DocumentResponse, error)
	Download(ctx context.Context, caller policy.Principal, id string) (*DocumentFile, error)
	// Delete 先删数据行再删文件；文件删除失败只记日志
	Delete(ctx context.Context, caller policy.Principal, id string) error
}

type documentService struct {
	repo   *repository.Repository
	store  storage.Storage
	cfg    config.StorageConfig
	clock  clock
	hook   statsHook
	logger *zap.Logger
}

// NewDocumentService 创建 DocumentService 实例
func NewDocumentService(
	repo *repository.Repository,
	store storage.Storage,
	cfg config.StorageConfig,
	clk clock,
	stats StatisticsService,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		repo:   repo,
		store:  store,
		cfg:    cfg,
		clock:  clk,
		hook:   statsHook{stats: stats, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Upload ──────────────────────

func (s *documentService) Upload(ctx context.Context, caller policy.Principal, req *dto.UploadDocumentRequest, file UploadFile) (*dto.DocumentResponse, error) {
	internship, err := s.repo.Internship.GetByID(ctx, req.InternshipID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInternshipNotFound
		}
		s.logger.Error("查询实习记录失败", zap.String("id", req.InternshipID), zap.Error(err))
		return nil, err
	}
	if err := policy.Check(caller, policy.UploadDocument, internshipTarget(internship)); err != nil {
		return nil, err
	}

	name := filepath.Base(strings.TrimSpace(file.Name))
	if err := validation.Upload(name, file.Size, s.cfg.MaxUploadBytes, s.cfg.AllowedExtensions); err != nil {
		return nil, err
	}

	handle, size, err := s.store.Save(ctx, storage.DocumentPath(internship.InternID, name), file.Reader)
	if err != nil {
		s.logger.Error("保存文档文件失败", zap.String("internship_id", internship.InternshipID), zap.Error(err))
		return nil, err
	}

	doc := &model.Document{
		InternshipID: internship.InternshipID,
		DocType:      req.DocType,
		FilePath:     string(handle),
		FileName:     name,
		FileSize:     size,
		ContentType:  file.ContentType,
		Description:  strings.TrimSpace(req.Description),
		UploadedAt:   s.clock.now().UTC(),
		UploadedBy:   optionalString(caller.UserID),
	}
	if err := s.repo.Document.Create(ctx, doc); err != nil {
		s.logger.Error("创建文档记录失败", zap.Error(err))
		if delErr := s.store.Delete(ctx, handle); delErr != nil {
			s.logger.Warn("回收已保存的文件失败，文件成为孤儿",
				zap.String("path", string(handle)), zap.Error(delErr))
		}
		return nil, err
	}

	s.hook.refresh(ctx)
	resp := toDocumentResponse(doc)
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *documentService) GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.DocumentResponse, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewDocument, documentTarget(doc)); err != nil {
		return nil, err
	}
	resp := toDocumentResponse(doc)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *documentService) List(ctx context.Context, caller policy.Principal, req *dto.DocumentListRequest) ([]dto.DocumentResponse, int64, error) {
	// 实习生按本人、导师按所指导的实习过滤
	scope := policy.Target{InternEmail: caller.Email, SupervisorEmail: caller.Email}
	if err := policy.Check(caller, policy.ViewDocument, scope); err != nil {
		return nil, 0, err
	}

	filter := repository.DocumentFilter{
		InternshipID: req.InternshipID,
		DocType:      req.DocType,
		Search:       strings.TrimSpace(req.Search),
	}
	switch caller.Kind {
	case policy.KindIntern:
		filter.InternEmail = caller.Email
	case policy.KindSupervisor:
		filter.SupervisorEmail = caller.Email
	}

	docs, total, err := s.repo.Document.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出文档失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		result = append(result, toDocumentResponse(&docs[i]))
	}
	return result, total, nil
}

func (s *documentService) ListByType(ctx context.Context, caller policy.Principal, docType string) ([]dto.DocumentResponse, error) {
	if docType == "" {
		return nil, ErrDocTypeRequired
	}
	list, _, err := s.List(ctx, caller, &dto.DocumentListRequest{
		DocType:           docType,
		PaginationRequest: dto.PaginationRequest{PageSize: maxUnpaged},
	})
	return list, err
}

// ────────────────────── Download ──────────────────────

func (s *documentService) Download(ctx context.Context, caller policy.Principal, id string) (*DocumentFile, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewDocument, documentTarget(doc)); err != nil {
		return nil, err
	}

	rc, err := s.store.Open(ctx, storage.Handle(doc.FilePath))
	if err != nil {
		s.logger.Error("打开文档文件失败", zap.String("id", id), zap.String("path", doc.FilePath), zap.Error(err))
		return nil, err
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &DocumentFile{Name: doc.FileName, ContentType: contentType, Size: doc.FileSize, Reader: rc}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *documentService) Delete(ctx context.Context, caller policy.Principal, id string) error {
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Check(caller, policy.DeleteDocument, documentTarget(doc)); err != nil {
		return err
	}

	rows, err := s.repo.Document.Delete(ctx, id)
	if err != nil {
		s.logger.Error("删除文档记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if rows == 0 {
		return ErrDocumentNotFound
	}

	purgeFiles(ctx, s.store, []model.Document{*doc}, s.logger)
	s.hook.refresh(ctx)
	return nil
}

// ── 内部辅助方法 ──

func (s *documentService) get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.repo.Document.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		s.logger.Error("查询文档失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func toDocumentResponse(d *model.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:           d.DocumentID,
		InternshipID: d.InternshipID,
		DocType:      d.DocType,
		FileName:     d.FileName,
		FileSize:     d.FileSize,
		ContentType:  d.ContentType,
		Description:  d.Description,
		UploadedAt:   formatTime(d.UploadedAt),
		UploadedBy:   stringValue(d.UploadedBy),
	}
}
