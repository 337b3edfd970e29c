package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/baratadiego/appestagio/internal/model"
)

// DocumentFilter 文档查询条件
type DocumentFilter struct {
	InternshipID    string
	InternID        string // 级联删除前收集文件用
	AgreementID     string
	DocType         string
	InternEmail     string // 仅返回该实习生名下实习的文档
	SupervisorEmail string // 仅返回该导师指导的实习的文档
	Search          string // 描述 / 文件名
}

// DocumentRepository 文档数据访问接口
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, filter DocumentFilter, offset, limit int) ([]model.Document, int64, error)
	Count(ctx context.Context) (int64, error)
	CountUploadedSince(ctx context.Context, since time.Time) (int64, error)
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).
		Omit("Internship", "Uploader").
		Create(doc).Error
}

// GetByID 同时加载所属实习与实习生，授权判断需要两者的邮箱
func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Preload("Internship").
		Preload("Internship.Intern").
		Where("document_id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete 返回实际删除的行数
func (r *documentRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Delete(&model.Document{})
	return result.RowsAffected, result.Error
}

func (r *documentRepo) List(ctx context.Context, filter DocumentFilter, offset, limit int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.Document{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db, offset, limit).
		Order("uploaded_at DESC").
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&total).Error
	return total, err
}

func (r *documentRepo) CountUploadedSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("uploaded_at >= ?", since).
		Count(&total).Error
	return total, err
}

func (r *documentRepo) applyFilter(db *gorm.DB, f DocumentFilter) *gorm.DB {
	if f.InternshipID != "" {
		db = db.Where("internship_id = ?", f.InternshipID)
	}
	if f.InternID != "" {
		db = db.Where("internship_id IN (?)",
			r.db.Model(&model.Internship{}).Select("internship_id").Where("intern_id = ?", f.InternID))
	}
	if f.AgreementID != "" {
		db = db.Where("internship_id IN (?)",
			r.db.Model(&model.Internship{}).Select("internship_id").Where("agreement_id = ?", f.AgreementID))
	}
	if f.DocType != "" {
		db = db.Where("doc_type = ?", f.DocType)
	}
	if f.InternEmail != "" {
		db = db.Where("internship_id IN (?)",
			r.db.Model(&model.Internship{}).
				Select("internship_id").
				Where("intern_id IN (?)",
					r.db.Model(&model.Intern{}).Select("intern_id").Where("LOWER(email) = LOWER(?)", f.InternEmail)))
	}
	if f.SupervisorEmail != "" {
		db = db.Where("internship_id IN (?)",
			r.db.Model(&model.Internship{}).
				Select("internship_id").
				Where("LOWER(supervisor_email) = LOWER(?)", f.SupervisorEmail))
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where("description ILIKE ? OR file_name ILIKE ?", p, p)
	}
	return db
}
