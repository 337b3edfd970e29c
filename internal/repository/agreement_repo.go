package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baratadiego/appestagio/internal/model"
)

// AgreementFilter 合作协议查询条件
type AgreementFilter struct {
	IsActive *bool
	Search   string // 企业名 / 税号 / 联系人
}

// AgreementRepository 合作协议数据访问接口
type AgreementRepository interface {
	Create(ctx context.Context, agreement *model.HostAgreement) error
	GetByID(ctx context.Context, id string) (*model.HostAgreement, error)
	Update(ctx context.Context, agreement *model.HostAgreement) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	// LockForUpdate 行锁，阻塞并发新增引用该协议的实习；须在事务内调用
	LockForUpdate(ctx context.Context, id string) error
	List(ctx context.Context, filter AgreementFilter, offset, limit int) ([]model.HostAgreement, int64, error)
	Count(ctx context.Context, filter AgreementFilter) (int64, error)
}

type agreementRepo struct {
	db *gorm.DB
}

// NewAgreementRepo 创建 AgreementRepository 实例
func NewAgreementRepo(db *gorm.DB) AgreementRepository {
	return &agreementRepo{db: db}
}

func (r *agreementRepo) Create(ctx context.Context, agreement *model.HostAgreement) error {
	return r.db.WithContext(ctx).Create(agreement).Error
}

func (r *agreementRepo) GetByID(ctx context.Context, id string) (*model.HostAgreement, error) {
	var agreement model.HostAgreement
	err := r.db.WithContext(ctx).
		Where("agreement_id = ?", id).
		First(&agreement).Error
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *agreementRepo) Update(ctx context.Context, agreement *model.HostAgreement) error {
	return r.db.WithContext(ctx).Save(agreement).Error
}

func (r *agreementRepo) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.HostAgreement{}).
		Where("agreement_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *agreementRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("agreement_id = ?", id).
		Delete(&model.HostAgreement{}).Error
}

func (r *agreementRepo) LockForUpdate(ctx context.Context, id string) error {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.HostAgreement{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agreement_id = ?", id).
		Pluck("agreement_id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *agreementRepo) List(ctx context.Context, filter AgreementFilter, offset, limit int) ([]model.HostAgreement, int64, error) {
	var agreements []model.HostAgreement
	var total int64

	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.HostAgreement{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db, offset, limit).
		Order("company_name ASC").
		Find(&agreements).Error; err != nil {
		return nil, 0, err
	}
	return agreements, total, nil
}

func (r *agreementRepo) Count(ctx context.Context, filter AgreementFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.HostAgreement{}), filter).
		Count(&total).Error
	return total, err
}

func (r *agreementRepo) applyFilter(db *gorm.DB, f AgreementFilter) *gorm.DB {
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where("company_name ILIKE ? OR tax_id ILIKE ? OR contact_name ILIKE ?", p, p, p)
	}
	return db
}
