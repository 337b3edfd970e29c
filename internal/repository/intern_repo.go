package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baratadiego/appestagio/internal/model"
)

// InternFilter 实习生查询条件，零值字段不参与过滤
type InternFilter struct {
	Status      string
	Course      string // 精确匹配
	CourseLike  string // 包含匹配（报表用）
	Search      string // 姓名 / 邮箱 / 证件号 / 课程
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time // 含当天
}

// MonthCount 按月计数
type MonthCount struct {
	Month time.Time `json:"month"`
	Total int64     `json:"total"`
}

// InternRepository 实习生数据访问接口
type InternRepository interface {
	Create(ctx context.Context, intern *model.Intern) error
	GetByID(ctx context.Context, id string) (*model.Intern, error)
	GetByEmail(ctx context.Context, email string) (*model.Intern, error)
	Update(ctx context.Context, intern *model.Intern) error
	Delete(ctx context.Context, id string) error
	// LockForUpdate 行锁（FOR UPDATE），阻塞并发新增引用该实习生的实习；须在事务内调用
	LockForUpdate(ctx context.Context, id string) error
	List(ctx context.Context, filter InternFilter, offset, limit int) ([]model.Intern, int64, error)
	Count(ctx context.Context, filter InternFilter) (int64, error)
	CountByCourse(ctx context.Context) ([]GroupCount, error)
	CountByMonth(ctx context.Context) ([]MonthCount, error)
}

type internRepo struct {
	db *gorm.DB
}

// NewInternRepo 创建 InternRepository 实例
func NewInternRepo(db *gorm.DB) InternRepository {
	return &internRepo{db: db}
}

func (r *internRepo) Create(ctx context.Context, intern *model.Intern) error {
	return r.db.WithContext(ctx).Create(intern).Error
}

func (r *internRepo) GetByID(ctx context.Context, id string) (*model.Intern, error) {
	var intern model.Intern
	err := r.db.WithContext(ctx).
		Where("intern_id = ?", id).
		First(&intern).Error
	if err != nil {
		return nil, err
	}
	return &intern, nil
}

func (r *internRepo) GetByEmail(ctx context.Context, email string) (*model.Intern, error) {
	var intern model.Intern
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&intern).Error
	if err != nil {
		return nil, err
	}
	return &intern, nil
}

func (r *internRepo) Update(ctx context.Context, intern *model.Intern) error {
	return r.db.WithContext(ctx).
		Model(intern).
		Where("intern_id = ?", intern.InternID).
		Updates(map[string]interface{}{
			"name":        intern.Name,
			"email":       intern.Email,
			"phone":       intern.Phone,
			"national_id": intern.NationalID,
			"birth_date":  intern.BirthDate,
			"course":      intern.Course,
			"term":        intern.Term,
			"status":      intern.Status,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *internRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("intern_id = ?", id).
		Delete(&model.Intern{}).Error
}

func (r *internRepo) LockForUpdate(ctx context.Context, id string) error {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Intern{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("intern_id = ?", id).
		Pluck("intern_id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *internRepo) List(ctx context.Context, filter InternFilter, offset, limit int) ([]model.Intern, int64, error) {
	var interns []model.Intern
	var total int64

	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.Intern{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db, offset, limit).
		Order("name ASC").
		Find(&interns).Error; err != nil {
		return nil, 0, err
	}
	return interns, total, nil
}

func (r *internRepo) Count(ctx context.Context, filter InternFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Intern{}), filter).
		Count(&total).Error
	return total, err
}

func (r *internRepo) CountByCourse(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Intern{}).
		Select("course AS key, COUNT(*) AS total").
		Group("course").
		Order("total DESC, course ASC").
		Scan(&rows).Error
	return rows, err
}

// CountByMonth 按注册月份统计
func (r *internRepo) CountByMonth(ctx context.Context) ([]MonthCount, error) {
	var rows []MonthCount
	err := r.db.WithContext(ctx).
		Model(&model.Intern{}).
		Select("date_trunc('month', created_at) AS month, COUNT(*) AS total").
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *internRepo) applyFilter(db *gorm.DB, f InternFilter) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Course != "" {
		db = db.Where("course = ?", f.Course)
	}
	if f.CourseLike != "" {
		db = db.Where("course ILIKE ?", likePattern(f.CourseLike))
	}
	if f.Email != "" {
		db = db.Where("LOWER(email) = LOWER(?)", f.Email)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where("name ILIKE ? OR email ILIKE ? OR national_id ILIKE ? OR course ILIKE ?", p, p, p, p)
	}
	if f.CreatedFrom != nil {
		db = db.Where("created_at::date >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		db = db.Where("created_at::date <= ?", *f.CreatedTo)
	}
	return db
}
