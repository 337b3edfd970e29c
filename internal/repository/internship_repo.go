package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baratadiego/appestagio/internal/model"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
)

// InternshipFilter 实习记录查询条件
type InternshipFilter struct {
	Status          model.InternshipStatus
	InternID        string
	AgreementID     string
	InternEmail     string // 仅返回该邮箱对应实习生的记录
	SupervisorEmail string
	Search          string // 实习生姓名 / 企业名 / 导师
	StartFrom       *time.Time
	StartTo         *time.Time
	EndFrom         *time.Time
	EndTo           *time.Time
}

// DeleteScope 级联删除涉及的实习范围，非空字段同时生效
type DeleteScope struct {
	InternshipID string
	InternID     string
	AgreementID  string
}

// InternshipRepository 实习记录数据访问接口
type InternshipRepository interface {
	Create(ctx context.Context, internship *model.Internship) error
	GetByID(ctx context.Context, id string) (*model.Internship, error)
	Update(ctx context.Context, internship *model.Internship) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter InternshipFilter, offset, limit int) ([]model.Internship, int64, error)
	// ListActiveByIntern 同一实习生进行中的实习，排除 excludeID
	ListActiveByIntern(ctx context.Context, internID, excludeID string) ([]model.Internship, error)
	// ListEndingBetween 进行中且结束日期落在 [from, to] 的实习
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Internship, error)
	Count(ctx context.Context, filter InternshipFilter) (int64, error)
	CountByStatus(ctx context.Context) ([]GroupCount, error)
	// LockIntern 事务级 advisory lock，串行化同一实习生的重叠检查与写入；须在事务内调用
	LockIntern(ctx context.Context, internID string) error
	// LockForDelete 对 scope 命中的实习加行锁，阻塞并发上传文档；
	// 须在事务内调用，返回被锁定的实习 ID
	LockForDelete(ctx context.Context, scope DeleteScope) ([]string, error)
}

type internshipRepo struct {
	db *gorm.DB
}

// NewInternshipRepo 创建 InternshipRepository 实例
func NewInternshipRepo(db *gorm.DB) InternshipRepository {
	return &internshipRepo{db: db}
}

func (r *internshipRepo) Create(ctx context.Context, internship *model.Internship) error {
	return r.db.WithContext(ctx).
		Omit("Intern", "Agreement").
		Create(internship).Error
}

func (r *internshipRepo) GetByID(ctx context.Context, id string) (*model.Internship, error) {
	var internship model.Internship
	err := r.db.WithContext(ctx).
		Preload("Intern").
		Preload("Agreement").
		Where("internship_id = ?", id).
		First(&internship).Error
	if err != nil {
		return nil, err
	}
	return &internship, nil
}

// Update 带乐观锁更新，版本不匹配时返回 ErrOptimisticLock
func (r *internshipRepo) Update(ctx context.Context, internship *model.Internship) error {
	oldVersion := internship.Version
	result := r.db.WithContext(ctx).
		Model(&model.Internship{}).
		Where("internship_id = ? AND version = ?", internship.InternshipID, oldVersion).
		Updates(map[string]interface{}{
			"intern_id":        internship.InternID,
			"agreement_id":     internship.AgreementID,
			"supervisor_name":  internship.SupervisorName,
			"supervisor_email": internship.SupervisorEmail,
			"weekly_hours":     internship.WeeklyHours,
			"start_date":       internship.StartDate,
			"end_date":         internship.EndDate,
			"status":           internship.Status,
			"notes":            internship.Notes,
			"version":          oldVersion + 1,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	internship.Version = oldVersion + 1
	return nil
}

func (r *internshipRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("internship_id = ?", id).
		Delete(&model.Internship{}).Error
}

func (r *internshipRepo) List(ctx context.Context, filter InternshipFilter, offset, limit int) ([]model.Internship, int64, error) {
	var internships []model.Internship
	var total int64

	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.Internship{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db, offset, limit).
		Preload("Intern").
		Preload("Agreement").
		Order("internships.start_date DESC").
		Find(&internships).Error; err != nil {
		return nil, 0, err
	}
	return internships, total, nil
}

func (r *internshipRepo) ListActiveByIntern(ctx context.Context, internID, excludeID string) ([]model.Internship, error) {
	var internships []model.Internship
	db := r.db.WithContext(ctx).
		Where("intern_id = ? AND status = ?", internID, model.InternshipInProgress)
	if excludeID != "" {
		db = db.Where("internship_id <> ?", excludeID)
	}
	err := db.Order("start_date ASC").Find(&internships).Error
	return internships, err
}

func (r *internshipRepo) ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Internship, error) {
	var internships []model.Internship
	err := r.db.WithContext(ctx).
		Preload("Intern").
		Where("status = ? AND end_date BETWEEN ? AND ?", model.InternshipInProgress, from, to).
		Order("end_date ASC").
		Find(&internships).Error
	return internships, err
}

func (r *internshipRepo) Count(ctx context.Context, filter InternshipFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Internship{}), filter).
		Count(&total).Error
	return total, err
}

func (r *internshipRepo) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Internship{}).
		Select("status AS key, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *internshipRepo) applyFilter(db *gorm.DB, f InternshipFilter) *gorm.DB {
	if f.Status != "" {
		db = db.Where("internships.status = ?", f.Status)
	}
	if f.InternID != "" {
		db = db.Where("internships.intern_id = ?", f.InternID)
	}
	if f.AgreementID != "" {
		db = db.Where("internships.agreement_id = ?", f.AgreementID)
	}
	if f.InternEmail != "" {
		db = db.Where("internships.intern_id IN (?)",
			r.db.Model(&model.Intern{}).Select("intern_id").Where("LOWER(email) = LOWER(?)", f.InternEmail))
	}
	if f.SupervisorEmail != "" {
		db = db.Where("LOWER(internships.supervisor_email) = LOWER(?)", f.SupervisorEmail)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where(
			"internships.supervisor_name ILIKE ? OR internships.intern_id IN (?) OR internships.agreement_id IN (?)",
			p,
			r.db.Model(&model.Intern{}).Select("intern_id").Where("name ILIKE ?", p),
			r.db.Model(&model.HostAgreement{}).Select("agreement_id").Where("company_name ILIKE ?", p),
		)
	}
	if f.StartFrom != nil {
		db = db.Where("internships.start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		db = db.Where("internships.start_date <= ?", *f.StartTo)
	}
	if f.EndFrom != nil {
		db = db.Where("internships.end_date >= ?", *f.EndFrom)
	}
	if f.EndTo != nil {
		db = db.Where("internships.end_date <= ?", *f.EndTo)
	}
	return db
}

func (r *internshipRepo) LockIntern(ctx context.Context, internID string) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "internship:"+internID).Error
}

func (r *internshipRepo) LockForDelete(ctx context.Context, scope DeleteScope) ([]string, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Internship{}).
		Clauses(clause.Locking{Strength: "UPDATE"})
	if scope.InternshipID != "" {
		db = db.Where("internship_id = ?", scope.InternshipID)
	}
	if scope.InternID != "" {
		db = db.Where("intern_id = ?", scope.InternID)
	}
	if scope.AgreementID != "" {
		db = db.Where("agreement_id = ?", scope.AgreementID)
	}
	var ids []string
	err := db.Order("internship_id").Pluck("internship_id", &ids).Error
	return ids, err
}
