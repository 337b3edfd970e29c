package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Intern       InternRepository
	Agreement    AgreementRepository
	Internship   InternshipRepository
	Document     DocumentRepository
	Notification NotificationRepository
	Statistics   StatisticsRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Intern:       NewInternRepo(db),
		Agreement:    NewAgreementRepo(db),
		Internship:   NewInternshipRepo(db),
		Document:     NewDocumentRepo(db),
		Notification: NewNotificationRepo(db),
		Statistics:   NewStatisticsRepo(db),
	}
}

// BeginTx 开启事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时回滚
// 没有底层连接（单元测试中的内存仓储）时直接在当前 Repository 上执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// GroupCount 分组计数结果
type GroupCount struct {
	Key   string `json:"key"`
	Total int64  `json:"total"`
}

// paginate limit<=0 表示不分页
func paginate(db *gorm.DB, offset, limit int) *gorm.DB {
	if limit > 0 {
		db = db.Offset(offset).Limit(limit)
	}
	return db
}

// likePattern 构造 ILIKE 模糊匹配串
func likePattern(s string) string {
	return "%" + s + "%"
}
