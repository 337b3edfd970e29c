package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baratadiego/appestagio/internal/model"
)

// NotificationFilter 通知查询条件
type NotificationFilter struct {
	InternID    string
	InternEmail string
	IsRead      *bool
	Type        string
	Search      string // 标题 / 内容
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// GetOrCreate 按 (intern_id, dedup_key) 幂等创建；已存在时把现有记录写回 n 并返回 created=false
	GetOrCreate(ctx context.Context, n *model.Notification) (created bool, err error)
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter NotificationFilter, offset, limit int) ([]model.Notification, int64, error)
	// MarkRead 同时设置已读标记与阅读时间；已读的通知保持原阅读时间
	MarkRead(ctx context.Context, id string, at time.Time) error
	// MarkUnread 同时清除已读标记与阅读时间
	MarkUnread(ctx context.Context, id string) error
	// MarkAllRead internID 为空时作用于全部通知，返回受影响条数
	MarkAllRead(ctx context.Context, internID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context) (int64, error)
	CountUnreadByType(ctx context.Context) ([]GroupCount, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Omit("Intern").Create(n).Error
}

// GetOrCreate 依赖 (intern_id, dedup_key) 唯一索引，并发调用也只会插入一行
func (r *notificationRepo) GetOrCreate(ctx context.Context, n *model.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit("Intern").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intern_id"}, {Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var existing model.Notification
	err := r.db.WithContext(ctx).
		Where("intern_id = ? AND dedup_key = ?", n.InternID, n.DedupKey).
		First(&existing).Error
	if err != nil {
		return false, err
	}
	*n = existing
	return false, nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Preload("Intern").
		Where("notification_id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		Delete(&model.Notification{}).Error
}

func (r *notificationRepo) List(ctx context.Context, filter NotificationFilter, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.Notification{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db, offset, limit).
		Order("sent_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		}).Error
}

func (r *notificationRepo) MarkUnread(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Updates(map[string]interface{}{
			"is_read": false,
			"read_at": nil,
		}).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, internID string, at time.Time) (int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("is_read = ?", false)
	if internID != "" {
		db = db.Where("intern_id = ?", internID)
	}
	result := db.Updates(map[string]interface{}{
		"is_read": true,
		"read_at": at,
	})
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) CountUnread(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("is_read = ?", false).
		Count(&total).Error
	return total, err
}

func (r *notificationRepo) CountUnreadByType(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Select("type AS key, COUNT(*) AS total").
		Where("is_read = ?", false).
		Group("type").
		Scan(&rows).Error
	return rows, err
}

func (r *notificationRepo) applyFilter(db *gorm.DB, f NotificationFilter) *gorm.DB {
	if f.InternID != "" {
		db = db.Where("intern_id = ?", f.InternID)
	}
	if f.InternEmail != "" {
		db = db.Where("intern_id IN (?)",
			r.db.Model(&model.Intern{}).Select("intern_id").Where("LOWER(email) = LOWER(?)", f.InternEmail))
	}
	if f.IsRead != nil {
		db = db.Where("is_read = ?", *f.IsRead)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where("title ILIKE ? OR message ILIKE ?", p, p)
	}
	return db
}
