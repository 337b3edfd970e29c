package model

import "time"

// 通知类型
const (
	NotificationInfo   = "INFO"
	NotificationAlert  = "ALERT"
	NotificationUrgent = "URGENT"
)

// IsValidNotificationType 通知类型是否合法
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationInfo, NotificationAlert, NotificationUrgent:
		return true
	}
	return false
}

// Notification 实习生通知，对应 notifications
// DedupKey 非空时 (intern_id, dedup_key) 唯一，用于截止提醒的幂等创建
type Notification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"             json:"notification_id"`
	InternID       string     `gorm:"type:uuid;not null;index:idx_notifications_intern_read;uniqueIndex:uq_notifications_intern_dedup" json:"intern_id"`
	Title          string     `gorm:"type:varchar(200);not null"                                 json:"title"`
	Message        string     `gorm:"type:text;not null"                                         json:"message"`
	Type           string     `gorm:"type:varchar(10);not null;default:'INFO'"                   json:"type"`
	IsRead         bool       `gorm:"not null;default:false;index:idx_notifications_intern_read" json:"is_read"`
	SentAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"                         json:"sent_at"`
	ReadAt         *time.Time `                                                                  json:"read_at,omitempty"`
	DedupKey       *string    `gorm:"type:varchar(200);uniqueIndex:uq_notifications_intern_dedup" json:"-"`

	// 关联
	Intern *Intern `gorm:"foreignKey:InternID;references:InternID;constraint:OnDelete:CASCADE" json:"intern,omitempty"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
