package model

import (
	"time"

	"gorm.io/datatypes"
)

// StatisticsSnapshot 统计快照，对应 statistics_snapshot（单行）
// Singleton 主键恒为 true，表中至多一行，重算时原地覆盖
type StatisticsSnapshot struct {
	Singleton           bool           `gorm:"primaryKey;default:true" json:"-"`
	TotalInterns        int64          `gorm:"not null;default:0"      json:"total_interns"`
	ActiveInterns       int64          `gorm:"not null;default:0"      json:"active_interns"`
	TotalInternships    int64          `gorm:"not null;default:0"      json:"total_internships"`
	InProgressCount     int64          `gorm:"not null;default:0"      json:"in_progress_internships"`
	TotalAgreements     int64          `gorm:"not null;default:0"      json:"total_agreements"`
	ActiveAgreements    int64          `gorm:"not null;default:0"      json:"active_agreements"`
	TotalDocuments      int64          `gorm:"not null;default:0"      json:"total_documents"`
	UnreadNotifications int64          `gorm:"not null;default:0"      json:"unread_notifications"`
	Breakdown           datatypes.JSON `gorm:"type:jsonb"              json:"breakdown"`
	ComputedAt          time.Time      `gorm:"not null"                json:"computed_at"`
}

// TableName 指定表名
func (StatisticsSnapshot) TableName() string { return "statistics_snapshot" }

// StatisticsBreakdown 快照中的分组计数，序列化到 Breakdown 列
type StatisticsBreakdown struct {
	InternshipsByStatus map[string]int64 `json:"internships_by_status"`
	UnreadByType        map[string]int64 `json:"unread_by_type"`
}
