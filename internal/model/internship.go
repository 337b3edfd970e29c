package model

import "time"

// InternshipStatus 实习记录状态
type InternshipStatus string

const (
	InternshipInProgress InternshipStatus = "IN_PROGRESS"
	InternshipFinished   InternshipStatus = "FINISHED"
	InternshipCanceled   InternshipStatus = "CANCELED"
	InternshipSuspended  InternshipStatus = "SUSPENDED"
)

// LifecycleAction 状态流转动作
type LifecycleAction string

const (
	ActionFinish  LifecycleAction = "finish"
	ActionCancel  LifecycleAction = "cancel"
	ActionSuspend LifecycleAction = "suspend"
)

// transitions 动作 → 允许的起始状态 → 目标状态
// 任何动作都不会回到 IN_PROGRESS
var transitions = map[LifecycleAction]map[InternshipStatus]InternshipStatus{
	ActionFinish: {
		InternshipInProgress: InternshipFinished,
	},
	ActionCancel: {
		InternshipInProgress: InternshipCanceled,
		InternshipSuspended:  InternshipCanceled,
	},
	ActionSuspend: {
		InternshipInProgress: InternshipSuspended,
	},
}

// Next 返回在当前状态执行 action 后的状态；不允许时 ok=false
func (s InternshipStatus) Next(action LifecycleAction) (InternshipStatus, bool) {
	to, ok := transitions[action][s]
	return to, ok
}

// IsTerminal FINISHED 与 CANCELED 为终态
func (s InternshipStatus) IsTerminal() bool {
	return s == InternshipFinished || s == InternshipCanceled
}

// IsValid 是否为已知状态
func (s InternshipStatus) IsValid() bool {
	switch s {
	case InternshipInProgress, InternshipFinished, InternshipCanceled, InternshipSuspended:
		return true
	}
	return false
}

// AllInternshipStatuses 全部状态，统计按此顺序输出
var AllInternshipStatuses = []InternshipStatus{
	InternshipInProgress, InternshipFinished, InternshipCanceled, InternshipSuspended,
}

// Internship 实习记录，对应 internships
// StartDate / EndDate 为日历日期（UTC 零点），数据库列类型为 date
type Internship struct {
	InternshipID    string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"    json:"internship_id"`
	InternID        string           `gorm:"type:uuid;not null;index"                          json:"intern_id"`
	AgreementID     string           `gorm:"type:uuid;not null;index"                          json:"agreement_id"`
	SupervisorName  string           `gorm:"type:varchar(200);not null"                        json:"supervisor_name"`
	SupervisorEmail *string          `gorm:"type:varchar(254)"                                 json:"supervisor_email,omitempty"`
	WeeklyHours     int              `gorm:"not null"                                          json:"weekly_hours"`
	StartDate       time.Time        `gorm:"type:date;not null"                                json:"start_date"`
	EndDate         time.Time        `gorm:"type:date;not null;index"                          json:"end_date"`
	Status          InternshipStatus `gorm:"type:varchar(15);not null;default:'IN_PROGRESS'"   json:"status"`
	Notes           string           `gorm:"type:text;not null;default:''"                     json:"notes"`
	VersionedModel

	// 关联
	Intern    *Intern        `gorm:"foreignKey:InternID;references:InternID;constraint:OnDelete:CASCADE"       json:"intern,omitempty"`
	Agreement *HostAgreement `gorm:"foreignKey:AgreementID;references:AgreementID;constraint:OnDelete:CASCADE" json:"agreement,omitempty"`
}

// TableName 指定表名
func (Internship) TableName() string { return "internships" }

// SupervisorEmailValue 导师邮箱，未填写时为空串
func (i *Internship) SupervisorEmailValue() string {
	if i.SupervisorEmail == nil {
		return ""
	}
	return *i.SupervisorEmail
}
