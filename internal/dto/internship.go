package dto

// ── 实习记录模块 DTO ──

// CreateInternshipRequest 创建实习记录请求
type CreateInternshipRequest struct {
	InternID        string `json:"intern_id"        binding:"required,uuid"`
	AgreementID     string `json:"agreement_id"     binding:"required,uuid"`
	SupervisorName  string `json:"supervisor_name"  binding:"required,max=200"`
	SupervisorEmail string `json:"supervisor_email" binding:"omitempty,email"`
	WeeklyHours     int    `json:"weekly_hours"     binding:"required"`
	StartDate       string `json:"start_date"       binding:"required"` // "2024-01-01"
	EndDate         string `json:"end_date"         binding:"required"`
	Notes           string `json:"notes"`
}

// UpdateInternshipRequest 更新实习记录请求
// 状态只能通过结束 / 取消 / 暂停动作改变
type UpdateInternshipRequest struct {
	AgreementID     *string `json:"agreement_id"     binding:"omitempty,uuid"`
	SupervisorName  *string `json:"supervisor_name"  binding:"omitempty,max=200"`
	SupervisorEmail *string `json:"supervisor_email" binding:"omitempty,email"`
	WeeklyHours     *int    `json:"weekly_hours"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	Notes           *string `json:"notes"`
	Version         int     `json:"version"          binding:"required,min=1"`
}

// InternshipListRequest 实习记录列表查询
type InternshipListRequest struct {
	PaginationRequest
	Status      string `form:"status"       binding:"omitempty,oneof=IN_PROGRESS FINISHED CANCELED SUSPENDED"`
	InternID    string `form:"intern_id"    binding:"omitempty,uuid"`
	AgreementID string `form:"agreement_id" binding:"omitempty,uuid"`
	Search      string `form:"search"`
}

// ReasonRequest 取消 / 暂停原因
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// InternshipResponse 实习记录信息
type InternshipResponse struct {
	ID              string `json:"id"`
	InternID        string `json:"intern_id"`
	InternName      string `json:"intern_name,omitempty"`
	AgreementID     string `json:"agreement_id"`
	CompanyName     string `json:"company_name,omitempty"`
	SupervisorName  string `json:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email,omitempty"`
	WeeklyHours     int    `json:"weekly_hours"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	DurationDays    int    `json:"duration_days"`
	RemainingDays   int    `json:"remaining_days"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
