package dto

// ── 报表模块 DTO ──

// ReportStatusAll 报表状态过滤：不限
const ReportStatusAll = "ALL"

// InternReportRequest 实习生报表：注册日期区间、状态、课程
type InternReportRequest struct {
	StartDate string `json:"start_date" form:"start_date" binding:"required"`
	EndDate   string `json:"end_date"   form:"end_date"   binding:"required"`
	Status    string `json:"status"     form:"status"     binding:"omitempty,oneof=ALL ACTIVE INACTIVE"`
	Course    string `json:"course"     form:"course"`
}

// InternshipReportRequest 实习报表：开始日期区间、状态、合作协议
type InternshipReportRequest struct {
	StartDate   string `json:"start_date"   form:"start_date"   binding:"required"`
	EndDate     string `json:"end_date"     form:"end_date"     binding:"required"`
	Status      string `json:"status"       form:"status"       binding:"omitempty,oneof=ALL IN_PROGRESS FINISHED CANCELED SUSPENDED"`
	AgreementID string `json:"agreement_id" form:"agreement_id" binding:"omitempty,uuid"`
}

// InternReportResponse 实习生报表
type InternReportResponse struct {
	Filters InternReportRequest `json:"filters"`
	Total   int                 `json:"total"`
	Interns []InternResponse    `json:"interns"`
}

// InternshipReportResponse 实习报表
type InternshipReportResponse struct {
	Filters     InternshipReportRequest `json:"filters"`
	Total       int                     `json:"total"`
	Internships []InternshipResponse    `json:"internships"`
}
