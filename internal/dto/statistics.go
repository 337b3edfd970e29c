package dto

// ── 统计模块 DTO ──

// StatisticsResponse 仪表盘统计
type StatisticsResponse struct {
	TotalInterns          int64  `json:"total_interns"`
	ActiveInterns         int64  `json:"active_interns"`
	TotalInternships      int64  `json:"total_internships"`
	InProgressInternships int64  `json:"in_progress_internships"`
	TotalAgreements       int64  `json:"total_agreements"`
	ActiveAgreements      int64  `json:"active_agreements"`
	TotalDocuments        int64  `json:"total_documents"`
	UnreadNotifications   int64  `json:"unread_notifications"`
	ComputedAt            string `json:"computed_at"`

	ActiveInternsPercent    float64 `json:"active_interns_percent"`
	InProgressPercent       float64 `json:"in_progress_percent"`
	ActiveAgreementsPercent float64 `json:"active_agreements_percent"`

	EndingWithin30Days  int64            `json:"ending_within_30_days"`
	DocumentsLast30Days int64            `json:"documents_last_30_days"`
	UnreadByType        map[string]int64 `json:"unread_by_type"`
	InternshipsByStatus map[string]int64 `json:"internships_by_status"`
}

// MonthlyTrend 按月注册人数
type MonthlyTrend struct {
	Month string `json:"month"` // "2024-03"
	Total int64  `json:"total"`
}
