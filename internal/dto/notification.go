package dto

// ── 通知模块 DTO ──

// CreateNotificationRequest 手工创建通知
type CreateNotificationRequest struct {
	InternID string `json:"intern_id" binding:"required,uuid"`
	Title    string `json:"title"     binding:"required,max=200"`
	Message  string `json:"message"   binding:"required"`
	Type     string `json:"type"      binding:"omitempty,oneof=INFO ALERT URGENT"`
}

// NotificationListRequest 通知列表查询
type NotificationListRequest struct {
	PaginationRequest
	InternID string `form:"intern_id" binding:"omitempty,uuid"`
	IsRead   *bool  `form:"is_read"`
	Type     string `form:"type"      binding:"omitempty,oneof=INFO ALERT URGENT"`
	Search   string `form:"search"`
}

// MarkAllReadRequest 全部标记已读，InternID 为空时作用于全部通知
type MarkAllReadRequest struct {
	InternID string `json:"intern_id" binding:"omitempty,uuid"`
}

// NotificationResponse 通知信息
type NotificationResponse struct {
	ID         string `json:"id"`
	InternID   string `json:"intern_id"`
	InternName string `json:"intern_name,omitempty"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	IsRead     bool   `json:"is_read"`
	SentAt     string `json:"sent_at"`
	ReadAt     string `json:"read_at,omitempty"`
}
