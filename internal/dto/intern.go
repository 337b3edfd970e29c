package dto

// ── 实习生模块 DTO ──

// CreateInternRequest 创建实习生请求
type CreateInternRequest struct {
	Name       string `json:"name"        binding:"required,max=200"`
	Email      string `json:"email"       binding:"required,email"`
	Phone      string `json:"phone"       binding:"required"` // "(11) 98765-4321"
	NationalID string `json:"national_id" binding:"required"` // "123.456.789-00"
	BirthDate  string `json:"birth_date"  binding:"required"` // "2003-05-20"
	Course     string `json:"course"      binding:"required,max=100"`
	Term       string `json:"term"        binding:"required,max=20"`
	Status     string `json:"status"      binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// UpdateInternRequest 更新实习生请求，未提供的字段保持不变
type UpdateInternRequest struct {
	Name       *string `json:"name"        binding:"omitempty,max=200"`
	Email      *string `json:"email"       binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	NationalID *string `json:"national_id"`
	BirthDate  *string `json:"birth_date"`
	Course     *string `json:"course"      binding:"omitempty,max=100"`
	Term       *string `json:"term"        binding:"omitempty,max=20"`
	Status     *string `json:"status"      binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// InternListRequest 实习生列表查询
type InternListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Course string `form:"course"`
	Search string `form:"search"`
}

// InternResponse 实习生信息
type InternResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"`
	Age        int    `json:"age"`
	Course     string `json:"course"`
	Term       string `json:"term"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// InternStatsResponse 实习生统计
type InternStatsResponse struct {
	Total    int64         `json:"total"`
	Active   int64         `json:"active"`
	Inactive int64         `json:"inactive"`
	ByCourse []CourseCount `json:"by_course"`
}

// CourseCount 按课程计数
type CourseCount struct {
	Course string `json:"course"`
	Total  int64  `json:"total"`
}

// ImportInternResponse Excel 批量导入结果
type ImportInternResponse struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入失败的行
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
