package dto

// ── 文档模块 DTO ──

// UploadDocumentRequest 上传文档的表单字段（文件本身走 multipart）
type UploadDocumentRequest struct {
	InternshipID string `form:"internship_id" binding:"required,uuid"`
	DocType      string `form:"doc_type"      binding:"required,oneof=COMMITMENT_TERM INTERNSHIP_PLAN REPORT EVALUATION OTHER"`
	Description  string `form:"description"   binding:"max=200"`
}

// DocumentListRequest 文档列表查询
type DocumentListRequest struct {
	PaginationRequest
	InternshipID string `form:"internship_id" binding:"omitempty,uuid"`
	DocType      string `form:"doc_type"      binding:"omitempty,oneof=COMMITMENT_TERM INTERNSHIP_PLAN REPORT EVALUATION OTHER"`
	Search       string `form:"search"`
}

// DocumentResponse 文档信息
type DocumentResponse struct {
	ID           string `json:"id"`
	InternshipID string `json:"internship_id"`
	DocType      string `json:"doc_type"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	ContentType  string `json:"content_type"`
	Description  string `json:"description"`
	UploadedAt   string `json:"uploaded_at"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
}
