package dto

// ── 合作协议模块 DTO ──

// CreateAgreementRequest 创建合作协议请求
type CreateAgreementRequest struct {
	CompanyName  string `json:"company_name"  binding:"required,max=200"`
	TaxID        string `json:"tax_id"        binding:"required"` // "12.345.678/0001-90"
	Address      string `json:"address"       binding:"required"`
	Phone        string `json:"phone"         binding:"required"`
	ContactName  string `json:"contact_name"  binding:"required,max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	IsActive     *bool  `json:"is_active"`
}

// UpdateAgreementRequest 更新合作协议请求
type UpdateAgreementRequest struct {
	CompanyName  *string `json:"company_name"  binding:"omitempty,max=200"`
	TaxID        *string `json:"tax_id"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	ContactName  *string `json:"contact_name"  binding:"omitempty,max=200"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
}

// AgreementListRequest 合作协议列表查询
type AgreementListRequest struct {
	PaginationRequest
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
}

// AgreementResponse 合作协议信息
type AgreementResponse struct {
	ID           string `json:"id"`
	CompanyName  string `json:"company_name"`
	TaxID        string `json:"tax_id"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email,omitempty"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
