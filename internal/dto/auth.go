package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求，附带 Refresh Token 时一并作废
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ── 账号模块 DTO ──

// CreateUserRequest 管理员创建账号，初始密码由系统生成
type CreateUserRequest struct {
	Name  string `json:"name"  binding:"required,min=2,max=150"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"  binding:"required,oneof=admin supervisor intern"`
}

// CreateUserResponse 创建账号响应
type CreateUserResponse struct {
	User         *UserResponse `json:"user"`
	TempPassword string        `json:"temp_password"`
}

// UpdateUserRequest 更新账号
type UpdateUserRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=2,max=150"`
	Role     *string `json:"role"      binding:"omitempty,oneof=admin supervisor intern"`
	IsActive *bool   `json:"is_active"`
}

// UserListRequest 账号列表查询
type UserListRequest struct {
	PaginationRequest
	Role   string `form:"role"   binding:"omitempty,oneof=admin supervisor intern"`
	Search string `form:"search"`
}

// ChangePasswordRequest 修改本人密码
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}
