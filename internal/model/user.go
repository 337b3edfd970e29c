package model

// 账号角色
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleIntern     = "intern"
)

// User 登录账号，对应 users
// 实习生账号通过邮箱与 interns 记录对应
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(150);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(254);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'intern'"     json:"role"`
	IsActive     bool   `gorm:"not null"                                       json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsValidRole 角色是否合法
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleIntern:
		return true
	}
	return false
}
