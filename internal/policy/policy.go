// Package policy 基于角色与归属关系的访问控制
//
// Authorize 是纯函数：调用方负责加载目标记录并填好 Target，
// 这里只根据调用者身份、动作与目标做判断，不访问存储。
package policy

import (
	"errors"
	"strings"

	"github.com/baratadiego/appestagio/internal/model"
)

// ErrPermissionDenied 调用者缺少所需角色或归属关系
var ErrPermissionDenied = errors.New("无权执行该操作")

// Kind 调用者类别
type Kind int

const (
	KindAnonymous Kind = iota
	KindAdministrator
	KindSupervisor
	KindIntern
)

func (k Kind) String() string {
	switch k {
	case KindAdministrator:
		return "administrator"
	case KindSupervisor:
		return "supervisor"
	case KindIntern:
		return "intern"
	default:
		return "anonymous"
	}
}

// Principal 调用者身份
// 导师与实习生的归属关系都以账号邮箱匹配
type Principal struct {
	Kind   Kind
	Email  string
	UserID string
}

// Admin 管理员（协调员）
func Admin() Principal { return Principal{Kind: KindAdministrator} }

// SupervisorOf 指定邮箱的导师
func SupervisorOf(email string) Principal { return Principal{Kind: KindSupervisor, Email: email} }

// InternOf 指定邮箱的实习生
func InternOf(email string) Principal { return Principal{Kind: KindIntern, Email: email} }

// WithUser 附带账号 ID，用于判断文档上传者
func (p Principal) WithUser(userID string) Principal {
	p.UserID = userID
	return p
}

// FromRole 由账号角色构造调用者；未知角色视为匿名
func FromRole(role, email, userID string) Principal {
	var k Kind
	switch role {
	case model.RoleAdmin:
		k = KindAdministrator
	case model.RoleSupervisor:
		k = KindSupervisor
	case model.RoleIntern:
		k = KindIntern
	default:
		k = KindAnonymous
	}
	return Principal{Kind: k, Email: email, UserID: userID}
}

// IsAdmin 是否管理员
func (p Principal) IsAdmin() bool { return p.Kind == KindAdministrator }

// IsStaff 管理员或导师
func (p Principal) IsStaff() bool {
	return p.Kind == KindAdministrator || p.Kind == KindSupervisor
}

// Owns 邮箱是否属于调用者本人（忽略大小写，空邮箱不匹配）
func (p Principal) Owns(email string) bool {
	return p.Email != "" && email != "" && strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(email))
}

// Action 受控动作
type Action int

const (
	ViewIntern Action = iota
	ManageIntern
	ViewAgreement
	ManageAgreement
	ViewInternship
	ManageInternship
	TransitionInternship
	SuspendInternship
	ViewDocument
	UploadDocument
	DeleteDocument
	ViewNotification
	CreateNotification
	MarkNotification
	DeleteNotification
	ViewStatistics
	GenerateReport
)

var actionNames = map[Action]string{
	ViewIntern:           "view_intern",
	ManageIntern:         "manage_intern",
	ViewAgreement:        "view_agreement",
	ManageAgreement:      "manage_agreement",
	ViewInternship:       "view_internship",
	ManageInternship:     "manage_internship",
	TransitionInternship: "transition_internship",
	SuspendInternship:    "suspend_internship",
	ViewDocument:         "view_document",
	UploadDocument:       "upload_document",
	DeleteDocument:       "delete_document",
	ViewNotification:     "view_notification",
	CreateNotification:   "create_notification",
	MarkNotification:     "mark_notification",
	DeleteNotification:   "delete_notification",
	ViewStatistics:       "view_statistics",
	GenerateReport:       "generate_report",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Target 被操作的对象
// InternEmail 为对象所属实习生的邮箱，SupervisorEmail 为实习记录的导师邮箱，
// UploaderID 仅文档使用。列表类操作传空 Target。
type Target struct {
	InternEmail     string
	SupervisorEmail string
	UploaderID      string
}

// Authorize 判断调用者能否对目标执行动作
func Authorize(p Principal, a Action, t Target) bool {
	switch p.Kind {
	case KindAdministrator:
		return true
	case KindSupervisor:
		return supervisorMay(p, a, t)
	case KindIntern:
		return internMay(p, a, t)
	default:
		return false
	}
}

// Check Authorize 的错误形式
func Check(p Principal, a Action, t Target) error {
	if !Authorize(p, a, t) {
		return ErrPermissionDenied
	}
	return nil
}

// 导师：只读查看实习生、协议、实习；管理自己指导的实习的文档；可生成报表
func supervisorMay(p Principal, a Action, t Target) bool {
	switch a {
	case ViewIntern, ViewAgreement, ViewInternship, GenerateReport:
		return true
	case ViewDocument, UploadDocument:
		return p.Owns(t.SupervisorEmail)
	case DeleteDocument:
		return p.Owns(t.SupervisorEmail) || (p.UserID != "" && p.UserID == t.UploaderID)
	default:
		return false
	}
}

// 实习生：只读查看本人资料与实习；本人实习的文档可查看、上传，自己上传的可删除；
// 本人通知可查看、标记已读/未读
func internMay(p Principal, a Action, t Target) bool {
	switch a {
	case ViewAgreement:
		return true
	case ViewIntern, ViewInternship, ViewDocument, UploadDocument, ViewNotification, MarkNotification:
		return p.Owns(t.InternEmail)
	case DeleteDocument:
		return p.Owns(t.InternEmail) && p.UserID != "" && p.UserID == t.UploaderID
	default:
		return false
	}
}
