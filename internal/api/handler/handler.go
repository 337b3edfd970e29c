package handler

import "github.com/baratadiego/appestagio/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Intern       *InternHandler
	Agreement    *AgreementHandler
	Internship   *InternshipHandler
	Document     *DocumentHandler
	Notification *NotificationHandler
	Report       *ReportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Intern:       NewInternHandler(svc.Intern),
		Agreement:    NewAgreementHandler(svc.Agreement),
		Internship:   NewInternshipHandler(svc.Internship),
		Document:     NewDocumentHandler(svc.Document),
		Notification: NewNotificationHandler(svc.Notification),
		Report:       NewReportHandler(svc.Statistics, svc.Report),
	}
}
