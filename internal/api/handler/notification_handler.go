package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

// NotificationHandler 实习生通知
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// CreateNotification 手动发送通知
// POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.Created(c, n)
}

// ListNotifications GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListUnread GET /api/v1/notifications/unread
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.notificationSvc.Unread(c.Request.Context(), caller)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list, "count": len(list)})
}

// GetNotification GET /api/v1/notifications/:id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	id, ok := pathID(c, "通知")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, n)
}

// MarkRead PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "通知")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.MarkRead(c.Request.Context(), caller, id)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, n)
}

// MarkUnread PUT /api/v1/notifications/:id/unread
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	id, ok := pathID(c, "通知")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.MarkUnread(c.Request.Context(), caller, id)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, n)
}

// MarkAllRead 请求体 intern_id 可选
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var req dto.MarkAllReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, codeBadRequest, "参数校验失败")
			return
		}
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.MarkAllRead(c.Request.Context(), caller, req.InternID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, dto.CountResponse{Count: n})
}

// DeleteNotification DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := pathID(c, "通知")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleNotificationError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.NotFound(c, 17001, "通知不存在")
	case errors.Is(err, service.ErrInternNotFound):
		response.NotFound(c, 17002, "实习生不存在")
	default:
		handleCommonError(c, err)
	}
}
