package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

const defaultEndingSoonDays = 30

// InternshipHandler 实习记录与状态流转
type InternshipHandler struct {
	internshipSvc service.InternshipService
}

// NewInternshipHandler 创建 InternshipHandler
func NewInternshipHandler(internshipSvc service.InternshipService) *InternshipHandler {
	return &InternshipHandler{internshipSvc: internshipSvc}
}

// CreateInternship POST /api/v1/internships
func (h *InternshipHandler) CreateInternship(c *gin.Context) {
	var req dto.CreateInternshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	in, err := h.internshipSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.Created(c, in)
}

// ListInternships 分页列表，status=IN_PROGRESS / FINISHED 即进行中与已结束列表
// GET /api/v1/internships
func (h *InternshipHandler) ListInternships(c *gin.Context) {
	var req dto.InternshipListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, total, err := h.internshipSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// EndingSoon 即将结束的进行中实习，days 默认 30
// GET /api/v1/internships/ending-soon?days=30
func (h *InternshipHandler) EndingSoon(c *gin.Context) {
	days := defaultEndingSoonDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 365 {
			response.BadRequest(c, codeBadRequest, "days 必须是 0-365 的整数")
			return
		}
		days = n
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.internshipSvc.EndingSoon(c.Request.Context(), caller, days)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetInternship GET /api/v1/internships/:id
func (h *InternshipHandler) GetInternship(c *gin.Context) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	in, err := h.internshipSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, in)
}

// UpdateInternship 请求体须带读取时的 version
// PUT /api/v1/internships/:id
func (h *InternshipHandler) UpdateInternship(c *gin.Context) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	var req dto.UpdateInternshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	in, err := h.internshipSvc.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, in)
}

// DeleteInternship DELETE /api/v1/internships/:id
func (h *InternshipHandler) DeleteInternship(c *gin.Context) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.internshipSvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListInternshipDocuments GET /api/v1/internships/:id/documents
func (h *InternshipHandler) ListInternshipDocuments(c *gin.Context) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.internshipSvc.Documents(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ────────────────────── 状态流转 ──────────────────────

// Finish POST /api/v1/internships/:id/finish
func (h *InternshipHandler) Finish(c *gin.Context) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	in, err := h.internshipSvc.Finish(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, in)
}

// Cancel 请求体 reason 可选
// POST /api/v1/internships/:id/cancel
func (h *InternshipHandler) Cancel(c *gin.Context) {
	h.transitionWithReason(c, h.internshipSvc.Cancel)
}

// Suspend POST /api/v1/internships/:id/suspend
func (h *InternshipHandler) Suspend(c *gin.Context) {
	h.transitionWithReason(c, h.internshipSvc.Suspend)
}

type reasonTransition func(ctx context.Context, caller policy.Principal, id, reason string) (*dto.InternshipResponse, error)

func (h *InternshipHandler) transitionWithReason(c *gin.Context, do reasonTransition) {
	id, ok := pathID(c, "实习")
	if !ok {
		return
	}
	var req dto.ReasonRequest
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

	in, err := do(c.Request.Context(), caller, id, req.Reason)
	if err != nil {
		h.handleInternshipError(c, err)
		return
	}
	response.OK(c, in)
}

func (h *InternshipHandler) handleInternshipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInternshipNotFound):
		response.NotFound(c, 15001, "实习记录不存在")
	case errors.Is(err, service.ErrInternNotFound):
		response.NotFound(c, 15002, "实习生不存在")
	case errors.Is(err, service.ErrAgreementNotFound):
		response.NotFound(c, 15003, "合作协议不存在")
	case errors.Is(err, service.ErrAgreementInactive):
		response.BadRequest(c, 15004, "合作协议已停用，不能新建实习")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 15005, "当前状态不允许该操作")
	default:
		handleCommonError(c, err)
	}
}
