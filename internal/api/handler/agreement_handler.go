package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

// AgreementHandler 合作协议模块 HTTP 处理器
type AgreementHandler struct {
	agreementSvc service.AgreementService
}

// NewAgreementHandler 创建 AgreementHandler
func NewAgreementHandler(agreementSvc service.AgreementService) *AgreementHandler {
	return &AgreementHandler{agreementSvc: agreementSvc}
}

// CreateAgreement POST /api/v1/agreements
func (h *AgreementHandler) CreateAgreement(c *gin.Context) {
	var req dto.CreateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	a, err := h.agreementSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.Created(c, a)
}

// ListAgreements GET /api/v1/agreements
func (h *AgreementHandler) ListAgreements(c *gin.Context) {
	var req dto.AgreementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, total, err := h.agreementSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListActiveAgreements GET /api/v1/agreements/active
func (h *AgreementHandler) ListActiveAgreements(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.agreementSvc.ListActive(c.Request.Context(), caller)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetAgreement GET /api/v1/agreements/:id
func (h *AgreementHandler) GetAgreement(c *gin.Context) {
	id, ok := pathID(c, "协议")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	a, err := h.agreementSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, a)
}

// UpdateAgreement PUT /api/v1/agreements/:id
func (h *AgreementHandler) UpdateAgreement(c *gin.Context) {
	id, ok := pathID(c, "协议")
	if !ok {
		return
	}
	var req dto.UpdateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	a, err := h.agreementSvc.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, a)
}

// ActivateAgreement PUT /api/v1/agreements/:id/activate
func (h *AgreementHandler) ActivateAgreement(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateAgreement PUT /api/v1/agreements/:id/deactivate
func (h *AgreementHandler) DeactivateAgreement(c *gin.Context) {
	h.setActive(c, false)
}

// DeleteAgreement 删除协议，其下实习与文档级联删除
// DELETE /api/v1/agreements/:id
func (h *AgreementHandler) DeleteAgreement(c *gin.Context) {
	id, ok := pathID(c, "协议")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.agreementSvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListAgreementInternships GET /api/v1/agreements/:id/internships
func (h *AgreementHandler) ListAgreementInternships(c *gin.Context) {
	id, ok := pathID(c, "协议")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.agreementSvc.Internships(c.Request.Context(), caller, id)
	if err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

func (h *AgreementHandler) setActive(c *gin.Context, active bool) {
	id, ok := pathID(c, "协议")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.agreementSvc.SetActive(c.Request.Context(), caller, id, active); err != nil {
		h.handleAgreementError(c, err)
		return
	}
	response.OK(c, gin.H{"is_active": active})
}

func (h *AgreementHandler) handleAgreementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAgreementNotFound):
		response.NotFound(c, 14001, "合作协议不存在")
	case errors.Is(err, service.ErrAgreementDuplicate):
		response.Conflict(c, 14002, "该企业税号已登记")
	default:
		handleCommonError(c, err)
	}
}
