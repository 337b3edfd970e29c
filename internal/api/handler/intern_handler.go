package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

// InternHandler 实习生模块 HTTP 处理器
type InternHandler struct {
	internSvc service.InternService
}

// NewInternHandler 创建 InternHandler
func NewInternHandler(internSvc service.InternService) *InternHandler {
	return &InternHandler{internSvc: internSvc}
}

// CreateIntern POST /api/v1/interns
func (h *InternHandler) CreateIntern(c *gin.Context) {
	var req dto.CreateInternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	intern, err := h.internSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.Created(c, intern)
}

// ListInterns 分页列表，支持 status / course / search
// GET /api/v1/interns
func (h *InternHandler) ListInterns(c *gin.Context) {
	var req dto.InternListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, total, err := h.internSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListActiveInterns GET /api/v1/interns/active
func (h *InternHandler) ListActiveInterns(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.internSvc.ListActive(c.Request.Context(), caller)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetIntern GET /api/v1/interns/:id
func (h *InternHandler) GetIntern(c *gin.Context) {
	id, ok := pathID(c, "实习生")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	intern, err := h.internSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, intern)
}

// UpdateIntern PUT /api/v1/interns/:id
func (h *InternHandler) UpdateIntern(c *gin.Context) {
	id, ok := pathID(c, "实习生")
	if !ok {
		return
	}
	var req dto.UpdateInternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	intern, err := h.internSvc.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, intern)
}

// DeleteIntern DELETE /api/v1/interns/:id
func (h *InternHandler) DeleteIntern(c *gin.Context) {
	id, ok := pathID(c, "实习生")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.internSvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListInternInternships GET /api/v1/interns/:id/internships
func (h *InternHandler) ListInternInternships(c *gin.Context) {
	id, ok := pathID(c, "实习生")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.internSvc.Internships(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ListInternNotifications GET /api/v1/interns/:id/notifications
func (h *InternHandler) ListInternNotifications(c *gin.Context) {
	id, ok := pathID(c, "实习生")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.internSvc.Notifications(c.Request.Context(), caller, id)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// InternStats 按状态与课程的人数统计
// GET /api/v1/interns/stats
func (h *InternHandler) InternStats(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	stats, err := h.internSvc.Stats(c.Request.Context(), caller)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, stats)
}

// ImportInterns 从 Excel 批量导入，multipart 字段名 file
// POST /api/v1/interns/import
func (h *InternHandler) ImportInterns(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 13010, "请上传 Excel 文件（字段名 file）")
		return
	}
	defer file.Close()

	rows, err := h.internSvc.ParseImportFile(file)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	result, err := h.internSvc.Import(c.Request.Context(), caller, rows)
	if err != nil {
		h.handleInternError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *InternHandler) handleInternError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInternNotFound):
		response.NotFound(c, 13001, "实习生不存在")
	case errors.Is(err, service.ErrInternDuplicate):
		response.Conflict(c, 13002, "邮箱或证件号已被其他实习生使用")
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13011, "导入文件无效", err.Error())
	default:
		handleCommonError(c, err)
	}
}
