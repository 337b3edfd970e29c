package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler 仪表盘统计与报表导出
type ReportHandler struct {
	statsSvc  service.StatisticsService
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(statsSvc service.StatisticsService, reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{statsSvc: statsSvc, reportSvc: reportSvc}
}

// ────────────────────── 统计 ──────────────────────

// GetStatistics 重算后返回统计快照
// GET /api/v1/statistics
func (h *ReportHandler) GetStatistics(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	stats, err := h.statsSvc.Get(c.Request.Context(), caller)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	response.OK(c, stats)
}

// MonthlyTrends GET /api/v1/statistics/monthly
func (h *ReportHandler) MonthlyTrends(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.statsSvc.MonthlyTrends(c.Request.Context(), caller)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CourseDistribution GET /api/v1/statistics/courses
func (h *ReportHandler) CourseDistribution(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.statsSvc.CourseDistribution(c.Request.Context(), caller)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ────────────────────── 报表 ──────────────────────

// InternReport GET /api/v1/reports/interns?start_date=&end_date=&status=&course=
func (h *ReportHandler) InternReport(c *gin.Context) {
	var req dto.InternReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.reportSvc.InternReport(c.Request.Context(), caller, &req)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	response.OK(c, result)
}

// InternshipReport GET /api/v1/reports/internships?start_date=&end_date=&status=&agreement_id=
func (h *ReportHandler) InternshipReport(c *gin.Context) {
	var req dto.InternshipReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.reportSvc.InternshipReport(c.Request.Context(), caller, &req)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportInterns GET /api/v1/reports/interns/export
func (h *ReportHandler) ExportInterns(c *gin.Context) {
	var req dto.InternReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	buf, filename, err := h.reportSvc.ExportInterns(c.Request.Context(), caller, &req)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

// ExportInternships GET /api/v1/reports/internships/export
func (h *ReportHandler) ExportInternships(c *gin.Context) {
	var req dto.InternshipReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	buf, filename, err := h.reportSvc.ExportInternships(c.Request.Context(), caller, &req)
	if err != nil {
		handleCommonError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
