package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/pkg/response"
)

// DocumentHandler 实习文档上传下载
type DocumentHandler struct {
	documentSvc service.DocumentService
}

// NewDocumentHandler 创建 DocumentHandler
func NewDocumentHandler(documentSvc service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentSvc: documentSvc}
}

// UploadDocument multipart/form-data：file + internship_id + doc_type [+ description]
// POST /api/v1/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, codeTooLarge, "请求体过大")
			return
		}
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16010, "请上传文件（字段名 file）")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 16010, "无法读取上传的文件")
		return
	}
	defer f.Close()

	doc, err := h.documentSvc.Upload(c.Request.Context(), caller, &req, service.UploadFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      f,
	})
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}
	response.Created(c, doc)
}

// ListDocuments GET /api/v1/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req dto.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, total, err := h.documentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListDocumentsByType GET /api/v1/documents/types/:type
func (h *DocumentHandler) ListDocumentsByType(c *gin.Context) {
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	list, err := h.documentSvc.ListByType(c.Request.Context(), caller, c.Param("type"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetDocument GET /api/v1/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := pathID(c, "文档")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	doc, err := h.documentSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}
	response.OK(c, doc)
}

// DownloadDocument GET /api/v1/documents/:id/download
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	id, ok := pathID(c, "文档")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	file, err := h.documentSvc.Download(c.Request.Context(), caller, id)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}
	defer file.Reader.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, file.Size, contentType, file.Reader, map[string]string{
		"Content-Disposition": "attachment; filename*=UTF-8''" + url.PathEscape(file.Name),
	})
}

// DeleteDocument 先删记录再删文件
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := pathID(c, "文档")
	if !ok {
		return
	}
	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.documentSvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleDocumentError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *DocumentHandler) handleDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(c, 16001, "文档不存在")
	case errors.Is(err, service.ErrInternshipNotFound):
		response.NotFound(c, 16002, "实习记录不存在")
	case errors.Is(err, service.ErrDocTypeRequired):
		response.BadRequest(c, 16003, "需要指定文档类型")
	default:
		handleCommonError(c, err)
	}
}
