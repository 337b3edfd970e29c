package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/response"
	"github.com/baratadiego/appestagio/pkg/storage"
)

// 各模块通用的错误码
const (
	codeBadRequest   = 10001
	codeForbidden    = 10003
	codeTooLarge     = 10005
	codeNotFound     = 10404
	codeValidation   = 10422
	codeConflict     = 10409
	codeStaleVersion = 10410
	codeStorage      = 10500
)

// handleCommonError 处理跨模块的错误类别；未识别的错误记入 gin 上下文并返回 500
func handleCommonError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, policy.ErrPermissionDenied):
		response.Forbidden(c, codeForbidden, "无权执行该操作")
	case errors.Is(err, validation.ErrConflict):
		writeFieldError(c, http.StatusConflict, codeConflict, err)
	case errors.Is(err, validation.ErrFormat),
		errors.Is(err, validation.ErrRange),
		errors.Is(err, validation.ErrDuration),
		errors.Is(err, validation.ErrRequired):
		writeFieldError(c, http.StatusBadRequest, codeValidation, err)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, codeStaleVersion, pkgerrors.ErrOptimisticLock.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case errors.As(err, &tooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, codeTooLarge, "请求体过大")
	case errors.Is(err, storage.ErrStorage):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, codeStorage, "文件存储操作失败")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

func writeFieldError(c *gin.Context, status, code int, err error) {
	fe := validation.First(err)
	if fe == nil {
		response.Error(c, status, code, err.Error())
		return
	}
	response.ErrorWithDetails(c, status, code, fe.Message, fe.Field)
}
