package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/pkg/response"
)

// BodyLimit 限制请求体大小。声明了 Content-Length 且超限的请求直接返回 413；
// 其余请求由 MaxBytesReader 在读取时截断，读取方会得到 *http.MaxBytesError。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
