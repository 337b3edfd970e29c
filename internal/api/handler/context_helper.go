package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/api/middleware"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/pkg/jwt"
	"github.com/baratadiego/appestagio/pkg/response"
)

// MustGetUserID 从上下文取出 user_id；JWT 中间件未注入时写入 401 并返回 false
func MustGetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.CtxUserID)
	if id == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return id, true
}

// MustGetPrincipal 由 token 中的角色、邮箱、账号 ID 构造调用者
func MustGetPrincipal(c *gin.Context) (policy.Principal, bool) {
	id, ok := MustGetUserID(c)
	if !ok {
		return policy.Principal{}, false
	}
	p := policy.FromRole(c.GetString(middleware.CtxRole), c.GetString(middleware.CtxEmail), id)
	if p.Kind == policy.KindAnonymous {
		response.Forbidden(c, 10003, "无权限访问")
		return policy.Principal{}, false
	}
	return p, true
}

// mustGetClaims 登出时需要原始 access token 的声明
func mustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.CtxClaims)
	claims, ok := v.(*jwt.Claims)
	if !exists || !ok {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// pathID 读取路径参数 :id，为空时写入 400
func pathID(c *gin.Context, what string) (string, bool) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, what+"ID不能为空")
		return "", false
	}
	return id, true
}
