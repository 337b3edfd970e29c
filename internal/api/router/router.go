package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/api/handler"
	"github.com/baratadiego/appestagio/internal/api/middleware"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/pkg/jwt"
	"github.com/baratadiego/appestagio/pkg/metrics"
	"github.com/baratadiego/appestagio/pkg/redis"
)

// 登录接口限流：每个 IP 每分钟 10 次
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎。rdb 为 nil 时不启用黑名单与限流。
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 避免把 (*redis.Client)(nil) 装进非 nil 接口
	var (
		checker middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	if rdb != nil {
		checker = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, m))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleSupervisor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, loginRateLimit, loginRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 账号管理
			users := authorized.Group("/users", admin)
			{
				users.POST("", h.User.CreateUser)
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 实习生（实习生本人只能看到自己的记录，Service 层鉴权）
			interns := authorized.Group("/interns")
			{
				interns.POST("", admin, h.Intern.CreateIntern)
				interns.GET("", h.Intern.ListInterns)
				interns.GET("/active", h.Intern.ListActiveInterns)
				interns.GET("/stats", staff, h.Intern.InternStats)
				interns.POST("/import", admin, h.Intern.ImportInterns)
				interns.GET("/:id", h.Intern.GetIntern)
				interns.PUT("/:id", h.Intern.UpdateIntern)
				interns.DELETE("/:id", admin, h.Intern.DeleteIntern)
				interns.GET("/:id/internships", h.Intern.ListInternInternships)
				interns.GET("/:id/notifications", h.Intern.ListInternNotifications)
			}

			// 合作协议
			agreements := authorized.Group("/agreements")
			{
				agreements.POST("", admin, h.Agreement.CreateAgreement)
				agreements.GET("", h.Agreement.ListAgreements)
				agreements.GET("/active", h.Agreement.ListActiveAgreements)
				agreements.GET("/:id", h.Agreement.GetAgreement)
				agreements.PUT("/:id", admin, h.Agreement.UpdateAgreement)
				agreements.PUT("/:id/activate", admin, h.Agreement.ActivateAgreement)
				agreements.PUT("/:id/deactivate", admin, h.Agreement.DeactivateAgreement)
				agreements.DELETE("/:id", admin, h.Agreement.DeleteAgreement)
				agreements.GET("/:id/internships", staff, h.Agreement.ListAgreementInternships)
			}

			// 实习记录与状态流转
			internships := authorized.Group("/internships")
			{
				internships.POST("", admin, h.Internship.CreateInternship)
				internships.GET("", h.Internship.ListInternships)
				internships.GET("/ending-soon", staff, h.Internship.EndingSoon)
				internships.GET("/:id", h.Internship.GetInternship)
				internships.PUT("/:id", admin, h.Internship.UpdateInternship)
				internships.DELETE("/:id", admin, h.Internship.DeleteInternship)
				internships.GET("/:id/documents", h.Internship.ListInternshipDocuments)
				internships.POST("/:id/finish", admin, h.Internship.Finish)
				internships.POST("/:id/cancel", admin, h.Internship.Cancel)
				internships.POST("/:id/suspend", admin, h.Internship.Suspend)
			}

			// 文档
			documents := authorized.Group("/documents")
			{
				documents.POST("", h.Document.UploadDocument)
				documents.GET("", h.Document.ListDocuments)
				documents.GET("/types/:type", h.Document.ListDocumentsByType)
				documents.GET("/:id", h.Document.GetDocument)
				documents.GET("/:id/download", h.Document.DownloadDocument)
				documents.DELETE("/:id", h.Document.DeleteDocument)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.POST("", admin, h.Notification.CreateNotification)
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread", h.Notification.ListUnread)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.GET("/:id", h.Notification.GetNotification)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.PUT("/:id/unread", h.Notification.MarkUnread)
				notifications.DELETE("/:id", h.Notification.DeleteNotification)
			}

			// 统计
			statistics := authorized.Group("/statistics", admin)
			{
				statistics.GET("", h.Report.GetStatistics)
				statistics.GET("/monthly", h.Report.MonthlyTrends)
				statistics.GET("/courses", h.Report.CourseDistribution)
			}

			// 报表与导出
			reports := authorized.Group("/reports", staff)
			{
				reports.GET("/interns", h.Report.InternReport)
				reports.GET("/interns/export", h.Report.ExportInterns)
				reports.GET("/internships", h.Report.InternshipReport)
				reports.GET("/internships/export", h.Report.ExportInternships)
			}
		}
	}

	return r
}
