package router

import (
	"github.com/gin-gonic/gin"

	"threadline/internal/handlers"
	"threadline/internal/middleware"
)

type Handlers struct {
	Comments *handlers.CommentHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// 公共路由 (Public Routes)
	r.GET("/healthz", h.Health.Health)                       // 健康检查
	r.GET("/posts/:postId/comments", h.Comments.ListForPost) // 文章评论（楼中楼）

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts/:postId/comments", h.Comments.Create) // 发表评论/回复
		authorized.PATCH("/comments/:id", h.Comments.Update)          // 编辑评论
		authorized.DELETE("/comments/:id", h.Comments.Delete)         // 删除评论（顶层评论连同回复）
	}

	// 审核路由 (Moderation Routes)，管理员权限在 service 层判断
	moderation := r.Group("/comments")
	moderation.Use(middleware.AuthRequired())
	{
		moderation.GET("", h.Admin.ListComments)                 // 全部评论，按状态筛选
		moderation.GET("/stats", h.Admin.Stats)                  // 审核统计
		moderation.PATCH("/:id/approve", h.Admin.ToggleApproval) // 切换通过状态
		moderation.PATCH("/:id/spam", h.Admin.MarkSpam)          // 标记垃圾评论
	}
}
