// Package router 提供 HTTP 路由注册
// 本文件定义举报与审计相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterModerationRoutes 注册举报与审计路由（需要认证）
func (rt *Router) RegisterModerationRoutes(rg *gin.RouterGroup) {
	reportGroup := rg.Group("/report")
	{
		reportGroup.POST("/submit", rt.handlers.Report.Report)
		reportGroup.POST("/review", rt.handlers.Report.ReviewReport)
		reportGroup.GET("/list", rt.handlers.Report.ListReports)
	}

	rg.GET("/audit/list", rt.handlers.Audit.ListAudit)
}
