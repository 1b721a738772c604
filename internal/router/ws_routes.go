// Package router 提供 HTTP 路由注册
// 本文件定义 WebSocket 相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 相关路由（需要认证）
// 浏览器无法设置 Authorization 头，可用 ?token= 传 Access Token
// 请求示例: ws://host:port/ws/messages?roomId=deal_F_V_P123&token=xxx
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	wsGroup := rg.Group("/ws")
	{
		wsGroup.GET("/rooms", rt.handlers.Ws.Rooms)
		wsGroup.GET("/messages", rt.handlers.Ws.Messages)
	}
}
