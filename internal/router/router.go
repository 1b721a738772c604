// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"raft_chat_server/internal/handler"
	"raft_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有注入的 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用
// /auth 为公开路由，其余路由需要 Access Token
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.RegisterAuthRoutes(r.Group("")) // 认证路由（Token 刷新）

	authed := r.Group("")
	authed.Use(middleware.JWTAuth())
	rt.RegisterRoomRoutes(authed)       // 房间与成员
	rt.RegisterMessageRoutes(authed)    // 消息与文件
	rt.RegisterModerationRoutes(authed) // 举报与审计
	rt.RegisterWebSocketRoutes(authed)  // 实时推送
}
