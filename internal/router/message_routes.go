// Package router 提供 HTTP 路由注册
// 本文件定义消息与文件相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息与文件相关路由（需要认证）
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	messageGroup := rg.Group("/message")
	{
		messageGroup.GET("/list", rt.handlers.Message.ListMessages) // 房间消息记录
		messageGroup.GET("/search", rt.handlers.Message.SearchMessages)
		messageGroup.POST("/send", rt.handlers.Message.SendMessage)
		messageGroup.POST("/edit", rt.handlers.Message.EditMessage)
		messageGroup.POST("/delete", rt.handlers.Message.DeleteMessage) // 软删除
		messageGroup.POST("/react", rt.handlers.Message.React)
		messageGroup.POST("/pin", rt.handlers.Message.Pin)
		messageGroup.POST("/unpin", rt.handlers.Message.Unpin)
		messageGroup.POST("/read", rt.handlers.Message.MarkRead)
	}

	fileGroup := rg.Group("/file")
	{
		fileGroup.POST("/upload", rt.handlers.File.UploadFile) // multipart 上传，进入审核
		fileGroup.POST("/review", rt.handlers.File.ReviewFile)
		fileGroup.GET("/get", rt.handlers.File.GetFile)
		fileGroup.GET("/list", rt.handlers.File.ListFiles) // 审核队列
	}
}
