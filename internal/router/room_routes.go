// Package router 提供 HTTP 路由注册
// 本文件定义房间、成员与邀请码相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoomRoutes 注册房间相关路由（需要认证）
func (rt *Router) RegisterRoomRoutes(rg *gin.RouterGroup) {
	roomGroup := rg.Group("/room")
	{
		roomGroup.POST("/createOrGet", rt.handlers.Room.CreateOrGetRoom) // 幂等创建房间
		roomGroup.GET("/get", rt.handlers.Room.GetRoom)                  // 房间详情
		roomGroup.GET("/list", rt.handlers.Room.ListRooms)               // 我的房间列表
		roomGroup.POST("/rename", rt.handlers.Room.RenameRoom)
		roomGroup.POST("/archive", rt.handlers.Room.ArchiveRoom)
		roomGroup.POST("/close", rt.handlers.Room.CloseRoom)
		roomGroup.POST("/memory", rt.handlers.Room.AddMemoryNote) // AI 协作草稿
		roomGroup.POST("/leave", rt.handlers.Member.Leave)
		roomGroup.POST("/mute", rt.handlers.Member.ToggleMute)

		roomGroup.GET("/member/list", rt.handlers.Member.ListMembers)
		roomGroup.POST("/member/add", rt.handlers.Member.AddMember)
		roomGroup.POST("/member/remove", rt.handlers.Member.RemoveMember)
	}

	inviteGroup := rg.Group("/invite")
	{
		inviteGroup.POST("/generate", rt.handlers.Member.GenerateInvite)
		inviteGroup.POST("/join", rt.handlers.Member.JoinViaInvite)
	}
}
