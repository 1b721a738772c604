// Package handler 提供 HTTP 请求处理器
// 本文件处理成员与邀请码相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// MemberHandler 成员请求处理器
type MemberHandler struct {
	memberSvc service.MemberService
}

func NewMemberHandler(memberSvc service.MemberService) *MemberHandler {
	return &MemberHandler{memberSvc: memberSvc}
}

// GenerateInvite 生成邀请码
// POST /invite/generate
// 响应: respond.InviteRespond
func (h *MemberHandler) GenerateInvite(c *gin.Context) {
	var req request.GenerateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.memberSvc.GenerateInvite(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.MaxUses)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// JoinViaInvite 通过邀请码加入
// POST /invite/join
// 响应: { roomId: string }
func (h *MemberHandler) JoinViaInvite(c *gin.Context) {
	var req request.JoinViaInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	id := currentIdentity(c)
	roomId, err := h.memberSvc.JoinViaInvite(c.Request.Context(), req.Code, id.UserID, id.UserName)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"roomId": roomId})
}

// AddMember 添加成员
// POST /room/member/add
func (h *MemberHandler) AddMember(c *gin.Context) {
	var req request.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.memberSvc.AddMember(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.TargetId, req.TargetName); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// RemoveMember 移除成员
// POST /room/member/remove
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	var req request.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.memberSvc.RemoveMember(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.TargetId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Leave 退出房间
// POST /room/leave
func (h *MemberHandler) Leave(c *gin.Context) {
	var req request.RoomIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	userId := currentIdentity(c).UserID
	if err := h.memberSvc.RemoveMember(c.Request.Context(), req.RoomId, userId, userId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ListMembers 房间成员
// GET /room/member/list?roomId=xxx
func (h *MemberHandler) ListMembers(c *gin.Context) {
	var req request.RoomQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.memberSvc.ListMembers(c.Request.Context(), req.RoomId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ToggleMute 切换免打扰
// POST /room/mute
// 响应: { muted: bool }
func (h *MemberHandler) ToggleMute(c *gin.Context) {
	var req request.RoomIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	muted, err := h.memberSvc.ToggleMute(c.Request.Context(), req.RoomId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"muted": muted})
}
