// Package handler 提供 HTTP 请求处理器
// 本文件处理房间注册相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// RoomHandler 房间请求处理器
type RoomHandler struct {
	roomSvc service.RoomService
}

func NewRoomHandler(roomSvc service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// CreateOrGetRoom 创建或获取房间
// POST /room/createOrGet
// 请求体: request.CreateRoomRequest
// 响应: respond.CreateRoomRespond
func (h *RoomHandler) CreateOrGetRoom(c *gin.Context) {
	var req request.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	req.ActorId = currentIdentity(c).UserID
	data, err := h.roomSvc.CreateOrGetRoom(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetRoom 房间详情
// GET /room/get?roomId=xxx
func (h *RoomHandler) GetRoom(c *gin.Context) {
	var req request.RoomQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.roomSvc.GetRoom(c.Request.Context(), req.RoomId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListRooms 当前用户的房间列表，按平台角色过滤
// GET /room/list?role=vc
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var req request.ListRoomsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	id := currentIdentity(c)
	role := id.Role
	if role == "" {
		role = req.Role
	}
	data, err := h.roomSvc.ListRooms(c.Request.Context(), id.UserID, role)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RenameRoom 修改房间名
// POST /room/rename
func (h *RoomHandler) RenameRoom(c *gin.Context) {
	var req request.RenameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.roomSvc.RenameRoom(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.Name); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ArchiveRoom 归档房间
// POST /room/archive
func (h *RoomHandler) ArchiveRoom(c *gin.Context) {
	var req request.RoomIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.roomSvc.ArchiveRoom(c.Request.Context(), req.RoomId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// CloseRoom 关闭房间
// POST /room/close
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	var req request.RoomIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.roomSvc.CloseRoom(c.Request.Context(), req.RoomId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// AddMemoryNote 追加 AI 协作草稿
// POST /room/memory
func (h *RoomHandler) AddMemoryNote(c *gin.Context) {
	var req request.MemoryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.roomSvc.AddMemoryNote(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.Kind, req.Text); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
