// Package handler 提供 HTTP 请求处理器
// 本文件处理房间消息相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	messageSvc service.MessageService
}

func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// SendMessage 发送文本消息
// POST /message/send
// 响应: { messageId: string }
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	id := currentIdentity(c)
	req.SenderId = id.UserID
	req.SenderName = id.UserName
	messageId, err := h.messageSvc.SendMessage(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"messageId": messageId})
}

// EditMessage 编辑自己的消息
// POST /message/edit
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.messageSvc.EditMessage(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID, req.Text); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// DeleteMessage 软删除消息
// POST /message/delete
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	var req request.MessageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.messageSvc.DeleteMessage(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// React 切换表情回应
// POST /message/react
// 响应: { added: bool }
func (h *MessageHandler) React(c *gin.Context) {
	var req request.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	added, err := h.messageSvc.React(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID, req.Emoji)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"added": added})
}

// Pin 置顶
// POST /message/pin
func (h *MessageHandler) Pin(c *gin.Context) {
	var req request.MessageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.messageSvc.Pin(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Unpin 取消置顶
// POST /message/unpin
func (h *MessageHandler) Unpin(c *gin.Context) {
	var req request.MessageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.messageSvc.Unpin(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// MarkRead 标记已读
// POST /message/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req request.MessageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.messageSvc.MarkRead(c.Request.Context(), req.RoomId, req.MessageId, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// SearchMessages 检索房间消息，最新的在前
// GET /message/search?roomId=xxx&from=V&type=text&before=2024-01-02T00:00:00Z&after=...
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	var req request.SearchMessagesQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messageSvc.SearchMessages(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.MessageSearchFilters)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMessages 房间消息，按时间升序
// GET /message/list?roomId=xxx&includeDeleted=false
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var req request.ListMessagesQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messageSvc.ListMessages(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.IncludeDeleted)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
