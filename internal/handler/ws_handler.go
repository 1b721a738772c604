// Package handler 提供 HTTP 请求处理器
// 本文件把房间列表与消息订阅以 WebSocket 推送给客户端
package handler

import (
	"context"
	"net/http"
	"time"

	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

// 前端与后端不同源时 gorilla 默认会拒绝握手，身份已由 JWT 中间件校验
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WsHandler 实时快照推送
type WsHandler struct {
	roomSvc    service.RoomService
	messageSvc service.MessageService
}

func NewWsHandler(roomSvc service.RoomService, messageSvc service.MessageService) *WsHandler {
	return &WsHandler{roomSvc: roomSvc, messageSvc: messageSvc}
}

// Rooms 推送当前用户的房间列表
// GET /ws/rooms?token=xxx
func (h *WsHandler) Rooms(c *gin.Context) {
	id := currentIdentity(c)
	sub, err := h.roomSvc.SubscribeRooms(c.Request.Context(), id.UserID, id.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	stream(c, sub)
}

// Messages 推送房间消息
// GET /ws/messages?roomId=xxx&token=xxx
func (h *WsHandler) Messages(c *gin.Context) {
	var req request.RoomQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	sub, err := h.messageSvc.SubscribeMessages(c.Request.Context(), req.RoomId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	stream(c, sub)
}

// stream 升级连接后把每个快照以 JSON 写出，客户端断开时取消订阅
func stream[T any](c *gin.Context, sub *feed.Subscription[T]) {
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 只读控制帧，读失败说明客户端已断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snapshot); err != nil {
				zap.L().Debug("websocket write failed", zap.String("user_id", c.GetString("user_id")), zap.Error(err))
				return
			}
		}
	}
}
