// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数，通过构造函数注入 Service 依赖
package handler

import (
	"raft_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Auth    *AuthHandler
	Room    *RoomHandler
	Member  *MemberHandler
	Message *MessageHandler
	File    *FileHandler
	Report  *ReportHandler
	Audit   *AuditHandler
	Ws      *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:    NewAuthHandler(),
		Room:    NewRoomHandler(svc.Room),
		Member:  NewMemberHandler(svc.Member),
		Message: NewMessageHandler(svc.Message),
		File:    NewFileHandler(svc.File),
		Report:  NewReportHandler(svc.Report),
		Audit:   NewAuditHandler(svc.Audit),
		Ws:      NewWsHandler(svc.Room, svc.Message),
	}
}
