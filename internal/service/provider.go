// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/repository"
	myredis "raft_chat_server/internal/dao/redis"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/infrastructure/storage"
	"raft_chat_server/internal/service/chatroom"
)

// Services 聚合所有 Service 实例
// 六个接口由同一个房间引擎实现，按职责拆分便于 Handler 只依赖自己需要的部分
type Services struct {
	Room    RoomService
	Member  MemberService
	Message MessageService
	File    FileService
	Report  ReportService
	Audit   AuditService
}

// Deps 房间引擎的外部依赖
type Deps struct {
	Repos    *repository.Repositories
	Cache    myredis.AsyncCacheService // 可以为 nil
	Feed     feed.Feed
	Notifier notify.Notifier
	Blobs    storage.BlobStore
	Room     config.RoomConfig
}

// NewServices 创建房间引擎并按接口聚合
func NewServices(deps Deps) *Services {
	engine := chatroom.NewChatRoomService(deps.Repos, deps.Cache, deps.Feed, deps.Notifier, deps.Blobs, deps.Room)
	return &Services{
		Room:    engine,
		Member:  engine,
		Message: engine,
		File:    engine,
		Report:  engine,
		Audit:   engine,
	}
}
