// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层与消息队列消费者调用
package service

import (
	"context"

	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/feed"
)

// RoomService 房间注册
// 负责房间的幂等创建、改名、归档/关闭与房间列表
type RoomService interface {
	// CreateOrGetRoom 相同 (类型, 参与者, 上下文) 只会创建一个房间
	CreateOrGetRoom(ctx context.Context, req request.CreateRoomRequest) (*respond.CreateRoomRespond, error)
	// GetRoom 房间详情
	GetRoom(ctx context.Context, roomId, callerId string) (*respond.RoomView, error)
	// RenameRoom 修改房间名
	RenameRoom(ctx context.Context, roomId, callerId, newName string) error
	// ArchiveRoom 归档
	ArchiveRoom(ctx context.Context, roomId, callerId string) error
	// CloseRoom 关闭，终态
	CloseRoom(ctx context.Context, roomId, callerId string) error
	// AddMemoryNote 追加 AI 协作草稿
	AddMemoryNote(ctx context.Context, roomId, callerId, kind, text string) error
	// ListRooms 用户可见的 active 房间
	ListRooms(ctx context.Context, userId, role string) ([]respond.RoomView, error)
	// SubscribeRooms 实时房间列表
	SubscribeRooms(ctx context.Context, userId, role string) (*feed.Subscription[[]respond.RoomView], error)
}

// MemberService 成员与邀请
type MemberService interface {
	// GenerateInvite 生成邀请码
	GenerateInvite(ctx context.Context, roomId, callerId string, maxUses int) (*respond.InviteRespond, error)
	// JoinViaInvite 通过邀请码加入，返回房间 ID
	JoinViaInvite(ctx context.Context, code, userId, userName string) (string, error)
	// AddMember 管理员添加成员
	AddMember(ctx context.Context, roomId, actorId, targetId, targetName string) error
	// RemoveMember 退出或移除成员
	RemoveMember(ctx context.Context, roomId, actorId, targetId string) error
	// ListMembers 房间成员
	ListMembers(ctx context.Context, roomId, callerId string) ([]respond.MemberView, error)
	// ToggleMute 切换免打扰
	ToggleMute(ctx context.Context, roomId, userId string) (bool, error)
}

// MessageService 消息流
type MessageService interface {
	SendMessage(ctx context.Context, req request.SendMessageRequest) (string, error)
	EditMessage(ctx context.Context, roomId, messageId, callerId, text string) error
	DeleteMessage(ctx context.Context, roomId, messageId, callerId string) error
	React(ctx context.Context, roomId, messageId, userId, emoji string) (bool, error)
	Pin(ctx context.Context, roomId, messageId, callerId string) error
	Unpin(ctx context.Context, roomId, messageId, callerId string) error
	MarkRead(ctx context.Context, roomId, messageId, userId string) error
	ListMessages(ctx context.Context, roomId, callerId string, includeDeleted bool) ([]respond.MessageView, error)
	// SearchMessages 成员检索未删除的消息，最新的在前
	SearchMessages(ctx context.Context, roomId, callerId string, filters request.MessageSearchFilters) ([]respond.MessageView, error)
	SubscribeMessages(ctx context.Context, roomId, callerId string) (*feed.Subscription[[]respond.MessageView], error)
}

// FileService 文件审核流水线
type FileService interface {
	// UploadFile 上传并创建 pending 记录
	UploadFile(ctx context.Context, req request.UploadFileRequest) (string, error)
	// ReviewFile pending -> approved | rejected
	ReviewFile(ctx context.Context, req request.ReviewFileRequest, reviewerId string) error
	// GetFile 获取已通过的文件
	GetFile(ctx context.Context, fileId, callerId string) (*respond.FileView, error)
	// ListFiles 审核队列
	ListFiles(ctx context.Context, roomId, callerId, status string) ([]respond.FileView, error)
}

// ReportService 举报与处理
type ReportService interface {
	Report(ctx context.Context, req request.ReportRequest) (string, error)
	ReviewReport(ctx context.Context, req request.ReviewReportRequest, reviewerId string) error
	ListReports(ctx context.Context, roomId, callerId, status string) ([]respond.ReportView, error)
}

// AuditService 审计日志查询
type AuditService interface {
	ListAudit(ctx context.Context, roomId, callerId string) ([]respond.AuditView, error)
}
