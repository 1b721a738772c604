package request

import "time"

// RoomQuery 仅携带房间 ID 的查询参数
type RoomQuery struct {
	RoomId string `form:"roomId" binding:"required"`
}

// ListRoomsQuery 房间列表，Role 为空时使用 Token 中的平台角色
type ListRoomsQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=founder vc exchange ido influencer agency admin"`
}

// ListMessagesQuery 消息列表，IncludeDeleted 仅 owner/admin 可用
type ListMessagesQuery struct {
	RoomId         string `form:"roomId" binding:"required"`
	IncludeDeleted bool   `form:"includeDeleted"`
}

// MessageSearchFilters 消息检索条件，时间为 RFC3339
type MessageSearchFilters struct {
	From   string    `form:"from"` // 发送者 ID
	Type   string    `form:"type"`
	Before time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
	After  time.Time `form:"after" time_format:"2006-01-02T15:04:05Z07:00"`
}

// SearchMessagesQuery 消息检索
type SearchMessagesQuery struct {
	RoomId string `form:"roomId" binding:"required"`
	MessageSearchFilters
}

// FileQuery 获取单个文件
type FileQuery struct {
	FileId string `form:"fileId" binding:"required"`
}

// StatusQuery 按状态过滤的房间级列表（文件审核队列、举报队列）
type StatusQuery struct {
	RoomId string `form:"roomId" binding:"required"`
	Status string `form:"status"`
}
