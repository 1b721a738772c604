package request

// ParticipantRequest 房间锚定参与者
type ParticipantRequest struct {
	Id   string `json:"id" binding:"required,max=64"`
	Name string `json:"name" binding:"max=64"`
	Role string `json:"role" binding:"max=32"`
	Logo string `json:"logo" binding:"max=255"`
}

// CreateRoomRequest 创建或获取房间
// 使用位置:
//   - internal/handler/room_handler.go: CreateOrGetRoomHandler
//   - internal/infrastructure/mq/trigger_consumer.go: 业务事件触发
type CreateRoomRequest struct {
	Kind         string             `json:"kind" binding:"required"`
	Initiator    ParticipantRequest `json:"initiator" binding:"required"`
	Counterpart  ParticipantRequest `json:"counterpart" binding:"required"`
	ContextKeys  []string           `json:"contextKeys"`
	ProjectId    string             `json:"projectId"`
	ProjectTitle string             `json:"projectTitle"`
	OrgId        string             `json:"orgId"`
	ActorId      string             `json:"-"` // 调用方身份，来自 Token 或触发事件
}

// RenameRoomRequest 修改房间名
type RenameRoomRequest struct {
	RoomId string `json:"roomId" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// RoomIdRequest 仅携带房间 ID 的请求（归档、关闭、生成邀请码等）
type RoomIdRequest struct {
	RoomId string `json:"roomId" binding:"required"`
}

// MemoryNoteRequest 追加 AI 协作草稿
type MemoryNoteRequest struct {
	RoomId string `json:"roomId" binding:"required"`
	Kind   string `json:"kind" binding:"required,oneof=decisions tasks milestones notes"`
	Text   string `json:"text" binding:"required,max=1000"`
}
