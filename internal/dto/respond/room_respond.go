package respond

import "time"

// CreateRoomRespond 创建或获取房间的结果
type CreateRoomRespond struct {
	RoomId  string `json:"roomId"`
	Created bool   `json:"created"`
}

// ParticipantView 锚定参与者
type ParticipantView struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Logo string `json:"logo"`
}

// RoomSettingsView 房间设置
type RoomSettingsView struct {
	FilesAllowed      bool     `json:"filesAllowed"`
	MaxFileSizeMB     int      `json:"maxFileSizeMB"`
	AllowedFileTypes  []string `json:"allowedFileTypes"`
	RequireFileReview bool     `json:"requireFileReview"`
}

// RoomMemoryView AI 协作草稿
type RoomMemoryView struct {
	Decisions  []string `json:"decisions"`
	Tasks      []string `json:"tasks"`
	Milestones []string `json:"milestones"`
	NotePoints []string `json:"notePoints"`
}

// RoomView 房间详情
// 使用位置:
//   - internal/service/chatroom/room.go: GetRoom, SubscribeRooms
//   - internal/service/visibility: FilterRoomsForCaller
type RoomView struct {
	RoomId         string            `json:"roomId"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	Initiator      ParticipantView   `json:"initiator"`
	Counterpart    ParticipantView   `json:"counterpart"`
	ProjectId      string            `json:"projectId,omitempty"`
	OrgId          string            `json:"orgId,omitempty"`
	Members        []string          `json:"members"`
	Roles          map[string]string `json:"roles"`
	Settings       RoomSettingsView  `json:"settings"`
	PinnedMessages []string          `json:"pinnedMessages"`
	MutedBy        []string          `json:"mutedBy"`
	InviteCode     string            `json:"inviteCode,omitempty"`
	InviteExpiry   *time.Time        `json:"inviteExpiry,omitempty"`
	Memory         RoomMemoryView    `json:"aiMemory"`
	CreatedBy      string            `json:"createdBy"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
}

// MemberView 房间成员
type MemberView struct {
	UserId      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// InviteRespond 邀请码
type InviteRespond struct {
	Code      string    `json:"code"`
	RoomId    string    `json:"roomId"`
	MaxUses   int       `json:"maxUses"`
	UsedCount int       `json:"usedCount"`
	ExpiresAt time.Time `json:"expiresAt"`
}
