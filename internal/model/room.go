// Package model 定义数据库实体模型
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 房间类型
const (
	RoomTypeDeal     = "deal"
	RoomTypeListing  = "listing"
	RoomTypeIdo      = "ido"
	RoomTypeCampaign = "campaign"
	RoomTypeProposal = "proposal"
	RoomTypeTeam     = "team"
	RoomTypeOps      = "ops"
)

// 房间状态，只允许 active -> archived -> closed
const (
	RoomStatusActive   = "active"
	RoomStatusArchived = "archived"
	RoomStatusClosed   = "closed"
)

// IsValidRoomType 检查房间类型是否在枚举内
func IsValidRoomType(t string) bool {
	switch t {
	case RoomTypeDeal, RoomTypeListing, RoomTypeIdo, RoomTypeCampaign,
		RoomTypeProposal, RoomTypeTeam, RoomTypeOps:
		return true
	}
	return false
}

// RoomMemory AI 助手的协作草稿，非权威数据
type RoomMemory struct {
	Decisions  []string `json:"decisions"`
	Tasks      []string `json:"tasks"`
	Milestones []string `json:"milestones"`
	NotePoints []string `json:"notePoints"`
}

// Room 房间模型
// Uuid 由 (类型, 排序后的参与者, 上下文键) 确定性生成，唯一索引保证并发创建只落一条
type Room struct {
	gorm.Model
	Uuid   string `gorm:"column:uuid;uniqueIndex;type:varchar(191);not null;comment:房间确定性id"`
	Name   string `gorm:"column:name;type:varchar(191);not null;comment:房间名"`
	Type   string `gorm:"column:type;type:varchar(16);index;not null;comment:房间类型"`
	Status string `gorm:"column:status;type:varchar(16);index;not null;default:active;comment:状态"`

	// 两个锚定参与者，冗余存储展示信息
	InitiatorId     string `gorm:"column:initiator_id;type:varchar(64);index;not null;comment:发起方id"`
	InitiatorName   string `gorm:"column:initiator_name;type:varchar(64);comment:发起方名称"`
	InitiatorRole   string `gorm:"column:initiator_role;type:varchar(32);comment:发起方平台角色"`
	InitiatorLogo   string `gorm:"column:initiator_logo;type:varchar(255);comment:发起方头像"`
	CounterpartId   string `gorm:"column:counterpart_id;type:varchar(64);index;not null;comment:对手方id"`
	CounterpartName string `gorm:"column:counterpart_name;type:varchar(64);comment:对手方名称"`
	CounterpartRole string `gorm:"column:counterpart_role;type:varchar(32);comment:对手方平台角色"`
	CounterpartLogo string `gorm:"column:counterpart_logo;type:varchar(255);comment:对手方头像"`

	ProjectId string `gorm:"column:project_id;type:varchar(64);comment:关联项目"`
	OrgId     string `gorm:"column:org_id;type:varchar(64);comment:关联机构"`

	// 房间设置
	FilesAllowed      bool                        `gorm:"column:files_allowed;not null;default:true;comment:是否允许上传文件"`
	MaxFileSizeMB     int                         `gorm:"column:max_file_size_mb;not null;default:100;comment:文件大小上限MB"`
	AllowedFileTypes  datatypes.JSONSlice[string] `gorm:"column:allowed_file_types;type:json;comment:允许的扩展名"`
	RequireFileReview bool                        `gorm:"column:require_file_review;not null;default:true;comment:文件是否需审核"`

	CreatedBy      string    `gorm:"column:created_by;type:varchar(64);comment:创建者"`
	LastActivityAt time.Time `gorm:"column:last_activity_at;index;comment:最后活跃时间"`

	InviteCode   string     `gorm:"column:invite_code;type:varchar(16);comment:当前邀请码"`
	InviteExpiry *time.Time `gorm:"column:invite_expiry;comment:当前邀请码过期时间"`

	Memory datatypes.JSONType[RoomMemory] `gorm:"column:ai_memory;type:json;comment:AI协作草稿"`
}

func (Room) TableName() string {
	return "room"
}

// RoomPin 置顶消息集合，一行一个消息
type RoomPin struct {
	Id          uint      `gorm:"column:id;primaryKey"`
	RoomUuid    string    `gorm:"column:room_uuid;type:varchar(191);uniqueIndex:idx_room_pin;not null"`
	MessageUuid string    `gorm:"column:message_uuid;type:varchar(32);uniqueIndex:idx_room_pin;not null"`
	PinnedBy    string    `gorm:"column:pinned_by;type:varchar(64)"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (RoomPin) TableName() string {
	return "room_pin"
}

// RoomMute 免打扰用户集合
type RoomMute struct {
	Id        uint      `gorm:"column:id;primaryKey"`
	RoomUuid  string    `gorm:"column:room_uuid;type:varchar(191);uniqueIndex:idx_room_mute;not null"`
	UserId    string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:idx_room_mute;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (RoomMute) TableName() string {
	return "room_mute"
}
