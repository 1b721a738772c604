// Package model 定义数据库实体模型
// 本文件定义房间消息及其反应、已读记录
package model

import "time"

// 消息类型
const (
	MessageTypeText    = "text"
	MessageTypeFile    = "file"
	MessageTypeImage   = "image"
	MessageTypeVideo   = "video"
	MessageTypeVoice   = "voice"
	MessageTypeSystem  = "system"
	MessageTypeAIReply = "ai-reply"
)

// Message 房间消息
// 排序键为 (CreatedAt, Seq)，Seq 为雪花 ID，同一时间戳下也保持稳定顺序
// 删除为软删除：IsDeleted 置位后默认读取不返回，但记录保留以维持回复链
type Message struct {
	Id       uint   `gorm:"column:id;primaryKey"`
	Uuid     string `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null;comment:消息雪花ID"`
	Seq      int64  `gorm:"column:seq;index;not null;comment:单调递增序号"`
	RoomUuid string `gorm:"column:room_uuid;type:varchar(191);index:idx_room_created;not null;comment:房间id"`

	SendId     string `gorm:"column:send_id;type:varchar(64);not null;comment:发送者id"`
	SendName   string `gorm:"column:send_name;type:varchar(64);comment:发送者昵称"`
	SendAvatar string `gorm:"column:send_avatar;type:varchar(255);comment:发送者头像"`

	Type     string `gorm:"column:type;type:varchar(16);not null;comment:消息类型"`
	Text     string `gorm:"column:text;type:TEXT;comment:消息内容"`
	ReplyTo  string `gorm:"column:reply_to;type:varchar(32);comment:回复的消息id"`
	FileUuid string `gorm:"column:file_uuid;type:varchar(32);comment:附件id"`

	IsPinned  bool       `gorm:"column:is_pinned;not null;default:false"`
	IsEdited  bool       `gorm:"column:is_edited;not null;default:false"`
	EditedAt  *time.Time `gorm:"column:edited_at"`
	IsDeleted bool       `gorm:"column:is_deleted;index;not null;default:false"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
	CreatedAt time.Time  `gorm:"column:created_at;index:idx_room_created;not null"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// MessageReaction (消息, 表情, 用户) 唯一，存在即表示已反应
type MessageReaction struct {
	Id          uint      `gorm:"column:id;primaryKey"`
	MessageUuid string    `gorm:"column:message_uuid;type:varchar(32);uniqueIndex:idx_reaction;not null"`
	Emoji       string    `gorm:"column:emoji;type:varchar(32);uniqueIndex:idx_reaction;not null"`
	UserId      string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:idx_reaction;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (MessageReaction) TableName() string {
	return "message_reaction"
}

// MessageRead 已读记录
type MessageRead struct {
	Id          uint      `gorm:"column:id;primaryKey"`
	MessageUuid string    `gorm:"column:message_uuid;type:varchar(32);uniqueIndex:idx_read;not null"`
	UserId      string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:idx_read;not null"`
	ReadAt      time.Time `gorm:"column:read_at"`
}

func (MessageRead) TableName() string {
	return "message_read"
}
