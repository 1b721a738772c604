package model

import "time"

// Invite 房间邀请码
// UsedCount 只通过条件自增修改，永不超过 MaxUses；过期或用尽的邀请码保留不删
type Invite struct {
	Id        uint      `gorm:"column:id;primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;type:varchar(16);not null;comment:邀请码"`
	RoomUuid  string    `gorm:"column:room_uuid;type:varchar(191);index;not null;comment:房间id"`
	CreatedBy string    `gorm:"column:created_by;type:varchar(64);not null;comment:创建者"`
	MaxUses   int       `gorm:"column:max_uses;not null;comment:最大使用次数"`
	UsedCount int       `gorm:"column:used_count;not null;default:0;comment:已使用次数"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;comment:过期时间"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Invite) TableName() string {
	return "room_invite"
}

// InviteUsage 邀请码使用记录（used-by 集合）
type InviteUsage struct {
	Id         uint      `gorm:"column:id;primaryKey"`
	InviteCode string    `gorm:"column:invite_code;type:varchar(16);uniqueIndex:idx_invite_user;not null"`
	UserId     string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:idx_invite_user;not null"`
	UsedAt     time.Time `gorm:"column:used_at"`
}

func (InviteUsage) TableName() string {
	return "room_invite_usage"
}
