package model

import "time"

// 房间内角色
const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// IsPrivilegedRole owner 与 admin 可执行管理操作
func IsPrivilegedRole(role string) bool {
	return role == MemberRoleOwner || role == MemberRoleAdmin
}

// RoomMember 房间成员
// 成员集合与角色表是同一批记录，因此"成员集合包含角色表所有键"天然成立
// 退出/移除为物理删除，历史由审计日志保留
type RoomMember struct {
	Id          uint      `gorm:"column:id;primaryKey"`
	RoomUuid    string    `gorm:"column:room_uuid;type:varchar(191);uniqueIndex:idx_room_user;not null;comment:房间id"`
	UserId      string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:idx_room_user;index;not null;comment:用户id"`
	Role        string    `gorm:"column:role;type:varchar(16);not null;comment:owner/admin/member"`
	DisplayName string    `gorm:"column:display_name;type:varchar(64);comment:显示名"`
	JoinedAt    time.Time `gorm:"column:joined_at;comment:加入时间"`
}

func (RoomMember) TableName() string {
	return "room_member"
}
