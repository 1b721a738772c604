package model

import (
	"time"

	"gorm.io/datatypes"
)

// 审计动作
const (
	AuditJoin          = "join"
	AuditLeave         = "leave"
	AuditRename        = "rename"
	AuditAddMember     = "add_member"
	AuditRemoveMember  = "remove_member"
	AuditPin           = "pin"
	AuditUnpin         = "unpin"
	AuditFileUpload    = "file_upload"
	AuditFileApprove   = "file_approve"
	AuditFileReject    = "file_reject"
	AuditReport        = "report"
	AuditStatusChange  = "status_change"
	AuditInviteCreate  = "invite_create"
	AuditMessageDelete = "message_delete"
	AuditReportReview  = "report_review"
)

// AuditLog 审计日志，只追加，不更新不删除
// Detail 足以在不知道变更前状态的情况下还原发生了什么
type AuditLog struct {
	Id        uint              `gorm:"column:id;primaryKey"`
	Uuid      string            `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null"`
	Seq       int64             `gorm:"column:seq;not null"`
	RoomUuid  string            `gorm:"column:room_uuid;type:varchar(191);index:idx_audit_room;not null"`
	ActorId   string            `gorm:"column:actor_id;type:varchar(64);not null"`
	Action    string            `gorm:"column:action;type:varchar(32);not null"`
	Detail    datatypes.JSONMap `gorm:"column:detail;type:json"`
	CreatedAt time.Time         `gorm:"column:created_at;index:idx_audit_room"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
