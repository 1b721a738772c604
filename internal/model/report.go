package model

import "time"

// 举报状态：pending -> reviewed -> resolved/dismissed，后两者为终态
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report 用户举报
type Report struct {
	Id             uint       `gorm:"column:id;primaryKey"`
	Uuid           string     `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null"`
	RoomUuid       string     `gorm:"column:room_uuid;type:varchar(191);index;not null"`
	MessageUuid    string     `gorm:"column:message_uuid;type:varchar(32)"`
	ReportedBy     string     `gorm:"column:reported_by;type:varchar(64);not null"`
	ReportedUser   string     `gorm:"column:reported_user;type:varchar(64)"`
	Reason         string     `gorm:"column:reason;type:varchar(64);not null"`
	Details        string     `gorm:"column:details;type:TEXT"`
	Status         string     `gorm:"column:status;type:varchar(16);index;not null"`
	ResolutionNote string     `gorm:"column:resolution_note;type:varchar(500)"`
	ReviewedBy     string     `gorm:"column:reviewed_by;type:varchar(64)"`
	ReviewedAt     *time.Time `gorm:"column:reviewed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (Report) TableName() string {
	return "report"
}
