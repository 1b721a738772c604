package model

import "time"

// 文件审核状态，pending 只能流转一次
const (
	FileStatusPending  = "pending"
	FileStatusApproved = "approved"
	FileStatusRejected = "rejected"
)

// FileUpload 上传文件记录
// pending 期间不会作为附件渲染；rejected 的记录保留但永不可取回
type FileUpload struct {
	Id           uint       `gorm:"column:id;primaryKey"`
	Uuid         string     `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null;comment:文件id"`
	RoomUuid     string     `gorm:"column:room_uuid;type:varchar(191);index;not null;comment:房间id"`
	UploadedBy   string     `gorm:"column:uploaded_by;type:varchar(64);not null;comment:上传者"`
	UploaderName string     `gorm:"column:uploader_name;type:varchar(64);comment:上传者名称"`
	FileName     string     `gorm:"column:file_name;type:varchar(255);not null;comment:文件名"`
	FileSize     int64      `gorm:"column:file_size;not null;comment:字节数"`
	MimeType     string     `gorm:"column:mime_type;type:varchar(128);comment:MIME类型"`
	Status       string     `gorm:"column:status;type:varchar(16);index;not null;comment:pending/approved/rejected"`
	ReviewerId   string     `gorm:"column:reviewer_id;type:varchar(64);comment:审核人"`
	ReviewNote   string     `gorm:"column:review_note;type:varchar(500);comment:审核备注"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at"`
	StorageKey   string     `gorm:"column:storage_key;type:varchar(500);comment:存储key，审核通过后才有对外地址"`
	ThumbnailUrl string     `gorm:"column:thumbnail_url;type:varchar(500);comment:缩略图"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (FileUpload) TableName() string {
	return "file_upload"
}
