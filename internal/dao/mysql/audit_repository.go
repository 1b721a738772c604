package mysql

import (
	"context"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
)

// auditRepository AuditRepository 接口的实现，只提供追加与查询
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建 AuditRepository 实例
func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return wrapDBErrorf(err, "写入审计日志 room=%s action=%s", entry.RoomUuid, entry.Action)
	}
	return nil
}

func (r *auditRepository) FindByRoom(ctx context.Context, roomUuid string) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	if err := r.db.WithContext(ctx).Where("room_uuid = ?", roomUuid).
		Order("created_at ASC").Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询审计日志 room=%s", roomUuid)
	}
	return entries, nil
}
