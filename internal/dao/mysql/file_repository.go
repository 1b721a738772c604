package mysql

import (
	"context"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
)

// fileRepository FileRepository 接口的实现
type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建 FileRepository 实例
func NewFileRepository(db *gorm.DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *model.FileUpload) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return wrapDBErrorf(err, "创建文件记录 room=%s", file.RoomUuid)
	}
	return nil
}

func (r *fileRepository) FindByUuid(ctx context.Context, uuid string) (*model.FileUpload, error) {
	var file model.FileUpload
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&file).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询文件 uuid=%s", uuid)
	}
	return &file, nil
}

func (r *fileRepository) FindByUuids(ctx context.Context, uuids []string) ([]model.FileUpload, error) {
	var files []model.FileUpload
	if len(uuids) == 0 {
		return files, nil
	}
	if err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&files).Error; err != nil {
		return nil, wrapDBError(err, "批量查询文件")
	}
	return files, nil
}

func (r *fileRepository) FindByRoom(ctx context.Context, roomUuid, status string) ([]model.FileUpload, error) {
	var files []model.FileUpload
	query := r.db.WithContext(ctx).Where("room_uuid = ?", roomUuid)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at").Order("id").Find(&files).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间文件 room=%s", roomUuid)
	}
	return files, nil
}

// Decide WHERE status = 'pending' 让审核只能发生一次
func (r *fileRepository) Decide(ctx context.Context, uuid, status, reviewerId, note string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FileUpload{}).
		Where("uuid = ? AND status = ?", uuid, model.FileStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewer_id": reviewerId,
			"review_note": note,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "审核文件 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}
