package mysql

import (
	"context"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
)

// reportRepository ReportRepository 接口的实现
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建 ReportRepository 实例
func NewReportRepository(db *gorm.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return wrapDBErrorf(err, "创建举报 room=%s", report.RoomUuid)
	}
	return nil
}

func (r *reportRepository) FindByUuid(ctx context.Context, uuid string) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&report).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询举报 uuid=%s", uuid)
	}
	return &report, nil
}

func (r *reportRepository) FindByRoom(ctx context.Context, roomUuid, status string) ([]model.Report, error) {
	var reports []model.Report
	query := r.db.WithContext(ctx).Where("room_uuid = ?", roomUuid)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at").Order("id").Find(&reports).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间举报 room=%s", roomUuid)
	}
	return reports, nil
}

func (r *reportRepository) Transition(ctx context.Context, uuid string, from []string, to, reviewerId, note string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Report{}).
		Where("uuid = ? AND status IN ?", uuid, from).
		Updates(map[string]interface{}{
			"status":          to,
			"reviewed_by":     reviewerId,
			"resolution_note": note,
			"reviewed_at":     at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "流转举报 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}
