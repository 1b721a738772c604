package mysql

import (
	"context"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// roomRepository RoomRepository 接口的实现
type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建 RoomRepository 实例
func NewRoomRepository(db *gorm.DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

// CreateIfAbsent 依赖 uuid 唯一索引，冲突时 DO NOTHING，影响行数为 0 说明已存在
func (r *roomRepository) CreateIfAbsent(ctx context.Context, room *model.Room) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoNothing: true,
	}).Create(room)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "创建房间 uuid=%s", room.Uuid)
	}
	return res.RowsAffected > 0, nil
}

func (r *roomRepository) FindByUuid(ctx context.Context, uuid string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&room).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间 uuid=%s", uuid)
	}
	return &room, nil
}

// FindByUuidForUpdate SELECT ... FOR UPDATE，必须在事务中调用才有意义
func (r *roomRepository) FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", uuid).First(&room).Error; err != nil {
		return nil, wrapDBErrorf(err, "锁定房间 uuid=%s", uuid)
	}
	return &room, nil
}

func (r *roomRepository) FindByUuids(ctx context.Context, uuids []string) ([]model.Room, error) {
	var rooms []model.Room
	if len(uuids) == 0 {
		return rooms, nil
	}
	if err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&rooms).Error; err != nil {
		return nil, wrapDBError(err, "批量查询房间")
	}
	return rooms, nil
}

func (r *roomRepository) UpdateName(ctx context.Context, uuid, name string) error {
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("uuid = ?", uuid).
		Update("name", name).Error; err != nil {
		return wrapDBErrorf(err, "修改房间名 uuid=%s", uuid)
	}
	return nil
}

// UpdateStatus 带条件的状态流转，WHERE status IN from 保证并发下只有一次成功
func (r *roomRepository) UpdateStatus(ctx context.Context, uuid string, from []string, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("uuid = ? AND status IN ?", uuid, from).
		Update("status", to)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "修改房间状态 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}

func (r *roomRepository) UpdateInvite(ctx context.Context, uuid, code string, expiry time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{"invite_code": code, "invite_expiry": expiry}).Error; err != nil {
		return wrapDBErrorf(err, "更新房间邀请码 uuid=%s", uuid)
	}
	return nil
}

func (r *roomRepository) TouchActivity(ctx context.Context, uuid string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("uuid = ?", uuid).
		Update("last_activity_at", at).Error; err != nil {
		return wrapDBErrorf(err, "更新房间活跃时间 uuid=%s", uuid)
	}
	return nil
}

func (r *roomRepository) UpdateMemory(ctx context.Context, uuid string, memory model.RoomMemory) error {
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("uuid = ?", uuid).
		Update("ai_memory", datatypes.NewJSONType(memory)).Error; err != nil {
		return wrapDBErrorf(err, "更新房间草稿 uuid=%s", uuid)
	}
	return nil
}

// ==================== 置顶 / 免打扰集合 ====================

func (r *roomRepository) AddPin(ctx context.Context, pin *model.RoomPin) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(pin)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "置顶消息 message=%s", pin.MessageUuid)
	}
	return res.RowsAffected > 0, nil
}

func (r *roomRepository) RemovePin(ctx context.Context, roomUuid, messageUuid string) (bool, error) {
	res := r.db.WithContext(ctx).Where("room_uuid = ? AND message_uuid = ?", roomUuid, messageUuid).
		Delete(&model.RoomPin{})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "取消置顶 message=%s", messageUuid)
	}
	return res.RowsAffected > 0, nil
}

func (r *roomRepository) FindPins(ctx context.Context, roomUuid string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.RoomPin{}).Where("room_uuid = ?", roomUuid).
		Order("id").Pluck("message_uuid", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询置顶 room=%s", roomUuid)
	}
	return ids, nil
}

func (r *roomRepository) ToggleMute(ctx context.Context, roomUuid, userId string) (bool, error) {
	muted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("room_uuid = ? AND user_id = ?", roomUuid, userId).Delete(&model.RoomMute{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		muted = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.RoomMute{
			RoomUuid:  roomUuid,
			UserId:    userId,
			CreatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return false, wrapDBErrorf(err, "切换免打扰 room=%s user=%s", roomUuid, userId)
	}
	return muted, nil
}

func (r *roomRepository) FindMutes(ctx context.Context, roomUuid string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.RoomMute{}).Where("room_uuid = ?", roomUuid).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询免打扰 room=%s", roomUuid)
	}
	return ids, nil
}
