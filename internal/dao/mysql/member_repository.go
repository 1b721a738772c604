package mysql

import (
	"context"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberRepository MemberRepository 接口的实现
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建 MemberRepository 实例
func NewMemberRepository(db *gorm.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

// CreateIfAbsent (room_uuid, user_id) 唯一索引冲突时不插入
func (r *memberRepository) CreateIfAbsent(ctx context.Context, member *model.RoomMember) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "添加成员 room=%s user=%s", member.RoomUuid, member.UserId)
	}
	return res.RowsAffected > 0, nil
}

func (r *memberRepository) Find(ctx context.Context, roomUuid, userId string) (*model.RoomMember, error) {
	var member model.RoomMember
	if err := r.db.WithContext(ctx).Where("room_uuid = ? AND user_id = ?", roomUuid, userId).
		First(&member).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询成员 room=%s user=%s", roomUuid, userId)
	}
	return &member, nil
}

func (r *memberRepository) FindByRoom(ctx context.Context, roomUuid string) ([]model.RoomMember, error) {
	var members []model.RoomMember
	if err := r.db.WithContext(ctx).Where("room_uuid = ?", roomUuid).Order("id").
		Find(&members).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间成员 room=%s", roomUuid)
	}
	return members, nil
}

// FindByRoomForUpdate SELECT ... FOR UPDATE，必须在事务中调用才有意义
func (r *memberRepository) FindByRoomForUpdate(ctx context.Context, roomUuid string) ([]model.RoomMember, error) {
	var members []model.RoomMember
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_uuid = ?", roomUuid).Order("id").Find(&members).Error; err != nil {
		return nil, wrapDBErrorf(err, "锁定房间成员 room=%s", roomUuid)
	}
	return members, nil
}

func (r *memberRepository) FindRoomUuidsByUser(ctx context.Context, userId string) ([]string, error) {
	var uuids []string
	if err := r.db.WithContext(ctx).Model(&model.RoomMember{}).Where("user_id = ?", userId).
		Pluck("room_uuid", &uuids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户房间 user=%s", userId)
	}
	return uuids, nil
}

func (r *memberRepository) Delete(ctx context.Context, roomUuid, userId string) (bool, error) {
	res := r.db.WithContext(ctx).Where("room_uuid = ? AND user_id = ?", roomUuid, userId).
		Delete(&model.RoomMember{})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "移除成员 room=%s user=%s", roomUuid, userId)
	}
	return res.RowsAffected > 0, nil
}
