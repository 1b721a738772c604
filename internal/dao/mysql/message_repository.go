package mysql

import (
	"context"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepository MessageRepository 接口的实现
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return wrapDBErrorf(err, "写入消息 room=%s", msg.RoomUuid)
	}
	return nil
}

func (r *messageRepository) FindByUuid(ctx context.Context, uuid string) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&msg).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%s", uuid)
	}
	return &msg, nil
}

// FindByRoom 取最新的 limit 条后翻转为升序
func (r *messageRepository) FindByRoom(ctx context.Context, roomUuid string, includeDeleted bool, limit int) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.WithContext(ctx).Where("room_uuid = ?", roomUuid)
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if limit > 0 {
		query = query.Order("created_at DESC").Order("seq DESC").Limit(limit)
	} else {
		query = query.Order("created_at ASC").Order("seq ASC")
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间消息 room=%s", roomUuid)
	}
	if limit > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

// Search 条件检索，倒序取最新的 filter.Limit 条
func (r *messageRepository) Search(ctx context.Context, filter repository.MessageFilter) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.WithContext(ctx).
		Where("room_uuid = ?", filter.RoomUuid).
		Where("is_deleted = ?", false)
	if filter.SendId != "" {
		query = query.Where("send_id = ?", filter.SendId)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if !filter.Before.IsZero() {
		query = query.Where("created_at < ?", filter.Before)
	}
	if !filter.After.IsZero() {
		query = query.Where("created_at > ?", filter.After)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Order("created_at DESC").Order("seq DESC").Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "检索房间消息 room=%s", filter.RoomUuid)
	}
	return messages, nil
}

func (r *messageRepository) UpdateText(ctx context.Context, uuid, text string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{"text": text, "is_edited": true, "edited_at": at}).Error; err != nil {
		return wrapDBErrorf(err, "编辑消息 uuid=%s", uuid)
	}
	return nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, uuid string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at}).Error; err != nil {
		return wrapDBErrorf(err, "删除消息 uuid=%s", uuid)
	}
	return nil
}

func (r *messageRepository) SetPinned(ctx context.Context, uuid string, pinned bool) error {
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("uuid = ?", uuid).
		Update("is_pinned", pinned).Error; err != nil {
		return wrapDBErrorf(err, "修改置顶标记 uuid=%s", uuid)
	}
	return nil
}

// ToggleReaction 先删，删到了说明原本存在；否则插入
func (r *messageRepository) ToggleReaction(ctx context.Context, messageUuid, emoji, userId string) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("message_uuid = ? AND emoji = ? AND user_id = ?", messageUuid, emoji, userId).
			Delete(&model.MessageReaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.MessageReaction{
			MessageUuid: messageUuid,
			Emoji:       emoji,
			UserId:      userId,
			CreatedAt:   time.Now(),
		}).Error
	})
	if err != nil {
		return false, wrapDBErrorf(err, "切换反应 message=%s", messageUuid)
	}
	return added, nil
}

func (r *messageRepository) FindReactions(ctx context.Context, messageUuids []string) ([]model.MessageReaction, error) {
	var reactions []model.MessageReaction
	if len(messageUuids) == 0 {
		return reactions, nil
	}
	if err := r.db.WithContext(ctx).Where("message_uuid IN ?", messageUuids).Order("id").
		Find(&reactions).Error; err != nil {
		return nil, wrapDBError(err, "批量查询反应")
	}
	return reactions, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, messageUuid, userId string, at time.Time) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.MessageRead{
		MessageUuid: messageUuid,
		UserId:      userId,
		ReadAt:      at,
	}).Error; err != nil {
		return wrapDBErrorf(err, "标记已读 message=%s", messageUuid)
	}
	return nil
}

func (r *messageRepository) FindReads(ctx context.Context, messageUuids []string) ([]model.MessageRead, error) {
	var reads []model.MessageRead
	if len(messageUuids) == 0 {
		return reads, nil
	}
	if err := r.db.WithContext(ctx).Where("message_uuid IN ?", messageUuids).Order("id").
		Find(&reads).Error; err != nil {
		return nil, wrapDBError(err, "批量查询已读")
	}
	return reads, nil
}
