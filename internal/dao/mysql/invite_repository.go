package mysql

import (
	"context"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inviteRepository InviteRepository 接口的实现
type inviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository 创建 InviteRepository 实例
func NewInviteRepository(db *gorm.DB) repository.InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		return wrapDBErrorf(err, "创建邀请码 room=%s", invite.RoomUuid)
	}
	return nil
}

func (r *inviteRepository) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	var invite model.Invite
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询邀请码 code=%s", code)
	}
	return &invite, nil
}

// Redeem 单条 UPDATE 完成检查与自增，N 个并发兑换最多 max_uses 个成功
func (r *inviteRepository) Redeem(ctx context.Context, code string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Invite{}).
		Where("code = ? AND used_count < max_uses AND expires_at > ?", code, now).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "兑换邀请码 code=%s", code)
	}
	return res.RowsAffected == 1, nil
}

func (r *inviteRepository) CreateUsage(ctx context.Context, usage *model.InviteUsage) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(usage).Error; err != nil {
		return wrapDBErrorf(err, "记录邀请码使用 code=%s", usage.InviteCode)
	}
	return nil
}

func (r *inviteRepository) FindUsages(ctx context.Context, code string) ([]model.InviteUsage, error) {
	var usages []model.InviteUsage
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).Order("id").
		Find(&usages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询邀请码使用记录 code=%s", code)
	}
	return usages, nil
}
