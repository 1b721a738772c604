// Package repository 定义数据访问层接口和聚合结构
// Service 层只依赖这里的接口，具体实现见 dao/mysql（GORM）与 dao/memory（内存）
package repository

import (
	"context"
	"time"

	"raft_chat_server/internal/model"
)

// ==================== Repository 接口定义 ====================

// RoomRepository 房间数据访问接口
// 更新只改动操作相关的列，避免并发的无关更新互相覆盖
type RoomRepository interface {
	// CreateIfAbsent 原子地"不存在才创建"，uuid 已存在时不做修改并返回 false
	CreateIfAbsent(ctx context.Context, room *model.Room) (bool, error)
	// FindByUuid 根据 UUID 查找房间
	FindByUuid(ctx context.Context, uuid string) (*model.Room, error)
	// FindByUuidForUpdate 在事务中读取并锁定房间行，用于读改写 JSON 字段
	FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Room, error)
	// FindByUuids 批量查找房间
	FindByUuids(ctx context.Context, uuids []string) ([]model.Room, error)
	// UpdateName 修改房间名
	UpdateName(ctx context.Context, uuid, name string) error
	// UpdateStatus 仅当当前状态属于 from 时修改为 to，返回是否发生修改
	UpdateStatus(ctx context.Context, uuid string, from []string, to string) (bool, error)
	// UpdateInvite 记录房间当前邀请码
	UpdateInvite(ctx context.Context, uuid, code string, expiry time.Time) error
	// TouchActivity 刷新最后活跃时间
	TouchActivity(ctx context.Context, uuid string, at time.Time) error
	// UpdateMemory 覆盖 AI 协作草稿
	UpdateMemory(ctx context.Context, uuid string, memory model.RoomMemory) error

	// AddPin 加入置顶集合，已存在返回 false
	AddPin(ctx context.Context, pin *model.RoomPin) (bool, error)
	// RemovePin 移出置顶集合，不存在返回 false
	RemovePin(ctx context.Context, roomUuid, messageUuid string) (bool, error)
	// FindPins 房间置顶消息 ID
	FindPins(ctx context.Context, roomUuid string) ([]string, error)
	// ToggleMute 切换免打扰，返回切换后是否为免打扰
	ToggleMute(ctx context.Context, roomUuid, userId string) (bool, error)
	// FindMutes 房间免打扰用户
	FindMutes(ctx context.Context, roomUuid string) ([]string, error)
}

// MemberRepository 房间成员数据访问接口
type MemberRepository interface {
	// CreateIfAbsent 添加成员，已是成员时返回 false
	CreateIfAbsent(ctx context.Context, member *model.RoomMember) (bool, error)
	// Find 查找成员关系
	Find(ctx context.Context, roomUuid, userId string) (*model.RoomMember, error)
	// FindByRoom 房间全部成员
	FindByRoom(ctx context.Context, roomUuid string) ([]model.RoomMember, error)
	// FindByRoomForUpdate 在事务中读取并锁定房间成员，用于唯一群主保护
	FindByRoomForUpdate(ctx context.Context, roomUuid string) ([]model.RoomMember, error)
	// FindRoomUuidsByUser 用户加入的房间
	FindRoomUuidsByUser(ctx context.Context, userId string) ([]string, error)
	// Delete 移除成员，不存在返回 false
	Delete(ctx context.Context, roomUuid, userId string) (bool, error)
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 写入消息
	Create(ctx context.Context, msg *model.Message) error
	// FindByUuid 根据 UUID 查找消息（包含已删除）
	FindByUuid(ctx context.Context, uuid string) (*model.Message, error)
	// FindByRoom 按 (created_at, seq) 升序读取，limit<=0 不限制；limit 生效时返回最新的 limit 条
	FindByRoom(ctx context.Context, roomUuid string, includeDeleted bool, limit int) ([]model.Message, error)
	// UpdateText 编辑消息内容
	UpdateText(ctx context.Context, uuid, text string, at time.Time) error
	// SoftDelete 软删除，记录保留
	SoftDelete(ctx context.Context, uuid string, at time.Time) error
	// SetPinned 修改置顶标记
	SetPinned(ctx context.Context, uuid string, pinned bool) error
	// ToggleReaction 切换反应，返回切换后是否存在
	ToggleReaction(ctx context.Context, messageUuid, emoji, userId string) (bool, error)
	// FindReactions 批量读取反应
	FindReactions(ctx context.Context, messageUuids []string) ([]model.MessageReaction, error)
	// MarkRead 记录已读，重复调用无副作用
	MarkRead(ctx context.Context, messageUuid, userId string, at time.Time) error
	// FindReads 批量读取已读记录
	FindReads(ctx context.Context, messageUuids []string) ([]model.MessageRead, error)
	// Search 按条件检索未删除的消息，按 (created_at, seq) 倒序返回最新的 filter.Limit 条
	Search(ctx context.Context, filter MessageFilter) ([]model.Message, error)
}

// MessageFilter 消息检索条件，零值字段不参与过滤
type MessageFilter struct {
	RoomUuid string
	SendId   string
	Type     string
	Before   time.Time // created_at < Before
	After    time.Time // created_at > After
	Limit    int
}

// InviteRepository 邀请码数据访问接口
type InviteRepository interface {
	// Create 创建邀请码
	Create(ctx context.Context, invite *model.Invite) error
	// FindByCode 根据邀请码查找
	FindByCode(ctx context.Context, code string) (*model.Invite, error)
	// Redeem 条件自增：仅在未过期且 used_count < max_uses 时加一，返回是否成功
	Redeem(ctx context.Context, code string, now time.Time) (bool, error)
	// CreateUsage 记录使用者
	CreateUsage(ctx context.Context, usage *model.InviteUsage) error
	// FindUsages 邀请码的使用记录
	FindUsages(ctx context.Context, code string) ([]model.InviteUsage, error)
}

// FileRepository 上传文件数据访问接口
type FileRepository interface {
	// Create 创建 pending 记录
	Create(ctx context.Context, file *model.FileUpload) error
	// FindByUuid 根据 UUID 查找
	FindByUuid(ctx context.Context, uuid string) (*model.FileUpload, error)
	// FindByUuids 批量查找
	FindByUuids(ctx context.Context, uuids []string) ([]model.FileUpload, error)
	// FindByRoom 房间文件，status 为空时返回全部
	FindByRoom(ctx context.Context, roomUuid, status string) ([]model.FileUpload, error)
	// Decide 仅当状态为 pending 时写入审核结果，返回是否发生修改
	Decide(ctx context.Context, uuid, status, reviewerId, note string, at time.Time) (bool, error)
}

// AuditRepository 审计日志数据访问接口，只追加
type AuditRepository interface {
	// Create 追加一条审计记录
	Create(ctx context.Context, entry *model.AuditLog) error
	// FindByRoom 按时间升序返回房间审计记录
	FindByRoom(ctx context.Context, roomUuid string) ([]model.AuditLog, error)
}

// ReportRepository 举报数据访问接口
type ReportRepository interface {
	// Create 创建举报
	Create(ctx context.Context, report *model.Report) error
	// FindByUuid 根据 UUID 查找
	FindByUuid(ctx context.Context, uuid string) (*model.Report, error)
	// FindByRoom 房间举报，status 为空时返回全部
	FindByRoom(ctx context.Context, roomUuid, status string) ([]model.Report, error)
	// Transition 仅当当前状态属于 from 时流转到 to，返回是否发生修改
	Transition(ctx context.Context, uuid string, from []string, to, reviewerId, note string, at time.Time) (bool, error)
}
