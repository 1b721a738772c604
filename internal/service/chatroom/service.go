// Package chatroom 实现交易房间引擎：房间注册、成员与邀请、消息流、文件审核、举报与审计
//
// 所有写操作在一个存储事务内完成主变更、系统消息与审计记录，审计写入失败即整体失败；
// 实时推送、缓存失效与外部通知在事务提交后尽力而为地执行，失败只记日志。
package chatroom

import (
	"context"
	"time"

	"go.uber.org/zap"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/repository"
	myredis "raft_chat_server/internal/dao/redis"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/infrastructure/storage"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/snowflake"
)

// chatRoomService 房间引擎，通过构造函数注入全部依赖
// cache 可以为 nil，此时房间列表直接查库
type chatRoomService struct {
	repos    *repository.Repositories
	cache    myredis.AsyncCacheService
	feed     feed.Feed
	notifier notify.Notifier
	blobs    storage.BlobStore
	conf     config.RoomConfig
	now      func() time.Time
}

// NewChatRoomService 构造函数
func NewChatRoomService(
	repos *repository.Repositories,
	cache myredis.AsyncCacheService,
	f feed.Feed,
	notifier notify.Notifier,
	blobs storage.BlobStore,
	conf config.RoomConfig,
) *chatRoomService {
	return &chatRoomService{
		repos:    repos,
		cache:    cache,
		feed:     f,
		notifier: notifier,
		blobs:    blobs,
		conf:     conf,
		now:      time.Now,
	}
}

// ==================== 权限与状态校验 ====================

func requireRoom(ctx context.Context, repos *repository.Repositories, roomId string) (*model.Room, error) {
	if roomId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "roomId is required")
	}
	room, err := repos.Room.FindByUuid(ctx, roomId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "room %s not found", roomId)
		}
		return nil, err
	}
	return room, nil
}

// requireMember 非成员一律视为无权限
func requireMember(ctx context.Context, repos *repository.Repositories, roomId, userId string) (*model.RoomMember, error) {
	member, err := repos.Member.Find(ctx, roomId, userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodePermissionDenied, "user %s is not a member of room %s", userId, roomId)
		}
		return nil, err
	}
	return member, nil
}

// requirePrivileged owner 或 admin，系统参与者以 admin 身份入房，无需特判
func requirePrivileged(ctx context.Context, repos *repository.Repositories, roomId, userId string) (*model.RoomMember, error) {
	member, err := requireMember(ctx, repos, roomId, userId)
	if err != nil {
		return nil, err
	}
	if !model.IsPrivilegedRole(member.Role) {
		return nil, errorx.Newf(errorx.CodePermissionDenied, "only owner or admin can do this in room %s", roomId)
	}
	return member, nil
}

func requireActive(room *model.Room) error {
	if room.Status != model.RoomStatusActive {
		return errorx.Newf(errorx.CodeValidationFailed, "room is %s", room.Status)
	}
	return nil
}

// ==================== 事务内写入辅助 ====================

// postSystemMessage 以系统参与者身份发送一条系统消息并刷新房间活跃时间
func (s *chatRoomService) postSystemMessage(ctx context.Context, repos *repository.Repositories, roomId, text string) error {
	return s.createMessage(ctx, repos, &model.Message{
		RoomUuid: roomId,
		SendId:   constants.SYSTEM_ACTOR_ID,
		SendName: constants.SYSTEM_ACTOR_NAME,
		Type:     model.MessageTypeSystem,
		Text:     text,
	})
}

func (s *chatRoomService) createMessage(ctx context.Context, repos *repository.Repositories, msg *model.Message) error {
	id := snowflake.Next()
	now := s.now()
	msg.Uuid = id.Uuid
	msg.Seq = id.Seq
	msg.CreatedAt = now
	if err := repos.Message.Create(ctx, msg); err != nil {
		return err
	}
	return repos.Room.TouchActivity(ctx, msg.RoomUuid, now)
}

// appendAudit 追加审计记录，调用方必须处于事务中
func (s *chatRoomService) appendAudit(ctx context.Context, repos *repository.Repositories, roomId, actorId, action string, detail map[string]any) error {
	id := snowflake.Next()
	entry := &model.AuditLog{
		Uuid:      id.Uuid,
		Seq:       id.Seq,
		RoomUuid:  roomId,
		ActorId:   actorId,
		Action:    action,
		Detail:    detail,
		CreatedAt: s.now(),
	}
	if err := repos.Audit.Create(ctx, entry); err != nil {
		return errorx.Wrapf(err, errorx.GetCode(err), "append audit %s for room %s", action, roomId)
	}
	return nil
}

// ==================== 提交后副作用 ====================

// effects 事务提交后需要执行的推送、缓存失效与通知
type effects struct {
	rooms       []string // 消息流发生变化的房间
	users       []string // 房间列表发生变化的用户
	memberships []string // 成员关系变化的用户，需要失效房间列表缓存
	events      []notify.Event
}

func (e *effects) roomChanged(roomId string) {
	e.rooms = append(e.rooms, roomId)
}

// membersChanged 房间元信息变化，所有成员的房间列表都需要刷新
func (e *effects) membersChanged(members []model.RoomMember) {
	for _, m := range members {
		e.users = append(e.users, m.UserId)
	}
}

func (e *effects) membershipChanged(userIds ...string) {
	e.users = append(e.users, userIds...)
	e.memberships = append(e.memberships, userIds...)
}

func (e *effects) notify(event notify.Event) {
	e.events = append(e.events, event)
}

// apply 尽力执行副作用，不受请求取消影响
func (s *chatRoomService) apply(ctx context.Context, e *effects) {
	ctx = context.WithoutCancel(ctx)

	for _, userId := range dedupe(e.memberships) {
		s.invalidateRoomList(ctx, userId)
	}
	for _, roomId := range dedupe(e.rooms) {
		if err := s.feed.Publish(ctx, feed.RoomMessagesTopic(roomId)); err != nil {
			zap.L().Warn("publish room change failed", zap.String("room_id", roomId), zap.Error(err))
		}
	}
	for _, userId := range dedupe(e.users) {
		if err := s.feed.Publish(ctx, feed.UserRoomsTopic(userId)); err != nil {
			zap.L().Warn("publish room list change failed", zap.String("user_id", userId), zap.Error(err))
		}
	}
	for _, event := range e.events {
		if err := s.notifier.Notify(ctx, event); err != nil {
			zap.L().Warn("notification failed",
				zap.String("type", event.Type), zap.String("room_id", event.RoomId), zap.Error(err))
		}
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// fail 业务错误原样返回；其余错误（存储、缓存不可用）记日志后返回
func fail(op string, err error, fields ...zap.Field) error {
	switch errorx.GetCode(err) {
	case errorx.CodeInvalidParam, errorx.CodeNotFound, errorx.CodePermissionDenied,
		errorx.CodeValidationFailed, errorx.CodeConflict:
		return err
	}
	zap.L().Error(op+" failed", append(fields, zap.Error(err))...)
	return err
}
