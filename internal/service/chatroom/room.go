package chatroom

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"raft_chat_server/internal/dao/repository"
	myredis "raft_chat_server/internal/dao/redis"
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/internal/service/visibility"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
)

// ==================== 房间 ID ====================

// roomIdFor 由 (类型, 排序后的参与者, 上下文键) 确定性生成房间 ID
// 各段以 "_" 连接，因此任何一段都不允许包含 "_"，否则不同输入可能拼出同一个 ID
func roomIdFor(kind, a, b string, contextKeys []string) (string, error) {
	if a == "" || b == "" {
		return "", errorx.New(errorx.CodeInvalidParam, "initiator and counterpart ids are required")
	}
	if a == b {
		return "", errorx.New(errorx.CodeInvalidParam, "initiator and counterpart must differ")
	}
	if a == constants.SYSTEM_ACTOR_ID || b == constants.SYSTEM_ACTOR_ID {
		return "", errorx.Newf(errorx.CodeInvalidParam, "%s is a reserved participant id", constants.SYSTEM_ACTOR_ID)
	}
	participants := []string{a, b}
	sort.Strings(participants)

	parts := append([]string{kind}, participants...)
	for _, key := range contextKeys {
		key = strings.TrimSpace(key)
		if key != "" {
			parts = append(parts, key)
		}
	}
	for _, part := range parts {
		if strings.Contains(part, constants.ROOM_ID_SEP) {
			return "", errorx.Newf(errorx.CodeInvalidParam, "id %q must not contain %q", part, constants.ROOM_ID_SEP)
		}
	}
	return strings.Join(parts, constants.ROOM_ID_SEP), nil
}

// defaultRoomName "<项目> - <发起方> / <对手方>"，无项目时省略前缀
func defaultRoomName(projectTitle, initiator, counterpart string, maxLen int) string {
	name := initiator + " / " + counterpart
	if projectTitle = strings.TrimSpace(projectTitle); projectTitle != "" {
		name = projectTitle + " - " + name
	}
	if utf8.RuneCountInString(name) > maxLen {
		name = string([]rune(name)[:maxLen])
	}
	return name
}

func displayName(name, id string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return id
}

// ==================== 房间注册 ====================

// CreateOrGetRoom 原子地"不存在才创建"，并发的相同请求收敛到同一个房间
func (s *chatRoomService) CreateOrGetRoom(ctx context.Context, req request.CreateRoomRequest) (*respond.CreateRoomRespond, error) {
	if !model.IsValidRoomType(req.Kind) {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "unknown room kind %q", req.Kind)
	}
	contextKeys := req.ContextKeys
	if len(contextKeys) == 0 && req.ProjectId != "" {
		contextKeys = []string{req.ProjectId}
	}
	roomId, err := roomIdFor(req.Kind, req.Initiator.Id, req.Counterpart.Id, contextKeys)
	if err != nil {
		return nil, err
	}

	initiatorName := displayName(req.Initiator.Name, req.Initiator.Id)
	counterpartName := displayName(req.Counterpart.Name, req.Counterpart.Id)
	actorId := req.ActorId
	if actorId == "" {
		actorId = constants.SYSTEM_ACTOR_ID
	}
	now := s.now()

	room := &model.Room{
		Uuid:              roomId,
		Name:              defaultRoomName(req.ProjectTitle, initiatorName, counterpartName, s.conf.RoomNameMaxLength),
		Type:              req.Kind,
		Status:            model.RoomStatusActive,
		InitiatorId:       req.Initiator.Id,
		InitiatorName:     initiatorName,
		InitiatorRole:     req.Initiator.Role,
		InitiatorLogo:     req.Initiator.Logo,
		CounterpartId:     req.Counterpart.Id,
		CounterpartName:   counterpartName,
		CounterpartRole:   req.Counterpart.Role,
		CounterpartLogo:   req.Counterpart.Logo,
		ProjectId:         req.ProjectId,
		OrgId:             req.OrgId,
		FilesAllowed:      true,
		MaxFileSizeMB:     s.conf.MaxFileSizeMB,
		AllowedFileTypes:  datatypes.JSONSlice[string](append([]string(nil), s.conf.AllowedFileTypes...)),
		RequireFileReview: !s.conf.SkipFileReview,
		CreatedBy:         actorId,
		LastActivityAt:    now,
		Memory:            datatypes.NewJSONType(model.RoomMemory{}),
	}
	room.CreatedAt = now

	created := false
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Room.CreateIfAbsent(ctx, room)
		if err != nil || !ok {
			return err
		}
		created = true

		seed := []model.RoomMember{
			{RoomUuid: roomId, UserId: req.Initiator.Id, Role: model.MemberRoleOwner, DisplayName: initiatorName, JoinedAt: now},
			{RoomUuid: roomId, UserId: req.Counterpart.Id, Role: model.MemberRoleMember, DisplayName: counterpartName, JoinedAt: now},
			{RoomUuid: roomId, UserId: constants.SYSTEM_ACTOR_ID, Role: model.MemberRoleAdmin, DisplayName: constants.SYSTEM_ACTOR_NAME, JoinedAt: now},
		}
		for i := range seed {
			if _, err := tx.Member.CreateIfAbsent(ctx, &seed[i]); err != nil {
				return err
			}
		}

		text := fmt.Sprintf("%s created this %s room for %s / %s.", constants.SYSTEM_ACTOR_NAME, req.Kind, initiatorName, counterpartName)
		if err := s.postSystemMessage(ctx, tx, roomId, text); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, roomId, actorId, model.AuditJoin, map[string]any{
			"event":       "room_created",
			"kind":        req.Kind,
			"name":        room.Name,
			"initiator":   req.Initiator.Id,
			"counterpart": req.Counterpart.Id,
			"contextKeys": contextKeys,
		})
	})
	if err != nil {
		return nil, fail("CreateOrGetRoom", err, zap.String("room_id", roomId))
	}

	if created {
		e := &effects{}
		e.roomChanged(roomId)
		e.membershipChanged(req.Initiator.Id, req.Counterpart.Id)
		event := notify.NewEvent(notify.EventRoomCreated, roomId, actorId, map[string]any{"kind": req.Kind, "name": room.Name})
		event.Recipients = []string{req.Initiator.Id, req.Counterpart.Id}
		e.notify(event)
		s.apply(ctx, e)
		zap.L().Info("room created", zap.String("room_id", roomId), zap.String("kind", req.Kind))
	}
	return &respond.CreateRoomRespond{RoomId: roomId, Created: created}, nil
}

// GetRoom 房间详情，仅成员可见
func (s *chatRoomService) GetRoom(ctx context.Context, roomId, callerId string) (*respond.RoomView, error) {
	room, err := requireRoom(ctx, s.repos, roomId)
	if err != nil {
		return nil, fail("GetRoom", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("GetRoom", err)
	}
	view, err := s.buildRoomView(ctx, s.repos, room)
	if err != nil {
		return nil, fail("GetRoom", err, zap.String("room_id", roomId))
	}
	return view, nil
}

// RenameRoom 仅 owner/admin，已关闭的房间不可修改
func (s *chatRoomService) RenameRoom(ctx context.Context, roomId, callerId, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errorx.New(errorx.CodeValidationFailed, "room name must not be empty")
	}
	if utf8.RuneCountInString(newName) > s.conf.RoomNameMaxLength {
		return errorx.Newf(errorx.CodeValidationFailed, "room name exceeds %d characters", s.conf.RoomNameMaxLength)
	}

	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if _, err := requirePrivileged(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		if room.Status == model.RoomStatusClosed {
			return errorx.New(errorx.CodeValidationFailed, "room is closed")
		}
		if err := tx.Room.UpdateName(ctx, roomId, newName); err != nil {
			return err
		}
		if err := s.postSystemMessage(ctx, tx, roomId, fmt.Sprintf("Room renamed to %q", newName)); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, callerId, model.AuditRename, map[string]any{
			"old": room.Name,
			"new": newName,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return fail("RenameRoom", err, zap.String("room_id", roomId))
	}
	e.roomChanged(roomId)
	s.apply(ctx, e)
	return nil
}

// ArchiveRoom active -> archived
func (s *chatRoomService) ArchiveRoom(ctx context.Context, roomId, callerId string) error {
	return s.transition(ctx, roomId, callerId, []string{model.RoomStatusActive}, model.RoomStatusArchived, "Room archived")
}

// CloseRoom active|archived -> closed，closed 为终态
func (s *chatRoomService) CloseRoom(ctx context.Context, roomId, callerId string) error {
	return s.transition(ctx, roomId, callerId,
		[]string{model.RoomStatusActive, model.RoomStatusArchived}, model.RoomStatusClosed, "Room closed")
}

func (s *chatRoomService) transition(ctx context.Context, roomId, callerId string, from []string, to, announcement string) error {
	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if _, err := requirePrivileged(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		changed, err := tx.Room.UpdateStatus(ctx, roomId, from, to)
		if err != nil {
			return err
		}
		if !changed {
			return errorx.Newf(errorx.CodeConflict, "room is already %s", room.Status)
		}
		if err := s.postSystemMessage(ctx, tx, roomId, announcement); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, callerId, model.AuditStatusChange, map[string]any{
			"from": room.Status,
			"to":   to,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return fail("room status transition", err, zap.String("room_id", roomId), zap.String("to", to))
	}
	e.roomChanged(roomId)
	s.apply(ctx, e)
	return nil
}

// AddMemoryNote 追加 AI 协作草稿条目，非权威数据，不写审计
// 草稿整体存为一个 JSON 列，读改写期间锁住房间行，并发追加不会丢失
func (s *chatRoomService) AddMemoryNote(ctx context.Context, roomId, callerId, kind, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errorx.New(errorx.CodeValidationFailed, "note must not be empty")
	}

	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := tx.Room.FindByUuidForUpdate(ctx, roomId)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.Newf(errorx.CodeNotFound, "room %s not found", roomId)
			}
			return err
		}
		if _, err := requireMember(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		memory := room.Memory.Data()
		switch kind {
		case "decisions":
			memory.Decisions = append(memory.Decisions, text)
		case "tasks":
			memory.Tasks = append(memory.Tasks, text)
		case "milestones":
			memory.Milestones = append(memory.Milestones, text)
		case "notes":
			memory.NotePoints = append(memory.NotePoints, text)
		default:
			return errorx.Newf(errorx.CodeValidationFailed, "unknown memory section %q", kind)
		}
		if err := tx.Room.UpdateMemory(ctx, roomId, memory); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return fail("AddMemoryNote", err, zap.String("room_id", roomId))
	}
	s.apply(ctx, e)
	return nil
}

// collectMembers 把房间全部成员登记为房间列表需要刷新的用户
func (s *chatRoomService) collectMembers(ctx context.Context, repos *repository.Repositories, roomId string, e *effects) error {
	members, err := repos.Member.FindByRoom(ctx, roomId)
	if err != nil {
		return err
	}
	e.membersChanged(members)
	return nil
}

// ==================== 房间列表 ====================

// ListRooms 用户所在的 active 房间，按最后活跃时间倒序，再按平台角色过滤
func (s *chatRoomService) ListRooms(ctx context.Context, userId, role string) ([]respond.RoomView, error) {
	if userId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "userId is required")
	}
	roomIds, err := s.userRoomIds(ctx, userId)
	if err != nil {
		return nil, fail("ListRooms", err, zap.String("user_id", userId))
	}
	rooms, err := s.repos.Room.FindByUuids(ctx, roomIds)
	if err != nil {
		return nil, fail("ListRooms", err, zap.String("user_id", userId))
	}

	views := make([]respond.RoomView, 0, len(rooms))
	for i := range rooms {
		if rooms[i].Status != model.RoomStatusActive {
			continue
		}
		view, err := s.buildRoomView(ctx, s.repos, &rooms[i])
		if err != nil {
			return nil, fail("ListRooms", err, zap.String("room_id", rooms[i].Uuid))
		}
		views = append(views, *view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastActivityAt.After(views[j].LastActivityAt)
	})
	return visibility.FilterRoomsForCaller(views, role, userId), nil
}

// SubscribeRooms 实时房间列表，成员关系或房间元信息变化时推送新快照
func (s *chatRoomService) SubscribeRooms(ctx context.Context, userId, role string) (*feed.Subscription[[]respond.RoomView], error) {
	if userId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "userId is required")
	}
	return feed.Watch(ctx, s.feed, feed.UserRoomsTopic(userId), func(ctx context.Context) ([]respond.RoomView, error) {
		return s.ListRooms(ctx, userId, role)
	}), nil
}

// roomListEntry 缓存的房间 ID 列表，Version 与版本键不一致时视为未命中
type roomListEntry struct {
	Version string   `json:"v"`
	Ids     []string `json:"ids"`
}

// userRoomIds 先查缓存，未命中查库后异步回写
// 版本号必须在查库之前读取，回写时带上该版本，失效后迟到的回写不会被读到
func (s *chatRoomService) userRoomIds(ctx context.Context, userId string) ([]string, error) {
	cacheKey := myredis.RoomListKey(userId)
	version, cacheOk := "", false
	if s.cache != nil {
		var err error
		version, err = s.cache.Get(ctx, myredis.RoomListVersionKey(userId))
		if err != nil {
			zap.L().Error("Redis get error", zap.Error(err))
		} else {
			cacheOk = true
			if ids, ok := s.cachedRoomIds(ctx, cacheKey, version); ok {
				return ids, nil
			}
		}
	}

	ids, err := s.repos.Member.FindRoomUuidsByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	if cacheOk {
		s.cache.SubmitTask(func() {
			data, err := json.Marshal(roomListEntry{Version: version, Ids: ids})
			if err != nil {
				zap.L().Error("Marshal room list error", zap.Error(err))
				return
			}
			if err := s.cache.Set(context.Background(), cacheKey, string(data), time.Minute*constants.ROOM_LIST_TTL); err != nil {
				zap.L().Error("Set cache error", zap.Error(err))
			}
		})
	}
	return ids, nil
}

func (s *chatRoomService) cachedRoomIds(ctx context.Context, cacheKey, version string) ([]string, bool) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		zap.L().Error("Redis get error", zap.Error(err))
		return nil, false
	}
	if cached == "" {
		return nil, false
	}
	var entry roomListEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		zap.L().Error("Unmarshal room list cache error", zap.String("key", cacheKey), zap.Error(err))
		return nil, false
	}
	if entry.Version != version {
		return nil, false
	}
	return entry.Ids, true
}

// invalidateRoomList 同步推进用户房间列表的缓存版本，必须在推送变更之前完成
func (s *chatRoomService) invalidateRoomList(ctx context.Context, userId string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, myredis.RoomListVersionKey(userId)); err != nil {
		zap.L().Error("Bump room list version error", zap.String("user_id", userId), zap.Error(err))
		if err := s.cache.Delete(ctx, myredis.RoomListKey(userId)); err != nil {
			zap.L().Error("Delete room list cache error", zap.String("user_id", userId), zap.Error(err))
		}
	}
}

// ==================== 视图构建 ====================

func (s *chatRoomService) buildRoomView(ctx context.Context, repos *repository.Repositories, room *model.Room) (*respond.RoomView, error) {
	members, err := repos.Member.FindByRoom(ctx, room.Uuid)
	if err != nil {
		return nil, err
	}
	pins, err := repos.Room.FindPins(ctx, room.Uuid)
	if err != nil {
		return nil, err
	}
	mutes, err := repos.Room.FindMutes(ctx, room.Uuid)
	if err != nil {
		return nil, err
	}

	memberIds := make([]string, 0, len(members))
	roles := make(map[string]string, len(members))
	for _, m := range members {
		memberIds = append(memberIds, m.UserId)
		roles[m.UserId] = m.Role
	}
	memory := room.Memory.Data()

	return &respond.RoomView{
		RoomId: room.Uuid,
		Name:   room.Name,
		Type:   room.Type,
		Status: room.Status,
		Initiator: respond.ParticipantView{
			Id: room.InitiatorId, Name: room.InitiatorName, Role: room.InitiatorRole, Logo: room.InitiatorLogo,
		},
		Counterpart: respond.ParticipantView{
			Id: room.CounterpartId, Name: room.CounterpartName, Role: room.CounterpartRole, Logo: room.CounterpartLogo,
		},
		ProjectId: room.ProjectId,
		OrgId:     room.OrgId,
		Members:   memberIds,
		Roles:     roles,
		Settings: respond.RoomSettingsView{
			FilesAllowed:      room.FilesAllowed,
			MaxFileSizeMB:     room.MaxFileSizeMB,
			AllowedFileTypes:  nonNil([]string(room.AllowedFileTypes)),
			RequireFileReview: room.RequireFileReview,
		},
		PinnedMessages: nonNil(pins),
		MutedBy:        nonNil(mutes),
		InviteCode:     room.InviteCode,
		InviteExpiry:   room.InviteExpiry,
		Memory: respond.RoomMemoryView{
			Decisions:  nonNil(memory.Decisions),
			Tasks:      nonNil(memory.Tasks),
			Milestones: nonNil(memory.Milestones),
			NotePoints: nonNil(memory.NotePoints),
		},
		CreatedBy:      room.CreatedBy,
		CreatedAt:      room.CreatedAt,
		LastActivityAt: room.LastActivityAt,
	}, nil
}

// nonNil 保证序列化为 [] 而不是 null
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
