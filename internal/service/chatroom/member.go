package chatroom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/random"
)

// errAlreadyJoined 事务内发现用户已是成员，回滚已消耗的邀请次数
var errAlreadyJoined = errors.New("already joined")

// ==================== 邀请码 ====================

// GenerateInvite 仅 owner/admin，maxUses<=0 时使用默认次数
func (s *chatRoomService) GenerateInvite(ctx context.Context, roomId, callerId string, maxUses int) (*respond.InviteRespond, error) {
	if maxUses <= 0 {
		maxUses = s.conf.DefaultInviteMaxUses
	}
	now := s.now()
	invite := &model.Invite{
		Code:      random.GetInviteCode(constants.INVITE_CODE_LEN),
		RoomUuid:  roomId,
		CreatedBy: callerId,
		MaxUses:   maxUses,
		ExpiresAt: now.Add(time.Duration(s.conf.InviteExpiryHours) * time.Hour),
		CreatedAt: now,
	}

	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		if _, err := requirePrivileged(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		if err := tx.Invite.Create(ctx, invite); err != nil {
			return err
		}
		if err := tx.Room.UpdateInvite(ctx, roomId, invite.Code, invite.ExpiresAt); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, callerId, model.AuditInviteCreate, map[string]any{
			"code":      invite.Code,
			"maxUses":   maxUses,
			"expiresAt": invite.ExpiresAt,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return nil, fail("GenerateInvite", err, zap.String("room_id", roomId))
	}
	s.apply(ctx, e)
	return &respond.InviteRespond{
		Code:      invite.Code,
		RoomId:    roomId,
		MaxUses:   invite.MaxUses,
		UsedCount: 0,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// JoinViaInvite 通过邀请码加入房间
// 已是成员时直接返回房间 ID，不消耗次数；次数校验与自增是一次条件更新
func (s *chatRoomService) JoinViaInvite(ctx context.Context, code, userId, userName string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || userId == "" {
		return "", errorx.New(errorx.CodeInvalidParam, "invite code and user id are required")
	}
	name := displayName(userName, userId)
	now := s.now()

	var roomId string
	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		invite, err := tx.Invite.FindByCode(ctx, code)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.New(errorx.CodeNotFound, "invalid invite code")
			}
			return err
		}
		roomId = invite.RoomUuid

		if _, err := tx.Member.Find(ctx, roomId, userId); err == nil {
			return errAlreadyJoined
		} else if !errorx.IsNotFound(err) {
			return err
		}

		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		if !invite.ExpiresAt.After(now) {
			return errorx.New(errorx.CodeValidationFailed, "invite code expired")
		}
		redeemed, err := tx.Invite.Redeem(ctx, code, now)
		if err != nil {
			return err
		}
		if !redeemed {
			return errorx.New(errorx.CodeValidationFailed, "invite code limit reached")
		}

		added, err := tx.Member.CreateIfAbsent(ctx, &model.RoomMember{
			RoomUuid:    roomId,
			UserId:      userId,
			Role:        model.MemberRoleMember,
			DisplayName: name,
			JoinedAt:    now,
		})
		if err != nil {
			return err
		}
		if !added {
			return errAlreadyJoined
		}
		if err := tx.Invite.CreateUsage(ctx, &model.InviteUsage{InviteCode: code, UserId: userId, UsedAt: now}); err != nil {
			return err
		}
		if err := s.postSystemMessage(ctx, tx, roomId, fmt.Sprintf("%s joined the room", name)); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, userId, model.AuditJoin, map[string]any{
			"via":  "invite",
			"code": code,
			"name": name,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if errors.Is(err, errAlreadyJoined) {
		return roomId, nil
	}
	if err != nil {
		return "", fail("JoinViaInvite", err, zap.String("code", code), zap.String("user_id", userId))
	}

	e.roomChanged(roomId)
	e.membershipChanged(userId)
	e.notify(notify.NewEvent(notify.EventMemberJoined, roomId, userId, map[string]any{"name": name, "via": "invite"}))
	s.apply(ctx, e)
	return roomId, nil
}

// ==================== 成员管理 ====================

// AddMember owner/admin 把用户加入房间，已是成员返回 Conflict
func (s *chatRoomService) AddMember(ctx context.Context, roomId, actorId, targetId, targetName string) error {
	if targetId == "" {
		return errorx.New(errorx.CodeInvalidParam, "targetId is required")
	}
	name := displayName(targetName, targetId)
	now := s.now()

	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		if _, err := requirePrivileged(ctx, tx, roomId, actorId); err != nil {
			return err
		}
		added, err := tx.Member.CreateIfAbsent(ctx, &model.RoomMember{
			RoomUuid:    roomId,
			UserId:      targetId,
			Role:        model.MemberRoleMember,
			DisplayName: name,
			JoinedAt:    now,
		})
		if err != nil {
			return err
		}
		if !added {
			return errorx.New(errorx.CodeConflict, "already a member")
		}
		if err := s.postSystemMessage(ctx, tx, roomId, fmt.Sprintf("%s was added to the room", name)); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, actorId, model.AuditAddMember, map[string]any{
			"target": targetId,
			"name":   name,
			"role":   model.MemberRoleMember,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return fail("AddMember", err, zap.String("room_id", roomId), zap.String("target_id", targetId))
	}

	e.roomChanged(roomId)
	e.membershipChanged(targetId)
	event := notify.NewEvent(notify.EventMemberJoined, roomId, actorId, map[string]any{"name": name, "via": "added"})
	event.Recipients = []string{targetId}
	e.notify(event)
	s.apply(ctx, e)
	return nil
}

// RemoveMember 自己退出，或 owner/admin 移除他人
// 唯一群主不可被移除（包括自己退出），群主数量在事务内加锁重读
func (s *chatRoomService) RemoveMember(ctx context.Context, roomId, actorId, targetId string) error {
	if targetId == "" {
		return errorx.New(errorx.CodeInvalidParam, "targetId is required")
	}
	if targetId == constants.SYSTEM_ACTOR_ID {
		return errorx.Newf(errorx.CodePermissionDenied, "%s cannot be removed", constants.SYSTEM_ACTOR_NAME)
	}
	self := actorId == targetId

	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := requireRoom(ctx, tx, roomId); err != nil {
			return err
		}
		if !self {
			if _, err := requirePrivileged(ctx, tx, roomId, actorId); err != nil {
				return err
			}
		}

		members, err := tx.Member.FindByRoomForUpdate(ctx, roomId)
		if err != nil {
			return err
		}
		var target *model.RoomMember
		owners := 0
		for i := range members {
			if members[i].Role == model.MemberRoleOwner {
				owners++
			}
			if members[i].UserId == targetId {
				target = &members[i]
			}
		}
		if target == nil {
			return errorx.Newf(errorx.CodeNotFound, "user %s is not a member of room %s", targetId, roomId)
		}
		if target.Role == model.MemberRoleOwner && owners <= 1 {
			return errorx.New(errorx.CodePermissionDenied, "cannot remove the sole owner of the room")
		}

		if _, err := tx.Member.Delete(ctx, roomId, targetId); err != nil {
			return err
		}
		name := displayName(target.DisplayName, targetId)
		text, action := fmt.Sprintf("%s was removed from the room", name), model.AuditRemoveMember
		if self {
			text, action = fmt.Sprintf("%s left the room", name), model.AuditLeave
		}
		if err := s.postSystemMessage(ctx, tx, roomId, text); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, actorId, action, map[string]any{
			"target": targetId,
			"name":   name,
			"role":   target.Role,
		}); err != nil {
			return err
		}
		e.membersChanged(members)
		return nil
	})
	if err != nil {
		return fail("RemoveMember", err, zap.String("room_id", roomId), zap.String("target_id", targetId))
	}

	e.roomChanged(roomId)
	e.membershipChanged(targetId)
	s.apply(ctx, e)
	return nil
}

// ListMembers 房间成员，仅成员可查看
func (s *chatRoomService) ListMembers(ctx context.Context, roomId, callerId string) ([]respond.MemberView, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("ListMembers", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("ListMembers", err)
	}
	members, err := s.repos.Member.FindByRoom(ctx, roomId)
	if err != nil {
		return nil, fail("ListMembers", err, zap.String("room_id", roomId))
	}
	views := make([]respond.MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, respond.MemberView{
			UserId:      m.UserId,
			DisplayName: m.DisplayName,
			Role:        m.Role,
			JoinedAt:    m.JoinedAt,
		})
	}
	return views, nil
}

// ToggleMute 切换免打扰，返回切换后的状态
func (s *chatRoomService) ToggleMute(ctx context.Context, roomId, userId string) (bool, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return false, fail("ToggleMute", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, userId); err != nil {
		return false, fail("ToggleMute", err)
	}
	muted, err := s.repos.Room.ToggleMute(ctx, roomId, userId)
	if err != nil {
		return false, fail("ToggleMute", err, zap.String("room_id", roomId))
	}
	s.apply(ctx, &effects{users: []string{userId}})
	return muted, nil
}
