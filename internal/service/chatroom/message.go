package chatroom

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
)

// validateText 消息正文不能为空且不超过长度上限
func (s *chatRoomService) validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errorx.New(errorx.CodeValidationFailed, "message text must not be empty")
	}
	if utf8.RuneCountInString(text) > s.conf.MessageMaxLength {
		return "", errorx.Newf(errorx.CodeValidationFailed, "message exceeds %d characters", s.conf.MessageMaxLength)
	}
	return text, nil
}

// requireMessage 消息必须存在且属于该房间
func requireMessage(ctx context.Context, repos *repository.Repositories, roomId, messageId string) (*model.Message, error) {
	msg, err := repos.Message.FindByUuid(ctx, messageId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "message %s not found", messageId)
		}
		return nil, err
	}
	if msg.RoomUuid != roomId {
		return nil, errorx.Newf(errorx.CodeNotFound, "message %s not found in room %s", messageId, roomId)
	}
	return msg, nil
}

// ==================== 发送与编辑 ====================

// SendMessage 成员发送消息，作者自动标记已读并刷新房间活跃时间
// system 与 ai-reply 类型只能由系统参与者发送
func (s *chatRoomService) SendMessage(ctx context.Context, req request.SendMessageRequest) (string, error) {
	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	switch msgType {
	case model.MessageTypeText:
	case model.MessageTypeSystem, model.MessageTypeAIReply:
		if req.SenderId != constants.SYSTEM_ACTOR_ID {
			return "", errorx.Newf(errorx.CodePermissionDenied, "only %s can send %s messages", constants.SYSTEM_ACTOR_NAME, msgType)
		}
	default:
		return "", errorx.Newf(errorx.CodeValidationFailed, "message type %q cannot be sent directly", msgType)
	}
	text, err := s.validateText(req.Text)
	if err != nil {
		return "", err
	}

	msg := &model.Message{
		RoomUuid:   req.RoomId,
		SendId:     req.SenderId,
		SendName:   req.SenderName,
		SendAvatar: req.SenderAvatar,
		Type:       msgType,
		Text:       text,
		ReplyTo:    req.ReplyTo,
	}
	e := &effects{}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, req.RoomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		member, err := requireMember(ctx, tx, req.RoomId, req.SenderId)
		if err != nil {
			return err
		}
		if msg.SendName == "" {
			msg.SendName = displayName(member.DisplayName, member.UserId)
		}
		if req.ReplyTo != "" {
			if _, err := requireMessage(ctx, tx, req.RoomId, req.ReplyTo); err != nil {
				return err
			}
		}
		if err := s.createMessage(ctx, tx, msg); err != nil {
			return err
		}
		if err := tx.Message.MarkRead(ctx, msg.Uuid, req.SenderId, msg.CreatedAt); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, req.RoomId, e)
	})
	if err != nil {
		return "", fail("SendMessage", err, zap.String("room_id", req.RoomId), zap.String("sender_id", req.SenderId))
	}
	e.roomChanged(req.RoomId)
	s.apply(ctx, e)
	return msg.Uuid, nil
}

// EditMessage 仅作者可编辑自己未删除的消息
func (s *chatRoomService) EditMessage(ctx context.Context, roomId, messageId, callerId, text string) error {
	text, err := s.validateText(text)
	if err != nil {
		return err
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		msg, err := requireMessage(ctx, tx, roomId, messageId)
		if err != nil {
			return err
		}
		if msg.SendId != callerId || msg.Type == model.MessageTypeSystem {
			return errorx.New(errorx.CodePermissionDenied, "only the author can edit this message")
		}
		if msg.IsDeleted {
			return errorx.New(errorx.CodeValidationFailed, "message has been deleted")
		}
		return tx.Message.UpdateText(ctx, messageId, text, s.now())
	})
	if err != nil {
		return fail("EditMessage", err, zap.String("message_id", messageId))
	}
	s.apply(ctx, &effects{rooms: []string{roomId}})
	return nil
}

// DeleteMessage 软删除；作者删除自己的消息，owner/admin 可删除任意消息并留审计
func (s *chatRoomService) DeleteMessage(ctx context.Context, roomId, messageId, callerId string) error {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := requireRoom(ctx, tx, roomId); err != nil {
			return err
		}
		msg, err := requireMessage(ctx, tx, roomId, messageId)
		if err != nil {
			return err
		}
		if msg.IsDeleted {
			return nil
		}
		moderated := msg.SendId != callerId
		if moderated {
			if _, err := requirePrivileged(ctx, tx, roomId, callerId); err != nil {
				return err
			}
		} else if _, err := requireMember(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		if err := tx.Message.SoftDelete(ctx, messageId, s.now()); err != nil {
			return err
		}
		if !moderated {
			return nil
		}
		return s.appendAudit(ctx, tx, roomId, callerId, model.AuditMessageDelete, map[string]any{
			"messageId": messageId,
			"author":    msg.SendId,
		})
	})
	if err != nil {
		return fail("DeleteMessage", err, zap.String("message_id", messageId))
	}
	s.apply(ctx, &effects{rooms: []string{roomId}})
	return nil
}

// ==================== 反应、置顶、已读 ====================

// requireActiveRoom 反应、置顶、已读只允许在 active 房间内发生
func requireActiveRoom(ctx context.Context, repos *repository.Repositories, roomId string) error {
	room, err := requireRoom(ctx, repos, roomId)
	if err != nil {
		return err
	}
	return requireActive(room)
}

// React 切换表情反应：已存在则移除，不存在则添加，返回操作后是否存在
func (s *chatRoomService) React(ctx context.Context, roomId, messageId, userId, emoji string) (bool, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return false, errorx.New(errorx.CodeValidationFailed, "emoji must not be empty")
	}
	if err := requireActiveRoom(ctx, s.repos, roomId); err != nil {
		return false, fail("React", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, userId); err != nil {
		return false, fail("React", err)
	}
	msg, err := requireMessage(ctx, s.repos, roomId, messageId)
	if err != nil {
		return false, fail("React", err)
	}
	if msg.IsDeleted {
		return false, errorx.New(errorx.CodeValidationFailed, "message has been deleted")
	}
	added, err := s.repos.Message.ToggleReaction(ctx, messageId, emoji, userId)
	if err != nil {
		return false, fail("React", err, zap.String("message_id", messageId))
	}
	s.apply(ctx, &effects{rooms: []string{roomId}})
	return added, nil
}

// Pin 置顶消息，仅 owner/admin；重复置顶不重复记审计
func (s *chatRoomService) Pin(ctx context.Context, roomId, messageId, callerId string) error {
	return s.setPinned(ctx, roomId, messageId, callerId, true)
}

// Unpin 取消置顶，仅 owner/admin
func (s *chatRoomService) Unpin(ctx context.Context, roomId, messageId, callerId string) error {
	return s.setPinned(ctx, roomId, messageId, callerId, false)
}

func (s *chatRoomService) setPinned(ctx context.Context, roomId, messageId, callerId string, pinned bool) error {
	e := &effects{}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := requireActiveRoom(ctx, tx, roomId); err != nil {
			return err
		}
		if _, err := requirePrivileged(ctx, tx, roomId, callerId); err != nil {
			return err
		}
		msg, err := requireMessage(ctx, tx, roomId, messageId)
		if err != nil {
			return err
		}

		var changed bool
		action := model.AuditUnpin
		if pinned {
			if msg.IsDeleted {
				return errorx.New(errorx.CodeValidationFailed, "message has been deleted")
			}
			action = model.AuditPin
			changed, err = tx.Room.AddPin(ctx, &model.RoomPin{
				RoomUuid:    roomId,
				MessageUuid: messageId,
				PinnedBy:    callerId,
				CreatedAt:   s.now(),
			})
		} else {
			changed, err = tx.Room.RemovePin(ctx, roomId, messageId)
		}
		if err != nil || !changed {
			return err
		}
		if err := tx.Message.SetPinned(ctx, messageId, pinned); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, roomId, callerId, action, map[string]any{
			"messageId": messageId,
			"author":    msg.SendId,
		}); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, roomId, e)
	})
	if err != nil {
		return fail("setPinned", err, zap.String("message_id", messageId), zap.Bool("pinned", pinned))
	}
	e.roomChanged(roomId)
	s.apply(ctx, e)
	return nil
}

// MarkRead 标记已读，重复调用无副作用
func (s *chatRoomService) MarkRead(ctx context.Context, roomId, messageId, userId string) error {
	if err := requireActiveRoom(ctx, s.repos, roomId); err != nil {
		return fail("MarkRead", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, userId); err != nil {
		return fail("MarkRead", err)
	}
	if _, err := requireMessage(ctx, s.repos, roomId, messageId); err != nil {
		return fail("MarkRead", err)
	}
	if err := s.repos.Message.MarkRead(ctx, messageId, userId, s.now()); err != nil {
		return fail("MarkRead", err, zap.String("message_id", messageId))
	}
	s.apply(ctx, &effects{rooms: []string{roomId}})
	return nil
}

// ==================== 读取与订阅 ====================

// ListMessages 按 (创建时间, 序号) 升序返回房间消息
// includeDeleted 仅 owner/admin 可用，用于审核软删除的内容
func (s *chatRoomService) ListMessages(ctx context.Context, roomId, callerId string, includeDeleted bool) ([]respond.MessageView, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("ListMessages", err)
	}
	if includeDeleted {
		if _, err := requirePrivileged(ctx, s.repos, roomId, callerId); err != nil {
			return nil, fail("ListMessages", err)
		}
	} else if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("ListMessages", err)
	}
	views, err := s.loadMessages(ctx, roomId, includeDeleted, 0)
	if err != nil {
		return nil, fail("ListMessages", err, zap.String("room_id", roomId))
	}
	return views, nil
}

// SubscribeMessages 先回放当前未删除的消息，之后每次变更推送一份新快照
// 调用方被移出房间后只会收到空列表
func (s *chatRoomService) SubscribeMessages(ctx context.Context, roomId, callerId string) (*feed.Subscription[[]respond.MessageView], error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("SubscribeMessages", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("SubscribeMessages", err)
	}
	return feed.Watch(ctx, s.feed, feed.RoomMessagesTopic(roomId), func(ctx context.Context) ([]respond.MessageView, error) {
		if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
			if errorx.IsPermissionDenied(err) {
				return []respond.MessageView{}, nil
			}
			return nil, err
		}
		return s.loadMessages(ctx, roomId, false, s.conf.SubscriptionLimit)
	}), nil
}

// SearchMessages 按发送者、类型、时间范围检索，最多返回最新的 SEARCH_LIMIT 条
func (s *chatRoomService) SearchMessages(ctx context.Context, roomId, callerId string, filters request.MessageSearchFilters) ([]respond.MessageView, error) {
	if !filters.Before.IsZero() && !filters.After.IsZero() && !filters.After.Before(filters.Before) {
		return nil, errorx.New(errorx.CodeInvalidParam, "after must be earlier than before")
	}
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("SearchMessages", err)
	}
	if _, err := requireMember(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("SearchMessages", err)
	}
	messages, err := s.repos.Message.Search(ctx, repository.MessageFilter{
		RoomUuid: roomId,
		SendId:   strings.TrimSpace(filters.From),
		Type:     strings.TrimSpace(filters.Type),
		Before:   filters.Before,
		After:    filters.After,
		Limit:    constants.SEARCH_LIMIT,
	})
	if err != nil {
		return nil, fail("SearchMessages", err, zap.String("room_id", roomId))
	}
	views, err := s.buildMessageViews(ctx, messages)
	if err != nil {
		return nil, fail("SearchMessages", err, zap.String("room_id", roomId))
	}
	return views, nil
}

func (s *chatRoomService) loadMessages(ctx context.Context, roomId string, includeDeleted bool, limit int) ([]respond.MessageView, error) {
	messages, err := s.repos.Message.FindByRoom(ctx, roomId, includeDeleted, limit)
	if err != nil {
		return nil, err
	}
	return s.buildMessageViews(ctx, messages)
}

// buildMessageViews 批量拼装反应、已读和附件；附件只在审核通过后出现，保持 messages 的顺序
func (s *chatRoomService) buildMessageViews(ctx context.Context, messages []model.Message) ([]respond.MessageView, error) {
	views := make([]respond.MessageView, 0, len(messages))
	if len(messages) == 0 {
		return views, nil
	}

	uuids := make([]string, 0, len(messages))
	var fileIds []string
	for _, m := range messages {
		uuids = append(uuids, m.Uuid)
		if m.FileUuid != "" {
			fileIds = append(fileIds, m.FileUuid)
		}
	}

	reactions, err := s.repos.Message.FindReactions(ctx, uuids)
	if err != nil {
		return nil, err
	}
	reactionsByMsg := make(map[string]map[string][]string)
	for _, r := range reactions {
		if reactionsByMsg[r.MessageUuid] == nil {
			reactionsByMsg[r.MessageUuid] = make(map[string][]string)
		}
		reactionsByMsg[r.MessageUuid][r.Emoji] = append(reactionsByMsg[r.MessageUuid][r.Emoji], r.UserId)
	}

	reads, err := s.repos.Message.FindReads(ctx, uuids)
	if err != nil {
		return nil, err
	}
	readsByMsg := make(map[string][]string)
	for _, r := range reads {
		readsByMsg[r.MessageUuid] = append(readsByMsg[r.MessageUuid], r.UserId)
	}

	approved := make(map[string]model.FileUpload)
	if len(fileIds) > 0 {
		files, err := s.repos.File.FindByUuids(ctx, fileIds)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.Status == model.FileStatusApproved {
				approved[f.Uuid] = f
			}
		}
	}

	for _, m := range messages {
		view := respond.MessageView{
			MessageId:  m.Uuid,
			RoomId:     m.RoomUuid,
			SenderId:   m.SendId,
			SenderName: m.SendName,
			Avatar:     m.SendAvatar,
			Type:       m.Type,
			Text:       m.Text,
			ReplyTo:    m.ReplyTo,
			Reactions:  reactionsByMsg[m.Uuid],
			ReadBy:     nonNil(readsByMsg[m.Uuid]),
			IsPinned:   m.IsPinned,
			IsEdited:   m.IsEdited,
			IsDeleted:  m.IsDeleted,
			CreatedAt:  m.CreatedAt,
			EditedAt:   m.EditedAt,
		}
		if view.Reactions == nil {
			view.Reactions = map[string][]string{}
		}
		if f, ok := approved[m.FileUuid]; ok {
			view.File = &respond.FileDescriptor{
				FileId:       f.Uuid,
				Name:         f.FileName,
				Size:         f.FileSize,
				MimeType:     f.MimeType,
				Url:          s.blobs.URL(f.StorageKey),
				ThumbnailUrl: f.ThumbnailUrl,
			}
		}
		views = append(views, view)
	}
	return views, nil
}
