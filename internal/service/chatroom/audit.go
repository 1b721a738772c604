package chatroom

import (
	"context"

	"go.uber.org/zap"

	"raft_chat_server/internal/dto/respond"
)

// ListAudit 按时间升序返回房间审计记录，仅 owner/admin
func (s *chatRoomService) ListAudit(ctx context.Context, roomId, callerId string) ([]respond.AuditView, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("ListAudit", err)
	}
	if _, err := requirePrivileged(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("ListAudit", err)
	}
	entries, err := s.repos.Audit.FindByRoom(ctx, roomId)
	if err != nil {
		return nil, fail("ListAudit", err, zap.String("room_id", roomId))
	}
	views := make([]respond.AuditView, 0, len(entries))
	for _, entry := range entries {
		detail := map[string]any(entry.Detail)
		if detail == nil {
			detail = map[string]any{}
		}
		views = append(views, respond.AuditView{
			EntryId:   entry.Uuid,
			RoomId:    entry.RoomUuid,
			ActorId:   entry.ActorId,
			Action:    entry.Action,
			Detail:    detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	return views, nil
}
