package chatroom

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/random"
)

// reportTransitions 目标状态 -> 允许的当前状态
var reportTransitions = map[string][]string{
	model.ReportStatusReviewed:  {model.ReportStatusPending},
	model.ReportStatusResolved:  {model.ReportStatusPending, model.ReportStatusReviewed},
	model.ReportStatusDismissed: {model.ReportStatusPending, model.ReportStatusReviewed},
}

// Report 成员提交举报，进入 pending 审核队列
func (s *chatRoomService) Report(ctx context.Context, req request.ReportRequest) (string, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return "", errorx.New(errorx.CodeValidationFailed, "reason is required")
	}

	now := s.now()
	report := &model.Report{
		Uuid:         "R" + random.GetNowAndLenRandomString(10),
		RoomUuid:     req.RoomId,
		MessageUuid:  req.MessageId,
		ReportedBy:   req.ReporterId,
		ReportedUser: req.ReportedUser,
		Reason:       req.Reason,
		Details:      strings.TrimSpace(req.Details),
		Status:       model.ReportStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var moderators []string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := requireRoom(ctx, tx, req.RoomId); err != nil {
			return err
		}
		if _, err := requireMember(ctx, tx, req.RoomId, req.ReporterId); err != nil {
			return err
		}
		if req.MessageId != "" {
			msg, err := requireMessage(ctx, tx, req.RoomId, req.MessageId)
			if err != nil {
				return err
			}
			if report.ReportedUser == "" {
				report.ReportedUser = msg.SendId
			}
		}
		if err := tx.Report.Create(ctx, report); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, req.RoomId, req.ReporterId, model.AuditReport, map[string]any{
			"reportId":     report.Uuid,
			"messageId":    report.MessageUuid,
			"reportedUser": report.ReportedUser,
			"reason":       report.Reason,
		}); err != nil {
			return err
		}
		members, err := tx.Member.FindByRoom(ctx, req.RoomId)
		if err != nil {
			return err
		}
		for _, m := range members {
			if model.IsPrivilegedRole(m.Role) {
				moderators = append(moderators, m.UserId)
			}
		}
		return nil
	})
	if err != nil {
		return "", fail("Report", err, zap.String("room_id", req.RoomId))
	}

	e := &effects{}
	event := notify.NewEvent(notify.EventReportSubmitted, req.RoomId, req.ReporterId, map[string]any{
		"reportId": report.Uuid,
		"reason":   report.Reason,
	})
	event.Recipients = moderators
	e.notify(event)
	s.apply(ctx, e)
	return report.Uuid, nil
}

// ReviewReport 处理举报：pending -> reviewed -> resolved | dismissed
func (s *chatRoomService) ReviewReport(ctx context.Context, req request.ReviewReportRequest, reviewerId string) error {
	from, ok := reportTransitions[req.Status]
	if !ok {
		return errorx.Newf(errorx.CodeInvalidParam, "unknown report status %q", req.Status)
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		report, err := tx.Report.FindByUuid(ctx, req.ReportId)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.Newf(errorx.CodeNotFound, "report %s not found", req.ReportId)
			}
			return err
		}
		if _, err := requirePrivileged(ctx, tx, report.RoomUuid, reviewerId); err != nil {
			return err
		}
		note := strings.TrimSpace(req.Note)
		changed, err := tx.Report.Transition(ctx, req.ReportId, from, req.Status, reviewerId, note, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return errorx.Newf(errorx.CodeConflict, "report is already %s", report.Status)
		}
		return s.appendAudit(ctx, tx, report.RoomUuid, reviewerId, model.AuditReportReview, map[string]any{
			"reportId": report.Uuid,
			"from":     report.Status,
			"to":       req.Status,
			"note":     note,
		})
	})
	if err != nil {
		return fail("ReviewReport", err, zap.String("report_id", req.ReportId))
	}
	return nil
}

// ListReports 房间举报队列，仅 owner/admin
func (s *chatRoomService) ListReports(ctx context.Context, roomId, callerId, status string) ([]respond.ReportView, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("ListReports", err)
	}
	if _, err := requirePrivileged(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("ListReports", err)
	}
	reports, err := s.repos.Report.FindByRoom(ctx, roomId, status)
	if err != nil {
		return nil, fail("ListReports", err, zap.String("room_id", roomId))
	}
	views := make([]respond.ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, respond.ReportView{
			ReportId:       r.Uuid,
			RoomId:         r.RoomUuid,
			MessageId:      r.MessageUuid,
			ReportedBy:     r.ReportedBy,
			ReportedUser:   r.ReportedUser,
			Reason:         r.Reason,
			Details:        r.Details,
			Status:         r.Status,
			ResolutionNote: r.ResolutionNote,
			ReviewedBy:     r.ReviewedBy,
			ReviewedAt:     r.ReviewedAt,
			CreatedAt:      r.CreatedAt,
		})
	}
	return views, nil
}
