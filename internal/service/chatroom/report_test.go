package chatroom

import (
	"context"
	"testing"

	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/errorx"
)

func TestReportLifecycle(t *testing.T) {
	s, notifier := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	msgId := send(t, s, roomId, "F", "guaranteed 100x")

	if _, err := s.Report(ctx, request.ReportRequest{RoomId: roomId, Reason: "scam", ReporterId: "X"}); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-member report error = %v, want PermissionDenied", err)
	}
	reportId, err := s.Report(ctx, request.ReportRequest{RoomId: roomId, MessageId: msgId, Reason: "scam", ReporterId: "V"})
	if err != nil {
		t.Fatal(err)
	}
	if reportId[0] != 'R' {
		t.Fatalf("report id = %q", reportId)
	}
	if got := notifier.ofType(notify.EventReportSubmitted); len(got) != 1 || len(got[0].Recipients) != 2 {
		t.Fatalf("report_submitted notifications = %+v", got)
	}

	if err := s.ReviewReport(ctx, request.ReviewReportRequest{ReportId: reportId, Status: model.ReportStatusReviewed}, "V"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member review error = %v, want PermissionDenied", err)
	}
	steps := []struct {
		status string
		ok     bool
	}{
		{model.ReportStatusReviewed, true},
		{model.ReportStatusReviewed, false},
		{model.ReportStatusResolved, true},
		{model.ReportStatusDismissed, false},
	}
	for _, step := range steps {
		err := s.ReviewReport(ctx, request.ReviewReportRequest{ReportId: reportId, Status: step.status, Note: "checked"}, "F")
		if step.ok && err != nil {
			t.Fatalf("-> %s error = %v", step.status, err)
		}
		if !step.ok && !errorx.IsConflict(err) {
			t.Fatalf("-> %s error = %v, want Conflict", step.status, err)
		}
	}

	reports, err := s.ListReports(ctx, roomId, "F", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Status != model.ReportStatusResolved || reports[0].ReportedUser != "F" || reports[0].ResolutionNote != "checked" {
		t.Fatalf("reports = %+v", reports)
	}

	entries, _ := s.ListAudit(ctx, roomId, "F")
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Action]++
	}
	if counts[model.AuditReport] != 1 || counts[model.AuditReportReview] != 2 {
		t.Fatalf("audit counts = %v", counts)
	}
	if _, err := s.ListAudit(ctx, roomId, "V"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member ListAudit error = %v, want PermissionDenied", err)
	}
}
