package chatroom

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func uploadPDF(t *testing.T, s *chatRoomService, roomId, uploader, name string) string {
	t.Helper()
	fileId, err := s.UploadFile(context.Background(), request.UploadFileRequest{
		RoomId:     roomId,
		UploaderId: uploader,
		FileName:   name,
		Size:       int64(len(pdfBytes)),
		Content:    bytes.NewReader(pdfBytes),
	})
	if err != nil {
		t.Fatalf("UploadFile error = %v", err)
	}
	return fileId
}

func storageKeyOf(t *testing.T, s *chatRoomService, fileId string) string {
	t.Helper()
	file, err := s.repos.File.FindByUuid(context.Background(), fileId)
	if err != nil {
		t.Fatalf("find file %s: %v", fileId, err)
	}
	return file.StorageKey
}

func attachmentFor(msgs []respond.MessageView, fileId string) *respond.FileDescriptor {
	for _, m := range msgs {
		if m.File != nil && m.File.FileId == fileId {
			return m.File
		}
	}
	return nil
}

func TestFileReviewApproved(t *testing.T) {
	s, notifier := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	fileId := uploadPDF(t, s, roomId, "V", "deck.pdf")
	blobs := s.blobs.(*testBlobs)
	key := storageKeyOf(t, s, fileId)
	if blobs.isPublic(key) || !blobs.isStaged(key) {
		t.Fatal("pending upload must stay in staging")
	}

	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	if attachmentFor(msgs, fileId) != nil {
		t.Fatal("pending file must not be rendered")
	}
	if last := msgs[len(msgs)-1]; last.Text != "📎 Venture uploaded deck.pdf - Pending RaftAI review..." {
		t.Fatalf("pending announcement = %q", last.Text)
	}
	if _, err := s.GetFile(ctx, fileId, "F"); !errorx.IsValidation(err) {
		t.Fatalf("GetFile pending error = %v, want ValidationFailed", err)
	}
	pending := notifier.ofType(notify.EventFilePending)
	if len(pending) != 1 || len(pending[0].Recipients) != 2 {
		t.Fatalf("file_pending notifications = %+v", pending)
	}

	review := request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusApproved, Note: "clean"}
	if err := s.ReviewFile(ctx, review, "V"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member review error = %v, want PermissionDenied", err)
	}
	if err := s.ReviewFile(ctx, review, constants.SYSTEM_ACTOR_ID); err != nil {
		t.Fatal(err)
	}
	if err := s.ReviewFile(ctx, request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusRejected}, "F"); !errorx.IsConflict(err) {
		t.Fatalf("second review error = %v, want Conflict", err)
	}

	if !blobs.isPublic(key) || blobs.isStaged(key) {
		t.Fatal("approved upload should be moved to the public root")
	}
	msgs, _ = s.ListMessages(ctx, roomId, "F", false)
	attachment := attachmentFor(msgs, fileId)
	if attachment == nil || attachment.MimeType != "application/pdf" || !strings.HasPrefix(attachment.Url, "/static/files/") {
		t.Fatalf("attachment = %+v", attachment)
	}
	view, err := s.GetFile(ctx, fileId, "V")
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != model.FileStatusApproved || view.ReviewerId != constants.SYSTEM_ACTOR_ID || view.Url == "" {
		t.Fatalf("file = %+v", view)
	}
	if got := notifier.ofType(notify.EventFileReviewed); len(got) != 1 || got[0].Recipients[0] != "V" {
		t.Fatalf("file_reviewed notifications = %+v", got)
	}

	entries, _ := s.ListAudit(ctx, roomId, "F")
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Action]++
	}
	if counts[model.AuditFileUpload] != 1 || counts[model.AuditFileApprove] != 1 || counts[model.AuditFileReject] != 0 {
		t.Fatalf("audit counts = %v", counts)
	}
}

func TestFileReviewRejectedStaysHidden(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	fileId := uploadPDF(t, s, roomId, "V", "leak.pdf")
	blobs := s.blobs.(*testBlobs)
	key := storageKeyOf(t, s, fileId)
	if err := s.ReviewFile(ctx, request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusRejected, Note: "nda"}, "F"); err != nil {
		t.Fatal(err)
	}
	if blobs.isPublic(key) || blobs.isStaged(key) {
		t.Fatal("rejected upload must be deleted")
	}
	if err := s.ReviewFile(ctx, request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusApproved}, "F"); !errorx.IsConflict(err) {
		t.Fatalf("re-review error = %v, want Conflict", err)
	}

	all, _ := s.ListMessages(ctx, roomId, "F", true)
	if attachmentFor(all, fileId) != nil {
		t.Fatal("rejected file must never be rendered")
	}
	if _, err := s.GetFile(ctx, fileId, "F"); !errorx.IsNotFound(err) {
		t.Fatalf("GetFile rejected error = %v, want NotFound", err)
	}

	files, err := s.ListFiles(ctx, roomId, "F", model.FileStatusRejected)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Url != "" || files[0].ReviewNote != "nda" {
		t.Fatalf("rejected files = %+v", files)
	}
	if _, err := s.ListFiles(ctx, roomId, "V", ""); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member ListFiles error = %v, want PermissionDenied", err)
	}
}

func TestUploadRejectedBeforeRecordCreated(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	tests := []struct {
		name string
		req  request.UploadFileRequest
	}{
		{"120MB over 100MB limit", request.UploadFileRequest{
			RoomId: roomId, UploaderId: "V", FileName: "huge.mp4", Size: 120 * constants.MB, Content: strings.NewReader("x"),
		}},
		{"extension not allowed", request.UploadFileRequest{
			RoomId: roomId, UploaderId: "V", FileName: "tool.exe", Size: 2, Content: strings.NewReader("MZ"),
		}},
		{"content does not match", request.UploadFileRequest{
			RoomId: roomId, UploaderId: "V", FileName: "deck.pdf", Size: 4, Content: bytes.NewReader([]byte("PK\x03\x04")),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.UploadFile(ctx, tt.req); !errorx.IsValidation(err) {
				t.Fatalf("UploadFile error = %v, want ValidationFailed", err)
			}
		})
	}

	if _, err := s.UploadFile(ctx, request.UploadFileRequest{
		RoomId: roomId, UploaderId: "X", FileName: "deck.pdf", Size: 1, Content: bytes.NewReader(pdfBytes),
	}); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-member upload error = %v, want PermissionDenied", err)
	}

	files, _ := s.ListFiles(ctx, roomId, "F", "")
	if len(files) != 0 {
		t.Fatalf("files = %+v, want none", files)
	}
}

func TestUploadWithoutReviewApprovesImmediately(t *testing.T) {
	s, notifier := newTestService(t)
	s.conf.SkipFileReview = true
	ctx := context.Background()
	roomId := createDeal(t, s)

	fileId := uploadPDF(t, s, roomId, "V", "memo.pdf")
	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	if attachmentFor(msgs, fileId) == nil {
		t.Fatal("file should render immediately when review is not required")
	}
	if len(notifier.ofType(notify.EventFilePending)) != 0 {
		t.Fatal("no pending notification expected")
	}
}

func TestFailedApprovalWithdrawsPublishedFile(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	fileId := uploadPDF(t, s, roomId, "V", "deck.pdf")
	blobs := s.blobs.(*testBlobs)
	key := storageKeyOf(t, s, fileId)

	healthy := s.repos
	broken := *healthy
	broken.Transactor = auditFailingTransactor{inner: healthy.Transactor}
	s.repos = &broken
	err := s.ReviewFile(ctx, request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusApproved}, "F")
	if errorx.GetCode(err) != errorx.CodeDBError {
		t.Fatalf("ReviewFile error = %v, want audit failure", err)
	}
	s.repos = healthy

	if blobs.isPublic(key) || !blobs.isStaged(key) {
		t.Fatal("rolled back approval must leave the file in staging")
	}
	if err := s.ReviewFile(ctx, request.ReviewFileRequest{FileId: fileId, Decision: model.FileStatusApproved}, "F"); err != nil {
		t.Fatalf("retry approval: %v", err)
	}
	if !blobs.isPublic(key) {
		t.Fatal("approved file should be public after retry")
	}
}
