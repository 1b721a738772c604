package chatroom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/snowflake"
)

// countingReader 统计实际读取的字节数，声明的大小不可信
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func extensionOf(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimPrefix(v, "."), value) {
			return true
		}
	}
	return false
}

// messageTypeFor 根据 MIME 决定附件消息的展示类型
func messageTypeFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.MessageTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return model.MessageTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return model.MessageTypeVoice
	}
	return model.MessageTypeFile
}

// checkUploadAllowed 上传前置条件：房间允许文件、大小不超限、扩展名在白名单
func checkUploadAllowed(room *model.Room, fileName string, size int64) error {
	if !room.FilesAllowed {
		return errorx.New(errorx.CodeValidationFailed, "file uploads are disabled in this room")
	}
	limit := int64(room.MaxFileSizeMB) * constants.MB
	if size > limit {
		return errorx.Newf(errorx.CodeValidationFailed, "file exceeds the %dMB limit", room.MaxFileSizeMB)
	}
	ext := extensionOf(fileName)
	if ext == "" || !containsFold(room.AllowedFileTypes, ext) {
		return errorx.Newf(errorx.CodeValidationFailed, "file type %q is not allowed", ext)
	}
	return nil
}

// ==================== 上传 ====================

// UploadFile 校验通过后把文件写入暂存区并创建 pending 记录
// 房间不要求审核时同一事务内直接通过、公开文件并发出附件消息
func (s *chatRoomService) UploadFile(ctx context.Context, req request.UploadFileRequest) (string, error) {
	req.FileName = strings.TrimSpace(filepath.Base(req.FileName))
	if req.FileName == "" || req.FileName == "." || req.Content == nil {
		return "", errorx.New(errorx.CodeInvalidParam, "file name and content are required")
	}

	room, err := requireRoom(ctx, s.repos, req.RoomId)
	if err != nil {
		return "", fail("UploadFile", err)
	}
	if err := requireActive(room); err != nil {
		return "", err
	}
	member, err := requireMember(ctx, s.repos, req.RoomId, req.UploaderId)
	if err != nil {
		return "", fail("UploadFile", err)
	}
	if err := checkUploadAllowed(room, req.FileName, req.Size); err != nil {
		return "", err
	}

	// 嗅探文件头，内容类型必须与白名单一致
	head := make([]byte, constants.SNIFF_HEAD_BYTES)
	n, err := io.ReadFull(req.Content, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errorx.Wrap(err, errorx.CodeInvalidParam, "read upload")
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	if !detected.Is("application/octet-stream") && !detected.Is("text/plain") &&
		!containsFold(room.AllowedFileTypes, strings.TrimPrefix(detected.Extension(), ".")) {
		return "", errorx.Newf(errorx.CodeValidationFailed, "file content %s is not an allowed type", detected.String())
	}
	mimeType := req.MimeType
	if mimeType == "" || detected.String() != "application/octet-stream" {
		mimeType = detected.String()
	}

	id := snowflake.Next()
	limit := int64(room.MaxFileSizeMB) * constants.MB
	counter := &countingReader{r: io.MultiReader(bytes.NewReader(head), req.Content)}
	key, err := s.blobs.Save(ctx, req.RoomId, id.Uuid, req.FileName, io.LimitReader(counter, limit+1))
	if err != nil {
		return "", fail("UploadFile", errorx.Wrap(err, errorx.CodeUnavailable, "store upload"), zap.String("room_id", req.RoomId))
	}
	if counter.n > limit {
		s.removeBlob(ctx, key)
		return "", errorx.Newf(errorx.CodeValidationFailed, "file exceeds the %dMB limit", room.MaxFileSizeMB)
	}

	uploaderName := displayName(req.UploaderName, displayName(member.DisplayName, req.UploaderId))
	file := &model.FileUpload{
		Uuid:         id.Uuid,
		RoomUuid:     req.RoomId,
		UploadedBy:   req.UploaderId,
		UploaderName: uploaderName,
		FileName:     req.FileName,
		FileSize:     counter.n,
		MimeType:     mimeType,
		Status:       model.FileStatusPending,
		StorageKey:   key,
		CreatedAt:    s.now(),
	}

	e := &effects{}
	var reviewers []string
	published := false
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := requireRoom(ctx, tx, req.RoomId)
		if err != nil {
			return err
		}
		if err := requireActive(room); err != nil {
			return err
		}
		if _, err := requireMember(ctx, tx, req.RoomId, req.UploaderId); err != nil {
			return err
		}
		if err := tx.File.Create(ctx, file); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, req.RoomId, req.UploaderId, model.AuditFileUpload, map[string]any{
			"fileId":   file.Uuid,
			"name":     file.FileName,
			"size":     file.FileSize,
			"mimeType": file.MimeType,
		}); err != nil {
			return err
		}

		if !room.RequireFileReview {
			return s.decideInTx(ctx, tx, file, model.FileStatusApproved, constants.SYSTEM_ACTOR_ID, "auto-approved", &published)
		}
		text := fmt.Sprintf("📎 %s uploaded %s - Pending %s review...", uploaderName, file.FileName, constants.SYSTEM_ACTOR_NAME)
		if err := s.postSystemMessage(ctx, tx, req.RoomId, text); err != nil {
			return err
		}
		members, err := tx.Member.FindByRoom(ctx, req.RoomId)
		if err != nil {
			return err
		}
		for _, m := range members {
			if model.IsPrivilegedRole(m.Role) {
				reviewers = append(reviewers, m.UserId)
			}
		}
		e.membersChanged(members)
		return nil
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return "", fail("UploadFile", err, zap.String("room_id", req.RoomId), zap.String("file_id", file.Uuid))
	}

	e.roomChanged(req.RoomId)
	if room.RequireFileReview {
		event := notify.NewEvent(notify.EventFilePending, req.RoomId, req.UploaderId, map[string]any{
			"fileId": file.Uuid,
			"name":   file.FileName,
		})
		event.Recipients = reviewers
		e.notify(event)
	}
	s.apply(ctx, e)
	return file.Uuid, nil
}

func (s *chatRoomService) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Remove(context.WithoutCancel(ctx), key); err != nil {
		zap.L().Warn("remove upload failed", zap.String("key", key), zap.Error(err))
	}
}

// ==================== 审核 ====================

// ReviewFile pending -> approved | rejected，只能流转一次
func (s *chatRoomService) ReviewFile(ctx context.Context, req request.ReviewFileRequest, reviewerId string) error {
	if req.Decision != model.FileStatusApproved && req.Decision != model.FileStatusRejected {
		return errorx.Newf(errorx.CodeInvalidParam, "unknown review decision %q", req.Decision)
	}

	var file *model.FileUpload
	e := &effects{}
	published := false
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		file, err = tx.File.FindByUuid(ctx, req.FileId)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.Newf(errorx.CodeNotFound, "file %s not found", req.FileId)
			}
			return err
		}
		if _, err := requirePrivileged(ctx, tx, file.RoomUuid, reviewerId); err != nil {
			return err
		}
		if err := s.decideInTx(ctx, tx, file, req.Decision, reviewerId, strings.TrimSpace(req.Note), &published); err != nil {
			return err
		}
		return s.collectMembers(ctx, tx, file.RoomUuid, e)
	})
	if err != nil {
		if published {
			s.unpublishBlob(ctx, file.StorageKey)
		}
		return fail("ReviewFile", err, zap.String("file_id", req.FileId))
	}
	if req.Decision == model.FileStatusRejected {
		s.removeBlob(ctx, file.StorageKey)
	}

	e.roomChanged(file.RoomUuid)
	event := notify.NewEvent(notify.EventFileReviewed, file.RoomUuid, reviewerId, map[string]any{
		"fileId":   file.Uuid,
		"name":     file.FileName,
		"decision": req.Decision,
		"note":     req.Note,
	})
	event.Recipients = []string{file.UploadedBy}
	e.notify(event)
	s.apply(ctx, e)
	return nil
}

func (s *chatRoomService) unpublishBlob(ctx context.Context, key string) {
	if err := s.blobs.Unpublish(context.WithoutCancel(ctx), key); err != nil {
		zap.L().Error("withdraw published upload failed", zap.String("key", key), zap.Error(err))
	}
}

// decideInTx 写入审核结果、房间消息与审计
// 通过时把文件移入公开目录并以上传者身份发出附件消息，published 记录是否需要在回滚时撤回；
// 拒绝时只发系统消息，文件留在暂存区，提交后删除
func (s *chatRoomService) decideInTx(ctx context.Context, tx *repository.Repositories, file *model.FileUpload, decision, reviewerId, note string, published *bool) error {
	changed, err := tx.File.Decide(ctx, file.Uuid, decision, reviewerId, note, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return errorx.New(errorx.CodeConflict, "file already reviewed")
	}

	action := model.AuditFileReject
	if decision == model.FileStatusApproved {
		action = model.AuditFileApprove
		if err := s.blobs.Publish(ctx, file.StorageKey); err != nil {
			return err
		}
		*published = true
		err = s.createMessage(ctx, tx, &model.Message{
			RoomUuid: file.RoomUuid,
			SendId:   file.UploadedBy,
			SendName: file.UploaderName,
			Type:     messageTypeFor(file.MimeType),
			Text:     file.FileName,
			FileUuid: file.Uuid,
		})
	} else {
		err = s.postSystemMessage(ctx, tx, file.RoomUuid, fmt.Sprintf("%s was rejected by review", file.FileName))
	}
	if err != nil {
		return err
	}
	return s.appendAudit(ctx, tx, file.RoomUuid, reviewerId, action, map[string]any{
		"fileId":     file.Uuid,
		"name":       file.FileName,
		"uploadedBy": file.UploadedBy,
		"note":       note,
	})
}

// ==================== 读取 ====================

// GetFile 成员获取已通过的文件；pending 不可取回，rejected 视为不存在
func (s *chatRoomService) GetFile(ctx context.Context, fileId, callerId string) (*respond.FileView, error) {
	file, err := s.repos.File.FindByUuid(ctx, fileId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "file %s not found", fileId)
		}
		return nil, fail("GetFile", err, zap.String("file_id", fileId))
	}
	if _, err := requireMember(ctx, s.repos, file.RoomUuid, callerId); err != nil {
		return nil, fail("GetFile", err)
	}
	switch file.Status {
	case model.FileStatusPending:
		return nil, errorx.New(errorx.CodeValidationFailed, "file pending review")
	case model.FileStatusRejected:
		return nil, errorx.Newf(errorx.CodeNotFound, "file %s not found", fileId)
	}
	view := s.toFileView(file, true)
	return &view, nil
}

// ListFiles 审核队列，仅 owner/admin；status 为空时返回全部
func (s *chatRoomService) ListFiles(ctx context.Context, roomId, callerId, status string) ([]respond.FileView, error) {
	if _, err := requireRoom(ctx, s.repos, roomId); err != nil {
		return nil, fail("ListFiles", err)
	}
	if _, err := requirePrivileged(ctx, s.repos, roomId, callerId); err != nil {
		return nil, fail("ListFiles", err)
	}
	files, err := s.repos.File.FindByRoom(ctx, roomId, status)
	if err != nil {
		return nil, fail("ListFiles", err, zap.String("room_id", roomId))
	}
	views := make([]respond.FileView, 0, len(files))
	for i := range files {
		views = append(views, s.toFileView(&files[i], files[i].Status == model.FileStatusApproved))
	}
	return views, nil
}

func (s *chatRoomService) toFileView(f *model.FileUpload, withUrl bool) respond.FileView {
	view := respond.FileView{
		FileId:     f.Uuid,
		RoomId:     f.RoomUuid,
		UploadedBy: f.UploadedBy,
		Name:       f.FileName,
		Size:       f.FileSize,
		MimeType:   f.MimeType,
		Status:     f.Status,
		ReviewerId: f.ReviewerId,
		ReviewNote: f.ReviewNote,
		ReviewedAt: f.ReviewedAt,
		CreatedAt:  f.CreatedAt,
	}
	if withUrl {
		view.Url = s.blobs.URL(f.StorageKey)
	}
	return view
}
