// Package handler 提供 HTTP 请求处理器
// 本文件处理文件上传与审核相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"
	"raft_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler 文件请求处理器
type FileHandler struct {
	fileSvc service.FileService
}

func NewFileHandler(fileSvc service.FileService) *FileHandler {
	return &FileHandler{fileSvc: fileSvc}
}

// UploadFile 上传文件
// POST /file/upload
// 表单: roomId, file
// 响应: { fileId: string }
func (h *FileHandler) UploadFile(c *gin.Context) {
	roomId := c.PostForm("roomId")
	if roomId == "" {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "roomId 不能为空"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "缺少上传文件"))
		return
	}
	file, err := header.Open()
	if err != nil {
		zap.L().Error("open multipart file failed", zap.Error(err))
		HandleError(c, errorx.ErrServerBusy)
		return
	}
	defer file.Close()

	id := currentIdentity(c)
	fileId, err := h.fileSvc.UploadFile(c.Request.Context(), request.UploadFileRequest{
		RoomId:       roomId,
		UploaderId:   id.UserID,
		UploaderName: id.UserName,
		FileName:     header.Filename,
		Size:         header.Size,
		MimeType:     header.Header.Get("Content-Type"),
		Content:      file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"fileId": fileId})
}

// ReviewFile 审核文件
// POST /file/review
func (h *FileHandler) ReviewFile(c *gin.Context) {
	var req request.ReviewFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.fileSvc.ReviewFile(c.Request.Context(), req, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// GetFile 获取已通过审核的文件
// GET /file/get?fileId=xxx
func (h *FileHandler) GetFile(c *gin.Context) {
	var req request.FileQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.fileSvc.GetFile(c.Request.Context(), req.FileId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListFiles 审核队列
// GET /file/list?roomId=xxx&status=pending
func (h *FileHandler) ListFiles(c *gin.Context) {
	var req request.StatusQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.fileSvc.ListFiles(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
