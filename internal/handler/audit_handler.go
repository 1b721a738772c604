// Package handler 提供 HTTP 请求处理器
// 本文件处理审计日志查询
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// AuditHandler 审计日志请求处理器
type AuditHandler struct {
	auditSvc service.AuditService
}

func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// ListAudit 房间审计日志，仅 owner/admin 可见
// GET /audit/list?roomId=xxx
func (h *AuditHandler) ListAudit(c *gin.Context) {
	var req request.RoomQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.auditSvc.ListAudit(c.Request.Context(), req.RoomId, currentIdentity(c).UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
