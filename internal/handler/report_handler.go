// Package handler 提供 HTTP 请求处理器
// 本文件处理举报相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 举报请求处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Report 提交举报
// POST /report/submit
// 响应: { reportId: string }
func (h *ReportHandler) Report(c *gin.Context) {
	var req request.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	req.ReporterId = currentIdentity(c).UserID
	reportId, err := h.reportSvc.Report(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"reportId": reportId})
}

// ReviewReport 处理举报
// POST /report/review
func (h *ReportHandler) ReviewReport(c *gin.Context) {
	var req request.ReviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.reportSvc.ReviewReport(c.Request.Context(), req, currentIdentity(c).UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ListReports 房间举报列表
// GET /report/list?roomId=xxx&status=pending
func (h *ReportHandler) ListReports(c *gin.Context) {
	var req request.StatusQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.reportSvc.ListReports(c.Request.Context(), req.RoomId, currentIdentity(c).UserID, req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
