package request

// ReportRequest 提交举报
type ReportRequest struct {
	RoomId       string `json:"roomId" binding:"required"`
	MessageId    string `json:"messageId"`
	ReportedUser string `json:"reportedUser" binding:"max=64"`
	Reason       string `json:"reason" binding:"required,max=64"`
	Details      string `json:"details" binding:"max=2000"`
	ReporterId   string `json:"-"`
}

// ReviewReportRequest 处理举报
type ReviewReportRequest struct {
	ReportId string `json:"reportId" binding:"required"`
	Status   string `json:"status" binding:"required,oneof=reviewed resolved dismissed"`
	Note     string `json:"note" binding:"max=500"`
}
