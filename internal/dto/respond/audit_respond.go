package respond

import "time"

// AuditView 审计记录
type AuditView struct {
	EntryId   string         `json:"entryId"`
	RoomId    string         `json:"roomId"`
	ActorId   string         `json:"actorId"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ReportView 举报记录
type ReportView struct {
	ReportId       string     `json:"reportId"`
	RoomId         string     `json:"roomId"`
	MessageId      string     `json:"messageId,omitempty"`
	ReportedBy     string     `json:"reportedBy"`
	ReportedUser   string     `json:"reportedUser,omitempty"`
	Reason         string     `json:"reason"`
	Details        string     `json:"details,omitempty"`
	Status         string     `json:"status"`
	ResolutionNote string     `json:"resolutionNote,omitempty"`
	ReviewedBy     string     `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
