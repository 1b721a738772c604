package respond

import "time"

// FileDescriptor 消息附件，仅审核通过的文件会出现
type FileDescriptor struct {
	FileId       string `json:"fileId"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	Url          string `json:"url"`
	ThumbnailUrl string `json:"thumbnailUrl,omitempty"`
}

// MessageView 房间消息
// 使用位置:
//   - internal/service/chatroom/message.go: ListMessages, SubscribeMessages
type MessageView struct {
	MessageId  string              `json:"messageId"`
	RoomId     string              `json:"roomId"`
	SenderId   string              `json:"senderId"`
	SenderName string              `json:"senderName"`
	Avatar     string              `json:"avatar,omitempty"`
	Type       string              `json:"type"`
	Text       string              `json:"text"`
	ReplyTo    string              `json:"replyTo,omitempty"`
	File       *FileDescriptor     `json:"file,omitempty"`
	Reactions  map[string][]string `json:"reactions"`
	ReadBy     []string            `json:"readBy"`
	IsPinned   bool                `json:"isPinned"`
	IsEdited   bool                `json:"isEdited"`
	IsDeleted  bool                `json:"isDeleted"`
	CreatedAt  time.Time           `json:"createdAt"`
	EditedAt   *time.Time          `json:"editedAt,omitempty"`
}

// FileView 文件审核记录
type FileView struct {
	FileId     string     `json:"fileId"`
	RoomId     string     `json:"roomId"`
	UploadedBy string     `json:"uploadedBy"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	MimeType   string     `json:"mimeType"`
	Status     string     `json:"status"`
	ReviewerId string     `json:"reviewerId,omitempty"`
	ReviewNote string     `json:"reviewNote,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
	Url        string     `json:"url,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
