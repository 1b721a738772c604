package request

import "io"

// SendMessageRequest 发送消息
// SenderId/SenderName 由 handler 从 Token 填充，不接受客户端传入
type SendMessageRequest struct {
	RoomId       string `json:"roomId" binding:"required"`
	Text         string `json:"text" binding:"required"`
	ReplyTo      string `json:"replyTo"`
	SenderId     string `json:"-"`
	SenderName   string `json:"-"`
	SenderAvatar string `json:"-"`
	Type         string `json:"-"` // 为空时为 text；系统调用可指定 system/ai-reply
}

// EditMessageRequest 编辑消息
type EditMessageRequest struct {
	RoomId    string `json:"roomId" binding:"required"`
	MessageId string `json:"messageId" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// MessageActionRequest 删除、置顶、取消置顶、标记已读
type MessageActionRequest struct {
	RoomId    string `json:"roomId" binding:"required"`
	MessageId string `json:"messageId" binding:"required"`
}

// ReactRequest 切换表情反应
type ReactRequest struct {
	RoomId    string `json:"roomId" binding:"required"`
	MessageId string `json:"messageId" binding:"required"`
	Emoji     string `json:"emoji" binding:"required,max=32"`
}

// UploadFileRequest 上传文件，handler 从 multipart 表单构造
type UploadFileRequest struct {
	RoomId       string
	UploaderId   string
	UploaderName string
	FileName     string
	Size         int64
	MimeType     string
	Content      io.Reader
}

// ReviewFileRequest 审核文件
type ReviewFileRequest struct {
	FileId   string `json:"fileId" binding:"required"`
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Note     string `json:"note" binding:"max=500"`
}
