// Package notify 投递尽力而为的业务通知（邮件、推送等下游渠道由消费者负责）
// 通知失败只记录日志，绝不回滚触发它的主操作
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventRoomCreated     = "room_created"
	EventMemberJoined    = "member_joined"
	EventFilePending     = "file_pending"
	EventFileReviewed    = "file_reviewed"
	EventReportSubmitted = "report_submitted"
)

// Event 一条通知
type Event struct {
	Id         string         `json:"id"`
	Type       string         `json:"type"`
	RoomId     string         `json:"roomId"`
	ActorId    string         `json:"actorId"`
	Recipients []string       `json:"recipients,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Time       time.Time      `json:"time"`
}

// NewEvent 创建带唯一 ID 与时间戳的事件
func NewEvent(eventType, roomId, actorId string, payload map[string]any) Event {
	return Event{
		Id:      uuid.NewString(),
		Type:    eventType,
		RoomId:  roomId,
		ActorId: actorId,
		Payload: payload,
		Time:    time.Now(),
	}
}

// Notifier 通知渠道
// 支持三种实现：KafkaNotifier、RabbitMQNotifier、LogNotifier
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}
