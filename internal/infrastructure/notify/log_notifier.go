package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier 只写日志，未配置消息队列时的默认渠道
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Notify(_ context.Context, event Event) error {
	zap.L().Info("notification",
		zap.String("type", event.Type),
		zap.String("room_id", event.RoomId),
		zap.String("actor_id", event.ActorId),
		zap.Strings("recipients", event.Recipients),
	)
	return nil
}

func (LogNotifier) Close() error { return nil }
