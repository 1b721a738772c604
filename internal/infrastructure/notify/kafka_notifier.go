package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"raft_chat_server/internal/config"
	"raft_chat_server/pkg/errorx"
)

// KafkaNotifier 把通知写入 Kafka，按房间 ID 分区保证同房间有序
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier 创建 Kafka 通知渠道
func NewKafkaNotifier(conf *config.KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.HostPort),
			Topic:                  conf.NotifyTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           conf.Timeout * time.Second,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
	}
}

func (k *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "marshal notification")
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoomId),
		Value: body,
	}); err != nil {
		return errorx.Wrapf(err, errorx.CodeUnavailable, "kafka notify %s", event.Type)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	if err := k.writer.Close(); err != nil {
		zap.L().Error("close kafka notifier", zap.Error(err))
		return err
	}
	return nil
}
