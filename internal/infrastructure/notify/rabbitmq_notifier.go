package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"raft_chat_server/pkg/errorx"
)

// Meta 信封元数据
type Meta struct {
	Id       string    `json:"id"`
	Type     string    `json:"type"`
	Producer string    `json:"producer"`
	Time     time.Time `json:"time"`
}

// Envelope RabbitMQ 消息体
type Envelope struct {
	Meta Meta  `json:"meta"`
	Data Event `json:"data"`
}

// RabbitMQNotifier 发布到 topic exchange，routing key 为 "chat.<事件类型>"
type RabbitMQNotifier struct {
	conn     *amqp.Connection
	exchange string
	producer string
}

// NewRabbitMQNotifier 连接 RabbitMQ 并声明 exchange
func NewRabbitMQNotifier(url, exchange, producer string) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUnavailable, "rabbitmq dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errorx.Wrap(err, errorx.CodeUnavailable, "rabbitmq channel")
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, errorx.Wrapf(err, errorx.CodeUnavailable, "declare exchange %s", exchange)
	}
	return &RabbitMQNotifier{conn: conn, exchange: exchange, producer: producer}, nil
}

// newEnvelope 事件包装成信封
func newEnvelope(producer string, event Event) Envelope {
	return Envelope{
		Meta: Meta{Id: event.Id, Type: "chat." + event.Type + ".v1", Producer: producer, Time: event.Time},
		Data: event,
	}
}

// RoutingKey 事件对应的 routing key
func RoutingKey(event Event) string {
	return "chat." + event.Type
}

func (r *RabbitMQNotifier) Notify(ctx context.Context, event Event) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return errorx.Wrap(err, errorx.CodeUnavailable, "rabbitmq channel")
	}
	defer ch.Close()

	body, err := json.Marshal(newEnvelope(r.producer, event))
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "marshal envelope")
	}
	if err := ch.PublishWithContext(ctx, r.exchange, RoutingKey(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.Id,
		Timestamp:    time.Now(),
		Body:         body,
	}); err != nil {
		return errorx.Wrapf(err, errorx.CodeUnavailable, "rabbitmq publish %s", event.Type)
	}
	zap.L().Debug("notification published", zap.String("exchange", r.exchange), zap.String("type", event.Type))
	return nil
}

func (r *RabbitMQNotifier) Close() error {
	return r.conn.Close()
}
