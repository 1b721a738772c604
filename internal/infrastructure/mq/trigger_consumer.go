// Package mq 消费业务系统投递到 Kafka 的事件
// 例如提案被接受、项目被邀请时自动创建对应的协作房间
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/pkg/errorx"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RoomCreator 触发器只依赖房间注册的幂等创建
type RoomCreator interface {
	CreateOrGetRoom(ctx context.Context, req request.CreateRoomRequest) (*respond.CreateRoomRespond, error)
}

// TriggerEvent 业务事件消息体
type TriggerEvent struct {
	Event        string                     `json:"event"` // 如 proposal_accepted，仅用于日志
	Kind         string                     `json:"kind"`
	Initiator    request.ParticipantRequest `json:"initiator"`
	Counterpart  request.ParticipantRequest `json:"counterpart"`
	ContextKeys  []string                   `json:"contextKeys"`
	ProjectId    string                     `json:"projectId"`
	ProjectTitle string                     `json:"projectTitle"`
	OrgId        string                     `json:"orgId"`
	ActorId      string                     `json:"actorId"`
}

// DecodeTrigger 解析事件并转换为建房请求
func DecodeTrigger(value []byte) (request.CreateRoomRequest, error) {
	var ev TriggerEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return request.CreateRoomRequest{}, errorx.Wrap(err, errorx.CodeInvalidParam, "decode trigger event")
	}
	if ev.Kind == "" || ev.Initiator.Id == "" || ev.Counterpart.Id == "" {
		return request.CreateRoomRequest{}, errorx.Newf(errorx.CodeInvalidParam, "trigger event %q missing kind or participants", ev.Event)
	}
	return request.CreateRoomRequest{
		Kind:         ev.Kind,
		Initiator:    ev.Initiator,
		Counterpart:  ev.Counterpart,
		ContextKeys:  ev.ContextKeys,
		ProjectId:    ev.ProjectId,
		ProjectTitle: ev.ProjectTitle,
		OrgId:        ev.OrgId,
		ActorId:      ev.ActorId,
	}, nil
}

// messageReader kafka.Reader 中消费者用到的部分
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TriggerConsumer 消费 triggerTopic，收到事件即调用 CreateOrGetRoom
// 建房是幂等的，重复投递不会产生第二个房间；依赖不可用时原地重试，处理完才提交 offset
type TriggerConsumer struct {
	reader     messageReader
	topic      string
	rooms      RoomCreator
	timeout    time.Duration
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewTriggerConsumer(conf *config.KafkaConfig, rooms RoomCreator) *TriggerConsumer {
	return &TriggerConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{conf.HostPort},
			Topic:       conf.TriggerTopic,
			GroupID:     conf.GroupId,
			StartOffset: kafka.LastOffset,
		}),
		topic:      conf.TriggerTopic,
		rooms:      rooms,
		timeout:    10 * time.Second,
		backoff:    500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Start 阻塞消费直到 ctx 取消
func (t *TriggerConsumer) Start(ctx context.Context) error {
	zap.L().Info("trigger consumer started", zap.String("topic", t.topic))
	for {
		msg, err := t.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return errorx.Wrap(err, errorx.CodeUnavailable, "fetch trigger event")
		}
		if err := t.handle(ctx, msg); err != nil {
			// 未处理完的事件不提交，重启后重新投递
			return nil
		}
		if err := t.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zap.L().Warn("commit trigger offset failed, event will be redelivered",
				zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handle 处理单条事件，返回 nil 表示可以提交 offset
// 格式错误与业务错误记日志后放行；依赖不可用时按退避重试，只有 ctx 取消才返回错误
func (t *TriggerConsumer) handle(ctx context.Context, msg kafka.Message) error {
	req, err := DecodeTrigger(msg.Value)
	if err != nil {
		zap.L().Warn("drop malformed trigger event",
			zap.Int64("offset", msg.Offset), zap.ByteString("value", msg.Value), zap.Error(err))
		return nil
	}

	wait := t.backoff
	for {
		res, err := t.create(ctx, req)
		if err == nil {
			zap.L().Info("trigger handled",
				zap.String("room_id", res.RoomId), zap.Bool("created", res.Created))
			return nil
		}
		if !errorx.IsUnavailable(err) {
			zap.L().Error("trigger create room rejected",
				zap.Int64("offset", msg.Offset), zap.String("kind", req.Kind), zap.Error(err))
			return nil
		}
		zap.L().Warn("trigger create room failed, retrying",
			zap.Int64("offset", msg.Offset), zap.Duration("backoff", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if wait *= 2; wait > t.maxBackoff {
			wait = t.maxBackoff
		}
	}
}

func (t *TriggerConsumer) create(ctx context.Context, req request.CreateRoomRequest) (*respond.CreateRoomRespond, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.rooms.CreateOrGetRoom(ctx, req)
}

func (t *TriggerConsumer) Close() error {
	if err := t.reader.Close(); err != nil {
		zap.L().Error("close trigger consumer", zap.Error(err))
		return err
	}
	return nil
}
