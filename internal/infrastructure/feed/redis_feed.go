package feed

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"raft_chat_server/pkg/errorx"
)

// RedisFeed 基于 Redis Pub/Sub 的变更通知，多实例部署时使用
type RedisFeed struct {
	client *redis.Client
	prefix string

	mu      sync.Mutex
	cancels map[*redis.PubSub]func()
	closed  bool
}

// NewRedisFeed 创建 RedisFeed，prefix 用于隔离不同应用的频道
func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{
		client:  client,
		prefix:  prefix,
		cancels: make(map[*redis.PubSub]func()),
	}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + ":" + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string) error {
	if err := f.client.Publish(ctx, f.channel(topic), "1").Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeUnavailable, "redis publish %s", topic)
	}
	return nil
}

// subscribeTimeout 等待 Redis 确认订阅的上限
const subscribeTimeout = 5 * time.Second

// Subscribe 每个订阅独占一个 PubSub 连接，转发协程把消息折叠成信号
// 返回前等待 Redis 确认订阅，之后发布的变更都能收到
func (f *RedisFeed) Subscribe(topic string) (<-chan struct{}, func()) {
	out := make(chan struct{}, 1)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(out)
		return out, func() {}
	}
	pubsub := f.client.Subscribe(context.Background(), f.channel(topic))
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.cancels, pubsub)
			f.mu.Unlock()
			if err := pubsub.Close(); err != nil {
				zap.L().Warn("redis feed unsubscribe failed", zap.String("topic", topic), zap.Error(err))
			}
			<-done
		})
	}
	f.cancels[pubsub] = cancel
	f.mu.Unlock()

	ctx, stop := context.WithTimeout(context.Background(), subscribeTimeout)
	_, err := pubsub.Receive(ctx)
	stop()
	if err != nil {
		// 连接恢复后 go-redis 会自动重新订阅，这里补发一次信号让订阅方重新加载
		zap.L().Warn("redis feed subscribe not confirmed", zap.String("topic", topic), zap.Error(err))
		notify(out)
	}

	go func() {
		defer close(done)
		defer close(out)
		for range pubsub.Channel() {
			notify(out)
		}
	}()
	return out, cancel
}

func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	cancels := make([]func(), 0, len(f.cancels))
	for _, cancel := range f.cancels {
		cancels = append(cancels, cancel)
	}
	f.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

var _ Feed = (*RedisFeed)(nil)
