package feed

import (
	"context"

	"go.uber.org/zap"
)

// Subscription 一条实时快照流
// C 只保留最新快照，消费慢时旧快照被替换；Close 同步返回，之后 C 被关闭
type Subscription[T any] struct {
	C      <-chan T
	cancel context.CancelFunc
	done   chan struct{}
}

// Close 取消订阅并等待后台协程退出，不影响其他订阅者
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Watch 订阅 topic，先投递一次 load 的结果，之后每次收到变更信号重新 load
// 先订阅再首次加载，保证加载期间发生的变更不会漏掉
// load 失败时投递上一次成功的快照（首次失败则为零值），订阅不中断
func Watch[T any](ctx context.Context, f Feed, topic string, load func(ctx context.Context) (T, error)) *Subscription[T] {
	signals, unsubscribe := f.Subscribe(topic)
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan T, 1)
	sub := &Subscription[T]{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer unsubscribe()

		var last T
		emit := func() {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Warn("subscription reload failed, serving last snapshot",
					zap.String("topic", topic), zap.Error(err))
				snapshot = last
			} else {
				last = snapshot
			}
			deliverLatest(out, snapshot)
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				drain(out)
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				emit()
			}
		}
	}()
	return sub
}

// deliverLatest 通道已满时用新快照替换未被读取的旧快照
func deliverLatest[T any](out chan T, v T) {
	select {
	case out <- v:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- v:
	default:
	}
}

func drain[T any](out chan T) {
	for {
		select {
		case <-out:
		default:
			return
		}
	}
}
