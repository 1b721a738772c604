package feed

import (
	"context"
	"sync"
)

// ChannelFeed 单机模式下的变更通知，不依赖外部组件
type ChannelFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[chan struct{}]struct{}
	closed bool
}

// NewChannelFeed 创建 ChannelFeed 实例
func NewChannelFeed() *ChannelFeed {
	return &ChannelFeed{subs: make(map[string]map[chan struct{}]struct{})}
}

func (f *ChannelFeed) Publish(_ context.Context, topic string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs[topic] {
		notify(ch)
	}
	return nil
}

func (f *ChannelFeed) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[chan struct{}]struct{})
	}
	f.subs[topic][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[topic][ch]; !ok {
				return
			}
			delete(f.subs[topic], ch)
			if len(f.subs[topic]) == 0 {
				delete(f.subs, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Close 关闭全部订阅通道，之后的订阅立即收到关闭的通道
func (f *ChannelFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for topic, chans := range f.subs {
		for ch := range chans {
			close(ch)
		}
		delete(f.subs, topic)
	}
	return nil
}

var _ Feed = (*ChannelFeed)(nil)
