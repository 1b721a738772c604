// Package feed 提供实时变更通知
// 发布方只发送"某个主题有变化"的信号，订阅方收到信号后重新查询快照，
// 因此信号可以合并、丢弃重复而不会丢失最终状态
package feed

import (
	"context"
	"fmt"
)

// Feed 变更通知通道
// 支持两种实现：ChannelFeed（单机）、RedisFeed（多实例）
type Feed interface {
	// Publish 通知主题发生变化
	Publish(ctx context.Context, topic string) error
	// Subscribe 订阅主题，返回信号通道与取消函数
	// 信号通道缓冲为 1，来不及消费的信号会合并
	Subscribe(topic string) (<-chan struct{}, func())
	// Close 关闭所有订阅
	Close() error
}

// RoomMessagesTopic 房间消息流主题
func RoomMessagesTopic(roomId string) string {
	return fmt.Sprintf("room:%s:messages", roomId)
}

// UserRoomsTopic 用户房间列表主题
func UserRoomsTopic(userId string) string {
	return fmt.Sprintf("user:%s:rooms", userId)
}

// notify 非阻塞写入，已有未消费信号时直接合并
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
