// Package chat 实现实时聊天的核心服务层
// bus.go
// 核心职责：事件总线接口定义
// 支持多种实现：Hub (单机 channel 模式), KafkaBus (分布式)
package chat

import "context"

// EventBus 定义事件发布接口
// 发布是尽力而为的：事件只投递给当前订阅频道的在线连接，
// 错过的事件客户端通过拉取接口补齐
type EventBus interface {
	// Publish 向指定频道发布一个事件
	Publish(ctx context.Context, channel, event string, payload any) error
	// Start 启动消费循环（channel 模式为空操作）
	Start()
	// Close 关闭总线资源
	Close()
}
