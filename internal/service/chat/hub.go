// Package chat 实现实时聊天的核心服务层
// hub.go
// 核心职责：连接注册表和频道订阅管理
// 1. 维护在线连接映射和频道到连接的订阅关系
// 2. 本地事件扇出：向频道的所有订阅连接投递事件
// 3. 单机 channel 模式下直接作为 EventBus 使用
package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub 连接与频道订阅的管理中枢
// 两张表都在同一把读写锁下维护，订阅关系随连接注销整体清理
type Hub struct {
	mu sync.RWMutex
	// conns 在线连接表，Key 为连接 ID
	conns map[string]*UserConn
	// channels 频道订阅表，Key 为频道名，Value 为订阅该频道的连接 ID 集合
	channels map[string]map[string]struct{}
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		conns:    make(map[string]*UserConn),
		channels: make(map[string]map[string]struct{}),
	}
}

// Register 注册连接
func (h *Hub) Register(conn *UserConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.Id] = conn
	zap.L().Info("ws连接注册", zap.String("conn_id", conn.Id))
}

// Unregister 注销连接并清理其全部订阅
func (h *Hub) Unregister(conn *UserConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.Id]; !ok {
		return
	}
	delete(h.conns, conn.Id)
	for channel, members := range h.channels {
		delete(members, conn.Id)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	close(conn.Send)
	zap.L().Info("ws连接注销", zap.String("conn_id", conn.Id))
}

// Subscribe 把连接加入频道
// 对未注册的连接是空操作，重复订阅同一频道是幂等的
func (h *Hub) Subscribe(conn *UserConn, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.Id]; !ok {
		return
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		h.channels[channel] = members
	}
	members[conn.Id] = struct{}{}
}

// Subscribers 返回频道当前的订阅连接数
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Publish 向频道的所有订阅连接投递事件
// 实现 EventBus 接口；单机模式下发布即本地扇出
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := NewEnvelope(channel, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(channel, data)
	return nil
}

// Deliver 本地扇出已序列化的事件
// 非阻塞投递：发送缓冲满的慢连接直接丢弃该事件并记日志，
// 不能让一个慢消费者拖住整个频道
func (h *Hub) Deliver(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connId := range h.channels[channel] {
		conn, ok := h.conns[connId]
		if !ok {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			zap.L().Warn("连接发送缓冲已满，丢弃事件",
				zap.String("conn_id", connId),
				zap.String("channel", channel),
			)
		}
	}
}

// Start 实现 EventBus 接口，channel 模式无消费循环
func (h *Hub) Start() {}

// Close 关闭所有在线连接
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.conns {
		if err := conn.Conn.Close(); err != nil {
			zap.L().Error(err.Error())
		}
		close(conn.Send)
	}
	h.conns = make(map[string]*UserConn)
	h.channels = make(map[string]map[string]struct{})
}
