// Package chat 实现实时聊天的核心服务层
// client.go
// 核心职责：WebSocket 连接生命周期管理
// 1. 建立 WebSocket 连接 (Upgrade)，封装 UserConn 读写协程
// 2. 处理上行订阅事件 join / join:actor
// 3. 订阅前重跑成员守卫，校验失败时静默忽略（不回执、不断开）
package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"thera_chat_server/internal/dto/request"
	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
)

// MembershipGuard 成员守卫接口
// 订阅线程频道前必须通过守卫，与 HTTP 侧的校验是同一套逻辑
type MembershipGuard interface {
	CheckMembership(appointmentId uint, role, actorId string) (*model.Appointment, error)
}

// wsConn 抽象底层 websocket 连接，便于测试注入
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// UserConn 单个 WebSocket 连接
// Send 为下行事件缓冲，由 Hub 投递、写协程消费
type UserConn struct {
	Id   string
	Conn wsConn
	Send chan []byte

	hub   *Hub
	guard MembershipGuard
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewUserConn 封装一条连接（不启动协程，供测试直接驱动）
func NewUserConn(conn wsConn, hub *Hub, guard MembershipGuard) *UserConn {
	return &UserConn{
		Id:    uuid.NewString(),
		Conn:  conn,
		Send:  make(chan []byte, constants.CHANNEL_SIZE),
		hub:   hub,
		guard: guard,
	}
}

// NewClientInit 升级 HTTP 连接为 WebSocket 并启动读写协程
func NewClientInit(c *gin.Context, hub *Hub, guard MembershipGuard) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	client := NewUserConn(conn, hub, guard)
	hub.Register(client)
	go client.Read()
	go client.Write()
	zap.L().Info("ws连接成功", zap.String("conn_id", client.Id))
}

// Read 读取上行事件并处理订阅
func (c *UserConn) Read() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.Conn.Close(); err != nil {
			zap.L().Debug(err.Error())
		}
	}()
	for {
		_, jsonMessage, err := c.Conn.ReadMessage()
		if err != nil {
			zap.L().Info("ws连接断开", zap.String("conn_id", c.Id), zap.String("reason", err.Error()))
			return
		}
		var event ClientEvent
		if err := json.Unmarshal(jsonMessage, &event); err != nil {
			zap.L().Warn("上行事件解析失败", zap.String("conn_id", c.Id), zap.Error(err))
			continue
		}
		c.HandleEvent(event)
	}
}

// Write 从发送缓冲读取事件写到 WebSocket
func (c *UserConn) Write() {
	for data := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			zap.L().Error(err.Error())
			return
		}
	}
}

// HandleEvent 处理一个上行事件，未知事件直接忽略
func (c *UserConn) HandleEvent(event ClientEvent) {
	switch event.Event {
	case ClientEventJoin:
		c.handleJoin(event.Data)
	case ClientEventJoinActor:
		c.handleJoinActor(event.Data)
	default:
		zap.L().Debug("忽略未知上行事件", zap.String("event", event.Event))
	}
}

// handleJoin 订阅预约线程频道
// 守卫拒绝时静默忽略：不回执、不断开，避免向外暴露预约是否存在
// 校验通过后同时订阅线程频道和个人频道，并回一条 joined 确认
func (c *UserConn) handleJoin(data json.RawMessage) {
	var req request.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		zap.L().Warn("join 参数解析失败", zap.Error(err))
		return
	}
	if _, err := c.guard.CheckMembership(req.AppointmentId, req.Role, req.ActorId); err != nil {
		zap.L().Info("join 被拒绝",
			zap.Uint("appointment_id", req.AppointmentId),
			zap.String("role", req.Role),
			zap.String("actor_id", req.ActorId),
		)
		return
	}

	channel := AppointmentChannel(req.AppointmentId)
	c.hub.Subscribe(c, channel)
	c.hub.Subscribe(c, ActorChannel(req.Role, req.ActorId))
	c.ack(channel, map[string]any{
		"appointmentId": req.AppointmentId,
		"role":          req.Role,
	})
}

// handleJoinActor 订阅个人频道（不绑定具体预约，无守卫可跑）
func (c *UserConn) handleJoinActor(data json.RawMessage) {
	var req request.JoinActorRequest
	if err := json.Unmarshal(data, &req); err != nil {
		zap.L().Warn("join:actor 参数解析失败", zap.Error(err))
		return
	}
	if !constants.IsValidRole(req.Role) || req.ActorId == "" {
		return
	}

	channel := ActorChannel(req.Role, req.ActorId)
	c.hub.Subscribe(c, channel)
	c.ack(channel, map[string]any{
		"role":    req.Role,
		"actorId": req.ActorId,
	})
}

// ack 只向当前连接回发 joined 确认
func (c *UserConn) ack(channel string, payload any) {
	data, err := NewEnvelope(channel, EventJoined, payload)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	select {
	case c.Send <- data:
	default:
		zap.L().Warn("连接发送缓冲已满，丢弃确认", zap.String("conn_id", c.Id))
	}
}
