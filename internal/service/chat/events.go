// Package chat 实现实时聊天的核心服务层
// events.go
// 核心职责：事件频道命名和事件信封定义
// 频道是纯逻辑名字，连接通过订阅频道接收事件，不做任何持久化
package chat

import (
	"encoding/json"
	"fmt"
)

// 服务端事件类型
const (
	// EventJoined 订阅成功确认，仅发给发起订阅的连接
	EventJoined = "joined"
	// EventMessageNew 新消息事件，发给线程频道和对端个人频道
	EventMessageNew = "message:new"
	// EventReadUpdated 已读游标变更事件，发布规则与新消息相同
	EventReadUpdated = "read:updated"
)

// 客户端事件类型
const (
	// ClientEventJoin 订阅预约线程频道（需要通过成员守卫）
	ClientEventJoin = "join"
	// ClientEventJoinActor 订阅个人频道（只认自己声明的身份）
	ClientEventJoinActor = "join:actor"
)

// AppointmentChannel 预约线程频道名
// 双方订阅同一个频道，线程内事件都投递到这里
func AppointmentChannel(appointmentId uint) string {
	return fmt.Sprintf("appointment:%d", appointmentId)
}

// ActorChannel 个人频道名
// 跨线程投递：即使没有打开具体会话，也能在个人频道收到新消息提醒
func ActorChannel(role, actorId string) string {
	return fmt.Sprintf("actor:%s:%s", role, actorId)
}

// Envelope 服务端事件信封
// Channel 标记事件来源频道，前端据此路由到对应的会话视图
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope 序列化事件信封
func NewEnvelope(channel, event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Channel: channel, Event: event, Payload: raw})
}

// ClientEvent 客户端上行事件
// Data 的具体结构由 Event 决定，在连接的读协程里二次解析
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
