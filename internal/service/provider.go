// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"thera_chat_server/internal/dao/mysql/repository"
	myredis "thera_chat_server/internal/dao/redis"
	"thera_chat_server/internal/service/appointment"
	"thera_chat_server/internal/service/chat"
	"thera_chat_server/internal/service/chatread"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过该结构访问各个 Service
type Services struct {
	Appointment AppointmentService // 预约 Service（兼成员守卫）
	ChatRead    ChatReadService    // 已读游标 Service
	Chat        *chat.ChatService  // 聊天会话控制器
	Hub         *chat.Hub          // 连接与频道订阅中枢
	Bus         chat.EventBus      // 事件总线
}

// NewServices 创建并注入所有 Service 实例
// 依赖注入流程：
//  1. 接收 Repository 聚合实例和缓存服务（可为 nil）
//  2. 创建预约/已读 Service，预约 Service 同时承担成员守卫
//  3. 按 messageMode 选择事件总线：channel 模式直接用本地 Hub，
//     kafka 模式发布走 Kafka，消费协程交回 Hub 本地扇出
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService, messageMode string) *Services {
	appointmentSvc := appointment.NewAppointmentService(repos)
	chatReadSvc := chatread.NewChatReadService(repos)

	hub := chat.NewHub()
	var bus chat.EventBus
	if messageMode == "kafka" {
		bus = chat.NewKafkaBus(hub)
	} else {
		bus = hub
	}

	chatSvc := chat.NewChatService(repos, appointmentSvc, chatReadSvc, bus, cache)

	return &Services{
		Appointment: appointmentSvc,
		ChatRead:    chatReadSvc,
		Chat:        chatSvc,
		Hub:         hub,
		Bus:         bus,
	}
}
