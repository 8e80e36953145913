// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"thera_chat_server/internal/infrastructure/filestore"
	"thera_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// 作为依赖注入的入口，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Appointment *AppointmentHandler
	Chat        *ChatHandler
	Ws          *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, store filestore.FileStore) *Handlers {
	return &Handlers{
		Appointment: NewAppointmentHandler(svc.Appointment),
		Chat:        NewChatHandler(svc.Chat, store),
		Ws:          NewWsHandler(svc.Hub, svc.Appointment),
	}
}
