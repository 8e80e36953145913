// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 升级请求
package handler

import (
	"thera_chat_server/internal/service"
	"thera_chat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WsHandler WebSocket 连接处理器
// 升级后的订阅（join / join:actor）走连接上的事件协议，这里只负责接入
type WsHandler struct {
	hub   *chat.Hub
	guard chat.MembershipGuard
}

// NewWsHandler 创建 WebSocket 处理器实例
func NewWsHandler(hub *chat.Hub, guard service.AppointmentService) *WsHandler {
	return &WsHandler{hub: hub, guard: guard}
}

// Connect 建立 WebSocket 连接
// GET /wss
func (h *WsHandler) Connect(c *gin.Context) {
	chat.NewClientInit(c, h.hub, h.guard)
}
