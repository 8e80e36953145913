// Package router 提供 HTTP 路由注册
// 本文件定义聊天相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes 注册聊天相关路由
func (rt *Router) RegisterChatRoutes(rg *gin.RouterGroup) {
	chatGroup := rg.Group("/chat")
	{
		chatGroup.GET("/messages", rt.handlers.Chat.GetMessageList) // 获取消息列表
		chatGroup.POST("/message", rt.handlers.Chat.SendMessage)    // 发送文本消息
		chatGroup.POST("/upload", rt.handlers.Chat.Upload)          // 发送文件消息
		chatGroup.POST("/markRead", rt.handlers.Chat.MarkRead)      // 标记已读
		chatGroup.GET("/readSummary", rt.handlers.Chat.ReadSummary) // 获取未读摘要
	}
}
