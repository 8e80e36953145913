// Package handler 提供 HTTP 请求处理器
// 本文件处理聊天相关的 API 请求
package handler

import (
	"strconv"

	"thera_chat_server/internal/dto/request"
	"thera_chat_server/internal/infrastructure/filestore"
	"thera_chat_server/internal/service/chat"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// ChatHandler 聊天请求处理器
type ChatHandler struct {
	chatSvc *chat.ChatService
	store   filestore.FileStore
}

// NewChatHandler 创建聊天处理器实例
func NewChatHandler(chatSvc *chat.ChatService, store filestore.FileStore) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc, store: store}
}

// GetMessageList 获取预约的消息列表
// GET /chat/messages?appointmentId=xxx&role=xxx&actorId=xxx
// 响应: []respond.MessageRespond（按创建时间升序，数量封顶）
func (h *ChatHandler) GetMessageList(c *gin.Context) {
	var req request.GetMessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.ListMessages(req.AppointmentId, req.Role, req.ActorId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SendMessage 发送文本消息
// POST /chat/message
// 请求体: request.SendMessageRequest
// 响应: respond.MessageRespond
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.SendText(req.AppointmentId, req.Role, req.ActorId, req.Body)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// uploadForm 文件消息的 multipart 表单字段
type uploadForm struct {
	AppointmentId uint   `form:"appointmentId" binding:"required"`
	Role          string `form:"role" binding:"required,oneof=patient therapist"`
	ActorId       string `form:"actorId" binding:"required"`
}

// Upload 发送文件消息
// POST /chat/upload (multipart/form-data，文件字段名 file)
// 文件先落盘再作为消息持久化，响应为带访问路径的消息
func (h *ChatHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(constants.FILE_MAX_SIZE); err != nil {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "文件过大或表单格式错误"))
		return
	}

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		HandleParamError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "缺少上传文件"))
		return
	}
	// ParseMultipartForm 的参数只是内存阈值，超出部分会落临时文件，
	// 大小上限要按文件本身的大小单独检查
	if fileHeader.Size > constants.FILE_MAX_SIZE {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "文件超出大小限制"))
		return
	}

	stored, err := h.store.Save(fileHeader)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.chatSvc.SendFile(form.AppointmentId, form.Role, form.ActorId,
		stored.Url, stored.Name, stored.MimeType)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkRead 标记已读
// POST /chat/markRead
// lastReadMessageId 省略时表示读到对方最新一条
// 响应: respond.ReadSummaryRespond
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	var uptoUuid int64
	if req.LastReadMessageId != "" {
		parsed, err := strconv.ParseInt(req.LastReadMessageId, 10, 64)
		if err != nil || parsed <= 0 {
			HandleError(c, errorx.New(errorx.CodeInvalidParam, "lastReadMessageId 不合法"))
			return
		}
		uptoUuid = parsed
	}

	data, err := h.chatSvc.MarkRead(req.AppointmentId, req.Role, req.ActorId, uptoUuid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ReadSummary 获取未读摘要
// GET /chat/readSummary?appointmentId=xxx&role=xxx&actorId=xxx
// 响应: respond.ReadSummaryRespond
func (h *ChatHandler) ReadSummary(c *gin.Context) {
	var req request.ReadSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.GetReadSummary(req.AppointmentId, req.Role, req.ActorId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
