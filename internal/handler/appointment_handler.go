// Package handler 提供 HTTP 请求处理器
// 本文件处理预约相关的 API 请求
package handler

import (
	"thera_chat_server/internal/dto/request"
	"thera_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler 预约请求处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
}

// NewAppointmentHandler 创建预约处理器实例
func NewAppointmentHandler(appointmentSvc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

// CreateAppointment 创建预约线程
// POST /appointment/create
// 请求体: request.CreateAppointmentRequest
// 响应: {appointmentId, existing}
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req request.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	appointmentId, existing, err := h.appointmentSvc.CreateAppointment(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{
		"appointmentId": appointmentId,
		"existing":      existing,
	})
}

// UpdateStatus 更新预约状态
// POST /appointment/updateStatus
// 请求体: request.UpdateAppointmentStatusRequest
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req request.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.appointmentSvc.UpdateStatus(req.AppointmentId, req.Status); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// List 获取参与者的预约列表
// GET /appointment/list?role=xxx&actorId=xxx
// 响应: []respond.AppointmentListRespond
func (h *AppointmentHandler) List(c *gin.Context) {
	var req request.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.appointmentSvc.ListForActor(req.Role, req.ActorId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
