// Package router 提供 HTTP 路由注册
// 本文件定义预约相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAppointmentRoutes 注册预约相关路由
func (rt *Router) RegisterAppointmentRoutes(rg *gin.RouterGroup) {
	appointmentGroup := rg.Group("/appointment")
	{
		appointmentGroup.GET("/list", rt.handlers.Appointment.List)                  // 获取参与者的预约列表
		appointmentGroup.POST("/create", rt.handlers.Appointment.CreateAppointment)  // 创建预约线程
		appointmentGroup.POST("/updateStatus", rt.handlers.Appointment.UpdateStatus) // 更新预约状态
	}
}
