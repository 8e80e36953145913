// Package service 提供业务逻辑层
// 本文件定义 Service 层接口，Handler 层只依赖接口，便于测试替换
package service

import (
	"thera_chat_server/internal/dto/request"
	"thera_chat_server/internal/dto/respond"
	"thera_chat_server/internal/model"
)

// AppointmentService 预约业务接口
// 既是线程存取入口，也是所有聊天操作的成员守卫
type AppointmentService interface {
	// CheckMembership 成员守卫：校验操作者是否是该预约的参与者
	// 角色非法返回参数错误；预约不存在返回 NotFound；
	// 操作者不匹配返回统一的 Forbidden（不暴露预约是否存在之外的信息）
	// 纯读操作，成功时返回完整预约记录（调用方需要对端信息做事件投递）
	CheckMembership(appointmentId uint, role, actorId string) (*model.Appointment, error)
	// CreateAppointment 创建预约线程
	// conversation 模式下按参与者对幂等，返回 existing=true 表示复用已有线程
	CreateAppointment(req request.CreateAppointmentRequest) (appointmentId uint, existing bool, err error)
	// UpdateStatus 预约状态流转
	UpdateStatus(appointmentId uint, status string) error
	// ListForActor 获取参与者的预约列表
	// 带最新消息摘要和未读数，按最近活跃排序
	ListForActor(role, actorId string) ([]respond.AppointmentListRespond, error)
}

// ChatReadService 已读游标业务接口
type ChatReadService interface {
	// MarkSeen 把 role 的已读游标推进到指定消息（0 表示对方最新一条）
	// 幂等且单调：重复或更早的标记不会改变游标，返回刷新后的摘要
	MarkSeen(appointmentId uint, role string, uptoMessageUuid int64) (*respond.ReadSummaryRespond, error)
	// GetUnreadSummary 计算 role 视角的未读摘要
	GetUnreadSummary(appointmentId uint, role string) (*respond.ReadSummaryRespond, error)
}
