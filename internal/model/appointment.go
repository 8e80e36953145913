// Package model 定义数据库实体模型
// 本文件定义预约模型，预约是患者与咨询师之间聊天的线程载体
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Appointment 预约模型
// 对应数据库 appointment 表
// 一条预约记录绑定一个患者和一个咨询师，所有聊天消息和已读游标都挂在预约之下
// 预约由外部的挂号/管理操作创建，正常运行中只会变更状态，不会删除
type Appointment struct {
	gorm.Model

	// PatientId 患者标识
	// 本系统不存储用户实体，患者身份由调用方按 (role, actorId) 提供
	PatientId string `gorm:"column:patient_id;index;type:char(20);not null;comment:患者id"`

	// PatientName 患者姓名
	// 冗余存储，用于会话列表显示，避免依赖外部用户服务
	PatientName string `gorm:"column:patient_name;type:varchar(50);not null;comment:患者姓名"`

	// TherapistId 咨询师标识
	TherapistId string `gorm:"column:therapist_id;index;type:char(20);not null;comment:咨询师id"`

	// TherapistName 咨询师姓名
	TherapistName string `gorm:"column:therapist_name;type:varchar(50);not null;comment:咨询师姓名"`

	// StartsAt 预约开始时间
	// conversation 模式下允许为空（线程与具体时段无关）
	StartsAt sql.NullTime `gorm:"column:starts_at;type:datetime;comment:预约时间"`

	// Status 预约状态
	// booked / completed / cancelled / no-show，参见 pkg/constants
	Status string `gorm:"column:status;type:varchar(20);not null;default:booked;comment:预约状态"`
}

// TableName 指定表名
func (Appointment) TableName() string {
	return "appointment"
}
