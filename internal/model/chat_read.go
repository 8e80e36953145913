// Package model 定义数据库实体模型
// 本文件定义已读游标模型，每个预约一行，分别记录双方读到的位置
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// ChatRead 已读游标模型
// 对应数据库 chat_read 表
// 采用"每线程一行游标"设计：为患者和咨询师各记录一个已读消息游标
// 游标存对方消息的雪花 ID，只允许单调前进，不允许回退
// 未读数 = 对方发送的、Uuid 大于自己游标的消息数（游标为空视为全部未读）
type ChatRead struct {
	gorm.Model

	// AppointmentId 所属预约 ID
	// 与 appointment 表一对一，行在预约创建时一并初始化
	AppointmentId uint `gorm:"column:appointment_id;uniqueIndex;not null;comment:预约id"`

	// PatientLastReadMessageId 患者已读到的消息雪花 ID
	// NULL 表示从未标记已读
	PatientLastReadMessageId sql.NullInt64 `gorm:"column:patient_last_read_message_id;type:bigint;comment:患者已读游标"`

	// PatientLastReadAt 患者最近一次游标前进的时间
	// 仅在游标实际前进时更新，保证重复标记已读的幂等性
	PatientLastReadAt sql.NullTime `gorm:"column:patient_last_read_at;type:datetime;comment:患者已读时间"`

	// TherapistLastReadMessageId 咨询师已读到的消息雪花 ID
	TherapistLastReadMessageId sql.NullInt64 `gorm:"column:therapist_last_read_message_id;type:bigint;comment:咨询师已读游标"`

	// TherapistLastReadAt 咨询师最近一次游标前进的时间
	TherapistLastReadAt sql.NullTime `gorm:"column:therapist_last_read_at;type:datetime;comment:咨询师已读时间"`
}

// TableName 指定表名
func (ChatRead) TableName() string {
	return "chat_read"
}
