// Package model 定义数据库实体模型
// 本文件定义消息模型，用于存储预约会话中的聊天消息
package model

import (
	"gorm.io/gorm"
)

// Message 消息模型
// 对应数据库 message 表
// 消息分为文本消息和文件消息，两者互斥：
// 文本消息只填 Body，文件消息只填 FileUrl/FileName/FileType，不允许同时为空或同时存在
// 消息创建后不可变更，已读状态由 chat_read 表的游标单独维护
type Message struct {
	gorm.Model

	// Uuid 消息唯一标识
	// 使用雪花算法生成的 int64 类型 ID，按生成时间单调递增
	// 消息列表排序的平局判定和已读游标的比较都使用该字段
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	// AppointmentId 所属预约 ID
	// 关联到 appointment 表，标识消息属于哪个会话线程
	AppointmentId uint `gorm:"column:appointment_id;index;not null;comment:预约id"`

	// SenderRole 发送者角色
	// "patient" 或 "therapist"，二者必居其一
	SenderRole string `gorm:"column:sender_role;type:varchar(20);not null;comment:发送者角色"`

	// SenderId 发送者标识
	SenderId string `gorm:"column:sender_id;index;type:char(20);not null;comment:发送者id"`

	// Body 消息文本内容
	// 文本消息存储实际内容，文件消息为空
	Body string `gorm:"column:body;type:TEXT;comment:消息内容"`

	// FileUrl 文件访问路径
	// 文件先由文件存储组件落盘/上云，生成的访问链接存到这里
	FileUrl string `gorm:"column:file_url;type:varchar(255);comment:文件url"`

	// FileName 原始文件名
	FileName string `gorm:"column:file_name;type:varchar(100);comment:文件名"`

	// FileType 文件 MIME 类型
	// 如 "image/jpeg", "application/pdf"，会话列表用它区分 [图片] 和 [附件] 摘要
	FileType string `gorm:"column:file_type;type:varchar(50);comment:文件类型"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// IsFile 是否为文件消息
func (m *Message) IsFile() bool {
	return m.FileUrl != ""
}
