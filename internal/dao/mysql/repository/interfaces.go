// Package repository 定义数据访问层接口和聚合结构
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"time"

	"thera_chat_server/internal/model"

	"gorm.io/gorm"
)

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	// FindById 根据主键查找预约
	FindById(id uint) (*model.Appointment, error)
	// FindByParticipants 根据患者/咨询师对查找预约
	// conversation 模式下用于保证每对参与者只有一个线程
	FindByParticipants(patientId, therapistId string) (*model.Appointment, error)
	// FindForActor 查找某个参与者的所有预约
	FindForActor(role, actorId string) ([]model.Appointment, error)
	// Create 创建预约，同时初始化对应的 chat_read 游标行
	Create(appointment *model.Appointment) error
	// UpdateStatus 更新预约状态
	UpdateStatus(id uint, status string) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// FindByAppointmentId 按预约查找消息，按创建时间升序，数量封顶
	FindByAppointmentId(appointmentId uint, limit int) ([]model.Message, error)
	// FindByUuid 根据雪花 ID 查找消息
	FindByUuid(uuid int64) (*model.Message, error)
	// LastByAppointmentId 查找预约下最新一条消息（可能不存在）
	LastByAppointmentId(appointmentId uint) (*model.Message, error)
	// LastByAppointmentIdAndRole 查找预约下指定角色发送的最新一条消息
	LastByAppointmentIdAndRole(appointmentId uint, senderRole string) (*model.Message, error)
	// CountAfter 统计指定角色发送的、雪花 ID 大于 afterUuid 的消息数
	// afterUuid 为 0 表示统计该角色的全部消息
	CountAfter(appointmentId uint, senderRole string, afterUuid int64) (int64, error)
	// Create 创建消息
	Create(message *model.Message) error
}

// ChatReadRepository 已读游标数据访问接口
type ChatReadRepository interface {
	// FindByAppointmentId 查找预约的游标行
	FindByAppointmentId(appointmentId uint) (*model.ChatRead, error)
	// EnsureRow 确保预约的游标行存在（不存在则创建空行）
	EnsureRow(appointmentId uint) error
	// AdvanceCursor 原子地把指定角色的游标前进到 messageUuid
	// 只有当现有游标为空或小于 messageUuid 时才更新（同时写入已读时间）
	// 返回游标是否实际前进，用于保证重复/乱序标记的幂等性
	AdvanceCursor(appointmentId uint, role string, messageUuid int64, seenAt time.Time) (bool, error)
}

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过该结构访问数据层
type Repositories struct {
	Appointment AppointmentRepository
	Message     MessageRepository
	ChatRead    ChatReadRepository
}

// NewRepositories 创建 Repository 聚合实例
// 将 gorm.DB 注入到所有 Repository
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Appointment: NewAppointmentRepository(db),
		Message:     NewMessageRepository(db),
		ChatRead:    NewChatReadRepository(db),
	}
}
