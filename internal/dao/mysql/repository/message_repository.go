package repository

import (
	"thera_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// FindByAppointmentId 按预约查找消息
// 创建时间升序，相同时间用雪花 ID 做平局判定，数量封顶防止超长会话拖垮查询
func (r *messageRepository) FindByAppointmentId(appointmentId uint, limit int) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("appointment_id = ?", appointmentId).
		Order("created_at ASC, uuid ASC").Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 appointment_id=%d", appointmentId)
	}
	return messages, nil
}

// FindByUuid 根据雪花 ID 查找消息
func (r *messageRepository) FindByUuid(uuid int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("uuid = ?", uuid).First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%d", uuid)
	}
	return &message, nil
}

// LastByAppointmentId 查找预约下最新一条消息
func (r *messageRepository) LastByAppointmentId(appointmentId uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("appointment_id = ?", appointmentId).
		Order("created_at DESC, uuid DESC").First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询最新消息 appointment_id=%d", appointmentId)
	}
	return &message, nil
}

// LastByAppointmentIdAndRole 查找预约下指定角色发送的最新一条消息
func (r *messageRepository) LastByAppointmentIdAndRole(appointmentId uint, senderRole string) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("appointment_id = ? AND sender_role = ?", appointmentId, senderRole).
		Order("created_at DESC, uuid DESC").First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询最新消息 appointment_id=%d role=%s", appointmentId, senderRole)
	}
	return &message, nil
}

// CountAfter 统计指定角色发送的、雪花 ID 大于 afterUuid 的消息数
func (r *messageRepository) CountAfter(appointmentId uint, senderRole string, afterUuid int64) (int64, error) {
	var count int64
	query := r.db.Model(&model.Message{}).
		Where("appointment_id = ? AND sender_role = ?", appointmentId, senderRole)
	if afterUuid > 0 {
		query = query.Where("uuid > ?", afterUuid)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计未读消息 appointment_id=%d role=%s", appointmentId, senderRole)
	}
	return count, nil
}

// Create 创建消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}
