package repository

import (
	"time"

	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type chatReadRepository struct {
	db *gorm.DB
}

// NewChatReadRepository 创建已读游标 Repository
func NewChatReadRepository(db *gorm.DB) ChatReadRepository {
	return &chatReadRepository{db: db}
}

// FindByAppointmentId 查找预约的游标行
func (r *chatReadRepository) FindByAppointmentId(appointmentId uint) (*model.ChatRead, error) {
	var chatRead model.ChatRead
	if err := r.db.Where("appointment_id = ?", appointmentId).First(&chatRead).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询已读游标 appointment_id=%d", appointmentId)
	}
	return &chatRead, nil
}

// EnsureRow 确保预约的游标行存在
// 游标行正常在预约创建时初始化，这里兜底处理历史数据
// 使用 ON CONFLICT DO NOTHING 避免并发创建时报唯一键冲突
func (r *chatReadRepository) EnsureRow(appointmentId uint) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "appointment_id"}},
		DoNothing: true,
	}).Create(&model.ChatRead{AppointmentId: appointmentId}).Error
	return wrapDBErrorf(err, "初始化已读游标 appointment_id=%d", appointmentId)
}

// cursorColumns 返回角色对应的游标列和已读时间列
func cursorColumns(role string) (string, string) {
	if role == constants.RoleTherapist {
		return "therapist_last_read_message_id", "therapist_last_read_at"
	}
	return "patient_last_read_message_id", "patient_last_read_at"
}

// AdvanceCursor 原子地把指定角色的游标前进到 messageUuid
// 单条带条件的 UPDATE：现有游标为空或小于目标值时才写入
// 并发的 markRead 之间不需要先读后写，数据库的行级原子性保证游标永不回退
func (r *chatReadRepository) AdvanceCursor(appointmentId uint, role string, messageUuid int64, seenAt time.Time) (bool, error) {
	cursorCol, seenAtCol := cursorColumns(role)
	res := r.db.Model(&model.ChatRead{}).
		Where("appointment_id = ?", appointmentId).
		Where(cursorCol+" IS NULL OR "+cursorCol+" < ?", messageUuid).
		Updates(map[string]any{
			cursorCol: messageUuid,
			seenAtCol: seenAt,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "推进已读游标 appointment_id=%d role=%s", appointmentId, role)
	}
	return res.RowsAffected > 0, nil
}
