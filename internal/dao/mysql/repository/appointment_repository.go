package repository

import (
	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"

	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository 创建预约 Repository
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// FindById 根据主键查找预约
func (r *appointmentRepository) FindById(id uint) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.db.First(&appointment, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询预约 id=%d", id)
	}
	return &appointment, nil
}

// FindByParticipants 根据患者/咨询师对查找预约
func (r *appointmentRepository) FindByParticipants(patientId, therapistId string) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.db.Where("patient_id = ? AND therapist_id = ?", patientId, therapistId).
		First(&appointment).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询预约 patient=%s therapist=%s", patientId, therapistId)
	}
	return &appointment, nil
}

// FindForActor 查找某个参与者的所有预约
// 初步按更新时间倒序返回，最终排序由 Service 层结合最新消息时间完成
func (r *appointmentRepository) FindForActor(role, actorId string) ([]model.Appointment, error) {
	column := "patient_id"
	if role == constants.RoleTherapist {
		column = "therapist_id"
	}
	var appointments []model.Appointment
	if err := r.db.Where(column+" = ?", actorId).
		Order("updated_at DESC").Find(&appointments).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询预约列表 %s=%s", column, actorId)
	}
	return appointments, nil
}

// Create 创建预约
// 同一事务中初始化 chat_read 游标行，保证每个线程都有游标可推进
func (r *appointmentRepository) Create(appointment *model.Appointment) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(appointment).Error; err != nil {
			return err
		}
		return tx.Create(&model.ChatRead{AppointmentId: appointment.ID}).Error
	})
	return wrapDBError(err, "创建预约")
}

// UpdateStatus 更新预约状态
// 先确认记录存在再更新：MySQL 的影响行数是"改动行数"，
// 把状态改成当前值时影响行数为 0，不能据此判断记录不存在
func (r *appointmentRepository) UpdateStatus(id uint, status string) error {
	var appointment model.Appointment
	if err := r.db.Select("id").First(&appointment, id).Error; err != nil {
		return wrapDBErrorf(err, "更新预约状态 id=%d", id)
	}
	if err := r.db.Model(&model.Appointment{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return wrapDBErrorf(err, "更新预约状态 id=%d", id)
	}
	return nil
}
