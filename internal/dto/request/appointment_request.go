package request

// CreateAppointmentRequest 创建预约请求
// startsAt 使用 "2006-01-02 15:04:05" 格式，conversation 模式下可省略
type CreateAppointmentRequest struct {
	PatientId     string `json:"patientId" binding:"required"`     // 患者标识
	PatientName   string `json:"patientName" binding:"required"`   // 患者姓名
	TherapistId   string `json:"therapistId" binding:"required"`   // 咨询师标识
	TherapistName string `json:"therapistName" binding:"required"` // 咨询师姓名
	StartsAt      string `json:"startsAt"`                         // 预约时间（可选）
}

// UpdateAppointmentStatusRequest 更新预约状态请求
type UpdateAppointmentStatusRequest struct {
	AppointmentId uint   `json:"appointmentId" binding:"required"`                                   // 预约 ID
	Status        string `json:"status" binding:"required,oneof=booked completed cancelled no-show"` // 目标状态
}

// AppointmentListRequest 获取预约列表请求
type AppointmentListRequest struct {
	ActorRequest
}
