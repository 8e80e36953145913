package respond

// AppointmentListRespond 预约列表项响应
// 会话列表视图：带最新消息摘要、最新消息时间和未读数，按最近活跃排序
type AppointmentListRespond struct {
	AppointmentId uint   `json:"appointmentId"` // 预约 ID
	PatientId     string `json:"patientId"`     // 患者标识
	PatientName   string `json:"patientName"`   // 患者姓名
	TherapistId   string `json:"therapistId"`   // 咨询师标识
	TherapistName string `json:"therapistName"` // 咨询师姓名
	StartsAt      string `json:"startsAt"`      // 预约时间
	Status        string `json:"status"`        // 预约状态
	LastMessage   string `json:"lastMessage"`   // 最新消息摘要
	LastMessageAt string `json:"lastMessageAt"` // 最新消息时间
	UnreadCount   int64  `json:"unreadCount"`   // 当前操作者的未读数
}
