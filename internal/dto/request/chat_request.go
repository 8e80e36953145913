package request

// GetMessageListRequest 获取聊天记录请求
type GetMessageListRequest struct {
	ActorRequest
	AppointmentId uint `json:"appointmentId" form:"appointmentId" binding:"required"` // 预约 ID
}

// SendMessageRequest 发送文本消息请求
type SendMessageRequest struct {
	ActorRequest
	AppointmentId uint   `json:"appointmentId" binding:"required"` // 预约 ID
	Body          string `json:"body" binding:"required"`          // 消息内容
}

// MarkReadRequest 标记已读请求
// lastReadMessageId 为消息雪花 ID 的字符串形式（避免 JavaScript 精度丢失）
// 省略时表示"读到对方最新一条消息"
type MarkReadRequest struct {
	ActorRequest
	AppointmentId     uint   `json:"appointmentId" binding:"required"` // 预约 ID
	LastReadMessageId string `json:"lastReadMessageId"`                // 已读到的消息 ID（可选）
}

// ReadSummaryRequest 获取已读摘要请求
type ReadSummaryRequest struct {
	ActorRequest
	AppointmentId uint `json:"appointmentId" form:"appointmentId" binding:"required"` // 预约 ID
}
