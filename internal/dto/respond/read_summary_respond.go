package respond

// ReadSummaryRespond 已读摘要响应
// UnreadCount 只统计对方发送的消息，自己发的消息不会进入自己的未读数
// LastSeenAt 为空字符串表示从未标记过已读
type ReadSummaryRespond struct {
	AppointmentId uint   `json:"appointmentId"` // 预约 ID
	UnreadCount   int64  `json:"unreadCount"`   // 未读消息数
	LastSeenAt    string `json:"lastSeenAt"`    // 最近已读时间
}
