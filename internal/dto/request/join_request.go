package request

// JoinRequest WebSocket join 事件负载
// 客户端进入某个预约的聊天界面时发送，通过成员守卫后订阅线程频道和个人频道
type JoinRequest struct {
	AppointmentId uint   `json:"appointmentId"` // 预约 ID
	Role          string `json:"role"`          // 角色：patient 或 therapist
	ActorId       string `json:"actorId"`       // 操作者标识
}

// JoinActorRequest WebSocket join:actor 事件负载
// 仅订阅个人通知频道（如消息中心视图），不进入具体预约
type JoinActorRequest struct {
	Role    string `json:"role"`    // 角色：patient 或 therapist
	ActorId string `json:"actorId"` // 操作者标识
}
