// Package request 定义 HTTP/WebSocket 请求参数结构
package request

// ActorRequest 操作者身份参数
// 本原型没有鉴权中间件，(role, actorId) 由调用方直接提供
// 权限校验由 Service 层的成员守卫针对具体预约完成
type ActorRequest struct {
	Role    string `json:"role" form:"role" binding:"required,oneof=patient therapist"` // 角色：patient 或 therapist
	ActorId string `json:"actorId" form:"actorId" binding:"required"`                   // 操作者标识
}
