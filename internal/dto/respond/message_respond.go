// Package respond 定义返回给前端的响应结构
package respond

// MessageRespond 消息响应
// Id 为雪花 ID 的字符串形式，避免 JavaScript 精度丢失
// 文本消息只有 Body，文件消息只有 FileUrl/FileName/FileType
type MessageRespond struct {
	Id            string `json:"id"`                 // 消息雪花 ID
	AppointmentId uint   `json:"appointmentId"`      // 所属预约 ID
	SenderRole    string `json:"senderRole"`         // 发送者角色
	SenderId      string `json:"senderId"`           // 发送者标识
	Body          string `json:"body,omitempty"`     // 文本内容
	FileUrl       string `json:"fileUrl,omitempty"`  // 文件访问路径
	FileName      string `json:"fileName,omitempty"` // 原始文件名
	FileType      string `json:"fileType,omitempty"` // 文件 MIME 类型
	CreatedAt     string `json:"createdAt"`          // 创建时间
}
