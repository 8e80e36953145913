package constants

const (
	CHANNEL_SIZE      = 100   // 通道大小
	FILE_MAX_SIZE     = 50000 // 文件最大大小
	MESSAGE_PAGE_SIZE = 500   // 单次拉取消息条数上限，防止长会话无限增长
	PREVIEW_MAX_LEN   = 80    // 会话列表中最新消息摘要的最大长度
	REDIS_TIMEOUT     = 1     // redis timeout (分钟)
)

// 角色常量
// 每个预约会话有且仅有一个患者和一个咨询师
const (
	RolePatient   = "patient"   // 患者
	RoleTherapist = "therapist" // 咨询师
)

// 预约状态常量
const (
	StatusBooked    = "booked"    // 已预约
	StatusCompleted = "completed" // 已完成
	StatusCancelled = "cancelled" // 已取消
	StatusNoShow    = "no-show"   // 爽约
)

// IsValidRole 检查角色是否合法
func IsValidRole(role string) bool {
	return role == RolePatient || role == RoleTherapist
}

// CounterpartRole 返回对端角色
// 患者的对端是咨询师，咨询师的对端是患者
func CounterpartRole(role string) string {
	if role == RolePatient {
		return RoleTherapist
	}
	return RolePatient
}

// IsValidStatus 检查预约状态是否合法
func IsValidStatus(status string) bool {
	switch status {
	case StatusBooked, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
