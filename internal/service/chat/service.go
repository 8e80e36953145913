// Package chat 实现实时聊天的核心服务层
// service.go
// 核心职责：聊天会话控制器
// 所有操作的第一步都是成员守卫，包括只读操作；
// 写操作遵循"先落库、后发布"：持久化成功才发事件，发布失败只记日志
package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"thera_chat_server/internal/dao/mysql/repository"
	myredis "thera_chat_server/internal/dao/redis"
	"thera_chat_server/internal/dto/respond"
	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
	"thera_chat_server/pkg/util/snowflake"
)

const timeLayout = "2006-01-02 15:04:05"

// ReadCursorEngine 已读游标接口
// 控制器只负责守卫和事件发布，游标语义由实现方保证
type ReadCursorEngine interface {
	MarkSeen(appointmentId uint, role string, uptoMessageUuid int64) (*respond.ReadSummaryRespond, error)
	GetUnreadSummary(appointmentId uint, role string) (*respond.ReadSummaryRespond, error)
}

// ChatService 聊天会话控制器
type ChatService struct {
	repos *repository.Repositories
	guard MembershipGuard
	reads ReadCursorEngine
	bus   EventBus
	cache myredis.AsyncCacheService
}

// NewChatService 构造函数
// cache 传 nil 表示不启用缓存，消息列表直接读库
func NewChatService(
	repos *repository.Repositories,
	guard MembershipGuard,
	reads ReadCursorEngine,
	bus EventBus,
	cache myredis.AsyncCacheService,
) *ChatService {
	return &ChatService{
		repos: repos,
		guard: guard,
		reads: reads,
		bus:   bus,
		cache: cache,
	}
}

// messagesCacheKey 消息列表缓存键
func messagesCacheKey(appointmentId uint) string {
	return "appointment_messages_" + strconv.FormatUint(uint64(appointmentId), 10)
}

// ListMessages 获取预约的消息列表
// 按创建时间升序，数量封顶；旁路缓存，未命中回源数据库并异步回填
func (s *ChatService) ListMessages(appointmentId uint, role, actorId string) ([]respond.MessageRespond, error) {
	if _, err := s.guard.CheckMembership(appointmentId, role, actorId); err != nil {
		return nil, err
	}

	key := messagesCacheKey(appointmentId)
	if s.cache != nil {
		cached, err := s.cache.GetOrError(context.Background(), key)
		if err == nil {
			var rsp []respond.MessageRespond
			if err := json.Unmarshal([]byte(cached), &rsp); err == nil {
				return rsp, nil
			}
			zap.L().Warn("消息列表缓存反序列化失败，回源数据库", zap.String("key", key))
		} else if !errorx.IsNotFound(err) {
			zap.L().Warn("读取消息列表缓存失败", zap.String("key", key), zap.Error(err))
		}
	}

	messages, err := s.repos.Message.FindByAppointmentId(appointmentId, constants.MESSAGE_PAGE_SIZE)
	if err != nil {
		zap.L().Error("查询消息列表失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	rsp := make([]respond.MessageRespond, 0, len(messages))
	for i := range messages {
		rsp = append(rsp, toMessageRespond(&messages[i]))
	}

	if s.cache != nil {
		data, err := json.Marshal(rsp)
		if err == nil {
			s.cache.SubmitTask(func() {
				if err := s.cache.Set(context.Background(), key, string(data), constants.REDIS_TIMEOUT*time.Minute); err != nil {
					zap.L().Warn("回填消息列表缓存失败", zap.String("key", key), zap.Error(err))
				}
			})
		}
	}
	return rsp, nil
}

// SendText 发送文本消息
// 守卫 → 校验 → 落库 → 失效缓存 → 发布 message:new
func (s *ChatService) SendText(appointmentId uint, role, actorId, body string) (*respond.MessageRespond, error) {
	appt, err := s.guard.CheckMembership(appointmentId, role, actorId)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}

	message := model.Message{
		Uuid:          snowflake.GenerateID(),
		AppointmentId: appointmentId,
		SenderRole:    role,
		SenderId:      actorId,
		Body:          body,
	}
	return s.persistAndPublish(appt, &message)
}

// SendFile 发送文件消息
// 文件本体已由文件存储落盘，这里只记录访问路径和元信息
func (s *ChatService) SendFile(appointmentId uint, role, actorId, fileUrl, fileName, fileType string) (*respond.MessageRespond, error) {
	appt, err := s.guard.CheckMembership(appointmentId, role, actorId)
	if err != nil {
		return nil, err
	}
	if fileUrl == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "文件路径不能为空")
	}

	message := model.Message{
		Uuid:          snowflake.GenerateID(),
		AppointmentId: appointmentId,
		SenderRole:    role,
		SenderId:      actorId,
		FileUrl:       fileUrl,
		FileName:      fileName,
		FileType:      fileType,
	}
	return s.persistAndPublish(appt, &message)
}

// persistAndPublish 落库后发布消息事件并失效列表缓存
// 落库失败直接返回错误；发布失败不影响结果，事件丢失靠客户端拉取补齐
func (s *ChatService) persistAndPublish(appt *model.Appointment, message *model.Message) (*respond.MessageRespond, error) {
	if err := s.repos.Message.Create(message); err != nil {
		zap.L().Error("保存消息失败",
			zap.Uint("appointment_id", message.AppointmentId),
			zap.Int64("message_uuid", message.Uuid),
			zap.Error(err),
		)
		return nil, errorx.ErrServerBusy
	}

	rsp := toMessageRespond(message)
	// 失效必须在发布之前同步完成：对端收到 message:new 立刻拉列表时，
	// 不能被还没失效的旧缓存挡住刚通知它的那条消息
	s.invalidateMessages(message.AppointmentId)
	s.publishToThread(appt, message.SenderRole, EventMessageNew, rsp)

	zap.L().Info("消息发送成功",
		zap.Uint("appointment_id", message.AppointmentId),
		zap.Int64("message_uuid", message.Uuid),
		zap.String("sender_role", message.SenderRole),
	)
	return &rsp, nil
}

// readUpdatedPayload read:updated 事件载荷
type readUpdatedPayload struct {
	AppointmentId uint   `json:"appointmentId"` // 预约 ID
	Role          string `json:"role"`          // 刚刚标记已读的一方
	UnreadCount   int64  `json:"unreadCount"`   // 该方刷新后的未读数
	LastSeenAt    string `json:"lastSeenAt"`    // 该方最近已读时间
}

// MarkRead 标记已读并广播游标变更
func (s *ChatService) MarkRead(appointmentId uint, role, actorId string, uptoMessageUuid int64) (*respond.ReadSummaryRespond, error) {
	appt, err := s.guard.CheckMembership(appointmentId, role, actorId)
	if err != nil {
		return nil, err
	}

	summary, err := s.reads.MarkSeen(appointmentId, role, uptoMessageUuid)
	if err != nil {
		return nil, err
	}

	s.publishToThread(appt, role, EventReadUpdated, readUpdatedPayload{
		AppointmentId: appointmentId,
		Role:          role,
		UnreadCount:   summary.UnreadCount,
		LastSeenAt:    summary.LastSeenAt,
	})
	return summary, nil
}

// GetReadSummary 获取未读摘要
func (s *ChatService) GetReadSummary(appointmentId uint, role, actorId string) (*respond.ReadSummaryRespond, error) {
	if _, err := s.guard.CheckMembership(appointmentId, role, actorId); err != nil {
		return nil, err
	}
	return s.reads.GetUnreadSummary(appointmentId, role)
}

// publishToThread 双频道发布
// 事件发给线程频道和对端个人频道：对端即使没打开该会话也能收到提醒
// 两次发布相互独立，订阅了两个频道的连接会收到两份，由前端按信封去重
func (s *ChatService) publishToThread(appt *model.Appointment, senderRole, event string, payload any) {
	ctx := context.Background()
	if err := s.bus.Publish(ctx, AppointmentChannel(appt.ID), event, payload); err != nil {
		zap.L().Error("发布线程频道事件失败",
			zap.Uint("appointment_id", appt.ID),
			zap.String("event", event),
			zap.Error(err),
		)
	}

	counterpartRole := constants.CounterpartRole(senderRole)
	counterpartId := appt.PatientId
	if counterpartRole == constants.RoleTherapist {
		counterpartId = appt.TherapistId
	}
	if err := s.bus.Publish(ctx, ActorChannel(counterpartRole, counterpartId), event, payload); err != nil {
		zap.L().Error("发布个人频道事件失败",
			zap.Uint("appointment_id", appt.ID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// invalidateMessages 同步失效消息列表缓存
// 回填是异步的，失效不能异步：事件先于失效到达会让对端读到旧列表
func (s *ChatService) invalidateMessages(appointmentId uint) {
	if s.cache == nil {
		return
	}
	key := messagesCacheKey(appointmentId)
	if err := s.cache.Delete(context.Background(), key); err != nil {
		zap.L().Warn("失效消息列表缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// toMessageRespond 模型到响应的转换
// 雪花 ID 用字符串表示，避免前端 JSON 精度丢失
func toMessageRespond(message *model.Message) respond.MessageRespond {
	return respond.MessageRespond{
		Id:            strconv.FormatInt(message.Uuid, 10),
		AppointmentId: message.AppointmentId,
		SenderRole:    message.SenderRole,
		SenderId:      message.SenderId,
		Body:          message.Body,
		FileUrl:       message.FileUrl,
		FileName:      message.FileName,
		FileType:      message.FileType,
		CreatedAt:     message.CreatedAt.Format(timeLayout),
	}
}
