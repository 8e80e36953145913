// Package appointment 实现预约线程的业务逻辑
// 包含成员守卫：所有聊天操作在读写前都必须通过这里的成员校验
package appointment

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"thera_chat_server/internal/config"
	"thera_chat_server/internal/dao/mysql/repository"
	"thera_chat_server/internal/dto/request"
	"thera_chat_server/internal/dto/respond"
	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

const timeLayout = "2006-01-02 15:04:05"

// appointmentService 预约业务逻辑实现
type appointmentService struct {
	repos *repository.Repositories
}

// NewAppointmentService 构造函数
func NewAppointmentService(repos *repository.Repositories) *appointmentService {
	return &appointmentService{repos: repos}
}

// CheckMembership 成员守卫
// 纯读校验，无副作用；每个聊天操作（包括只读操作和频道订阅）的第一步都是它
// 拒绝时统一返回 ErrForbidden，不区分"预约存在但无权"和其他细节
func (s *appointmentService) CheckMembership(appointmentId uint, role, actorId string) (*model.Appointment, error) {
	if !constants.IsValidRole(role) {
		return nil, errorx.New(errorx.CodeInvalidParam, "role 必须为 patient 或 therapist")
	}
	if strings.TrimSpace(actorId) == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "actorId 不能为空")
	}

	appt, err := s.repos.Appointment.FindById(appointmentId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "预约不存在")
		}
		zap.L().Error("查询预约失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	allowed := (role == constants.RolePatient && appt.PatientId == actorId) ||
		(role == constants.RoleTherapist && appt.TherapistId == actorId)
	if !allowed {
		return nil, errorx.ErrForbidden
	}
	return appt, nil
}

// CreateAppointment 创建预约线程
// conversation 模式下同一对参与者只保留一个线程，重复创建直接返回已有线程
func (s *appointmentService) CreateAppointment(req request.CreateAppointmentRequest) (uint, bool, error) {
	if config.GetConfig().MainConfig.ThreadMode == "conversation" {
		existing, err := s.repos.Appointment.FindByParticipants(req.PatientId, req.TherapistId)
		if err == nil {
			zap.L().Info("线程已存在，返回已有线程",
				zap.String("patient_id", req.PatientId),
				zap.String("therapist_id", req.TherapistId),
				zap.Uint("appointment_id", existing.ID),
			)
			return existing.ID, true, nil
		}
		if !errorx.IsNotFound(err) {
			zap.L().Error("查询已有线程失败", zap.Error(err))
			return 0, false, errorx.ErrServerBusy
		}
	}

	appt := model.Appointment{
		PatientId:     req.PatientId,
		PatientName:   strings.TrimSpace(req.PatientName),
		TherapistId:   req.TherapistId,
		TherapistName: strings.TrimSpace(req.TherapistName),
		Status:        constants.StatusBooked,
	}
	if req.StartsAt != "" {
		startsAt, err := time.ParseInLocation(timeLayout, req.StartsAt, time.Local)
		if err != nil {
			return 0, false, errorx.New(errorx.CodeInvalidParam, "startsAt 格式应为 2006-01-02 15:04:05")
		}
		appt.StartsAt = sql.NullTime{Time: startsAt, Valid: true}
	}

	if err := s.repos.Appointment.Create(&appt); err != nil {
		zap.L().Error("创建预约失败",
			zap.String("patient_id", req.PatientId),
			zap.String("therapist_id", req.TherapistId),
			zap.Error(err),
		)
		return 0, false, errorx.ErrServerBusy
	}

	zap.L().Info("预约创建成功",
		zap.Uint("appointment_id", appt.ID),
		zap.String("patient_id", req.PatientId),
		zap.String("therapist_id", req.TherapistId),
	)
	return appt.ID, false, nil
}

// UpdateStatus 预约状态流转
func (s *appointmentService) UpdateStatus(appointmentId uint, status string) error {
	if !constants.IsValidStatus(status) {
		return errorx.Newf(errorx.CodeInvalidParam, "非法的预约状态: %s", status)
	}
	if err := s.repos.Appointment.UpdateStatus(appointmentId, status); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "预约不存在")
		}
		zap.L().Error("更新预约状态失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}

// ListForActor 获取参与者的预约列表
// 每条带最新消息摘要、最新消息时间和未读数
// 排序规则：最新消息时间倒序，没有消息的线程按创建时间参与排序
func (s *appointmentService) ListForActor(role, actorId string) ([]respond.AppointmentListRespond, error) {
	if !constants.IsValidRole(role) {
		return nil, errorx.New(errorx.CodeInvalidParam, "role 必须为 patient 或 therapist")
	}

	appointments, err := s.repos.Appointment.FindForActor(role, actorId)
	if err != nil {
		zap.L().Error("查询预约列表失败", zap.String("role", role), zap.String("actor_id", actorId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	counterpart := constants.CounterpartRole(role)
	rows := make([]respond.AppointmentListRespond, 0, len(appointments))
	// activityAt 记录排序用的活跃时间（最新消息时间，退化为线程创建时间）
	activityAt := make(map[uint]time.Time, len(appointments))

	for _, appt := range appointments {
		row := respond.AppointmentListRespond{
			AppointmentId: appt.ID,
			PatientId:     appt.PatientId,
			PatientName:   appt.PatientName,
			TherapistId:   appt.TherapistId,
			TherapistName: appt.TherapistName,
			Status:        appt.Status,
		}
		if appt.StartsAt.Valid {
			row.StartsAt = appt.StartsAt.Time.Format(timeLayout)
		}
		activityAt[appt.ID] = appt.CreatedAt

		last, err := s.repos.Message.LastByAppointmentId(appt.ID)
		if err != nil && !errorx.IsNotFound(err) {
			zap.L().Error("查询最新消息失败", zap.Uint("appointment_id", appt.ID), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		if err == nil {
			row.LastMessage = lastMessagePreview(last)
			row.LastMessageAt = last.CreatedAt.Format(timeLayout)
			activityAt[appt.ID] = last.CreatedAt
		}

		unread, err := s.countUnread(appt.ID, role, counterpart)
		if err != nil {
			return nil, err
		}
		row.UnreadCount = unread

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return activityAt[rows[i].AppointmentId].After(activityAt[rows[j].AppointmentId])
	})
	return rows, nil
}

// countUnread 统计 role 视角的未读数：对方发送的、雪花 ID 大于自己游标的消息
func (s *appointmentService) countUnread(appointmentId uint, role, counterpart string) (int64, error) {
	var cursor int64
	row, err := s.repos.ChatRead.FindByAppointmentId(appointmentId)
	if err != nil && !errorx.IsNotFound(err) {
		zap.L().Error("查询已读游标失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return 0, errorx.ErrServerBusy
	}
	if err == nil {
		if role == constants.RolePatient && row.PatientLastReadMessageId.Valid {
			cursor = row.PatientLastReadMessageId.Int64
		}
		if role == constants.RoleTherapist && row.TherapistLastReadMessageId.Valid {
			cursor = row.TherapistLastReadMessageId.Int64
		}
	}

	count, err := s.repos.Message.CountAfter(appointmentId, counterpart, cursor)
	if err != nil {
		zap.L().Error("统计未读消息失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return 0, errorx.ErrServerBusy
	}
	return count, nil
}

// lastMessagePreview 生成会话列表的最新消息摘要
// 文本消息截断展示，图片和其他附件用占位符
func lastMessagePreview(message *model.Message) string {
	if message == nil {
		return ""
	}
	if message.Body != "" {
		runes := []rune(message.Body)
		if len(runes) > constants.PREVIEW_MAX_LEN {
			return string(runes[:constants.PREVIEW_MAX_LEN])
		}
		return message.Body
	}
	if message.IsFile() && strings.HasPrefix(message.FileType, "image/") {
		return "[Image]"
	}
	if message.IsFile() {
		return "[Attachment]"
	}
	return ""
}
