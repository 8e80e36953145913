// Package chatread 实现已读游标的业务逻辑
// 游标存对方消息的雪花 ID，只单调前进，重复标记已读是幂等操作
package chatread

import (
	"time"

	"go.uber.org/zap"

	"thera_chat_server/internal/dao/mysql/repository"
	"thera_chat_server/internal/dto/respond"
	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

const timeLayout = "2006-01-02 15:04:05"

// chatReadService 已读游标业务逻辑实现
type chatReadService struct {
	repos *repository.Repositories
}

// NewChatReadService 构造函数
func NewChatReadService(repos *repository.Repositories) *chatReadService {
	return &chatReadService{repos: repos}
}

// MarkSeen 把 role 的已读游标推进到指定消息
// uptoMessageUuid 为 0 表示"读完对方当前全部消息"，取对方最新一条的雪花 ID；
// 对方还没有消息时是无事发生的空操作
// 游标只前进不回退：重复或更早的标记不改变游标，也不刷新已读时间
func (s *chatReadService) MarkSeen(appointmentId uint, role string, uptoMessageUuid int64) (*respond.ReadSummaryRespond, error) {
	if !constants.IsValidRole(role) {
		return nil, errorx.New(errorx.CodeInvalidParam, "role 必须为 patient 或 therapist")
	}

	targetUuid, err := s.resolveTarget(appointmentId, role, uptoMessageUuid)
	if err != nil {
		return nil, err
	}
	if targetUuid == 0 {
		// 对方还没有消息，未读数必然为 0
		return s.GetUnreadSummary(appointmentId, role)
	}

	if err := s.repos.ChatRead.EnsureRow(appointmentId); err != nil {
		zap.L().Error("初始化已读游标行失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	advanced, err := s.repos.ChatRead.AdvanceCursor(appointmentId, role, targetUuid, time.Now())
	if err != nil {
		zap.L().Error("推进已读游标失败",
			zap.Uint("appointment_id", appointmentId),
			zap.String("role", role),
			zap.Int64("message_uuid", targetUuid),
			zap.Error(err),
		)
		return nil, errorx.ErrServerBusy
	}
	if advanced {
		zap.L().Info("已读游标前进",
			zap.Uint("appointment_id", appointmentId),
			zap.String("role", role),
			zap.Int64("message_uuid", targetUuid),
		)
	}

	return s.GetUnreadSummary(appointmentId, role)
}

// resolveTarget 确定游标的目标雪花 ID
// 指定消息必须属于该预约；发送方不限，游标可以推进到自己消息的 ID
// （未读数只统计对方的消息，越过自己的消息没有副作用）
func (s *chatReadService) resolveTarget(appointmentId uint, role string, uptoMessageUuid int64) (int64, error) {
	counterpart := constants.CounterpartRole(role)

	if uptoMessageUuid == 0 {
		last, err := s.repos.Message.LastByAppointmentIdAndRole(appointmentId, counterpart)
		if err != nil {
			if errorx.IsNotFound(err) {
				return 0, nil
			}
			zap.L().Error("查询对方最新消息失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
			return 0, errorx.ErrServerBusy
		}
		return last.Uuid, nil
	}

	message, err := s.repos.Message.FindByUuid(uptoMessageUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return 0, errorx.New(errorx.CodeNotFound, "消息不存在")
		}
		zap.L().Error("查询消息失败", zap.Int64("message_uuid", uptoMessageUuid), zap.Error(err))
		return 0, errorx.ErrServerBusy
	}
	if message.AppointmentId != appointmentId {
		return 0, errorx.New(errorx.CodeInvalidParam, "消息不属于该预约")
	}
	return message.Uuid, nil
}

// GetUnreadSummary 计算 role 视角的未读摘要
// 未读数 = 对方发送的、雪花 ID 大于自己游标的消息数
func (s *chatReadService) GetUnreadSummary(appointmentId uint, role string) (*respond.ReadSummaryRespond, error) {
	if !constants.IsValidRole(role) {
		return nil, errorx.New(errorx.CodeInvalidParam, "role 必须为 patient 或 therapist")
	}

	summary := &respond.ReadSummaryRespond{AppointmentId: appointmentId}

	var cursor int64
	row, err := s.repos.ChatRead.FindByAppointmentId(appointmentId)
	if err != nil && !errorx.IsNotFound(err) {
		zap.L().Error("查询已读游标失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if err == nil {
		cursor = cursorOf(row, role)
		if seenAt, ok := seenAtOf(row, role); ok {
			summary.LastSeenAt = seenAt.Format(timeLayout)
		}
	}

	count, err := s.repos.Message.CountAfter(appointmentId, constants.CounterpartRole(role), cursor)
	if err != nil {
		zap.L().Error("统计未读消息失败", zap.Uint("appointment_id", appointmentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	summary.UnreadCount = count
	return summary, nil
}

// cursorOf 取指定角色的游标值，NULL 视为 0（全部未读）
func cursorOf(row *model.ChatRead, role string) int64 {
	if role == constants.RolePatient {
		if row.PatientLastReadMessageId.Valid {
			return row.PatientLastReadMessageId.Int64
		}
		return 0
	}
	if row.TherapistLastReadMessageId.Valid {
		return row.TherapistLastReadMessageId.Int64
	}
	return 0
}

// seenAtOf 取指定角色的最近已读时间
func seenAtOf(row *model.ChatRead, role string) (time.Time, bool) {
	if role == constants.RolePatient {
		return row.PatientLastReadAt.Time, row.PatientLastReadAt.Valid
	}
	return row.TherapistLastReadAt.Time, row.TherapistLastReadAt.Valid
}
