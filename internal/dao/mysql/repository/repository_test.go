package repository

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

var testDBSeq int64

func openTestRepos(t *testing.T) *Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Appointment{}, &model.Message{}, &model.ChatRead{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewRepositories(db)
}

func mustCreateAppointment(t *testing.T, repos *Repositories, patientId, therapistId string) *model.Appointment {
	t.Helper()
	appt := &model.Appointment{
		PatientId:     patientId,
		PatientName:   "患者" + patientId,
		TherapistId:   therapistId,
		TherapistName: "咨询师" + therapistId,
		Status:        constants.StatusBooked,
	}
	if err := repos.Appointment.Create(appt); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestAppointmentCreateInitializesCursorRow(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")

	row, err := repos.ChatRead.FindByAppointmentId(appt.ID)
	if err != nil {
		t.Fatalf("expected cursor row to exist: %v", err)
	}
	if row.PatientLastReadMessageId.Valid || row.TherapistLastReadMessageId.Valid {
		t.Fatalf("fresh cursor row should have NULL cursors")
	}
}

func TestAppointmentUpdateStatus(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")

	if err := repos.Appointment.UpdateStatus(appt.ID, constants.StatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := repos.Appointment.FindById(appt.ID)
	if err != nil {
		t.Fatalf("find appointment: %v", err)
	}
	if got.Status != constants.StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, constants.StatusCompleted)
	}

	// 重复设置同一状态：没有行被改动，但记录存在，不算 NotFound
	if err := repos.Appointment.UpdateStatus(appt.ID, constants.StatusCompleted); err != nil {
		t.Fatalf("same-status update must succeed: %v", err)
	}

	err = repos.Appointment.UpdateStatus(appt.ID+100, constants.StatusCancelled)
	if !errorx.IsNotFound(err) {
		t.Fatalf("updating missing appointment should be NotFound, got %v", err)
	}
}

func TestMessageCountAfter(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")

	for i, uuid := range []int64{101, 102, 103} {
		msg := &model.Message{
			Uuid:          uuid,
			AppointmentId: appt.ID,
			SenderRole:    constants.RoleTherapist,
			SenderId:      "t1",
			Body:          fmt.Sprintf("第%d条", i+1),
		}
		if err := repos.Message.Create(msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	count, err := repos.Message.CountAfter(appt.ID, constants.RoleTherapist, 0)
	if err != nil {
		t.Fatalf("count after 0: %v", err)
	}
	if count != 3 {
		t.Fatalf("count after 0 = %d, want 3", count)
	}

	count, err = repos.Message.CountAfter(appt.ID, constants.RoleTherapist, 102)
	if err != nil {
		t.Fatalf("count after 102: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after 102 = %d, want 1", count)
	}

	// 对方角色维度隔离：患者没发过消息
	count, err = repos.Message.CountAfter(appt.ID, constants.RolePatient, 0)
	if err != nil {
		t.Fatalf("count patient: %v", err)
	}
	if count != 0 {
		t.Fatalf("patient count = %d, want 0", count)
	}
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")
	now := time.Now()

	advanced, err := repos.ChatRead.AdvanceCursor(appt.ID, constants.RolePatient, 200, now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !advanced {
		t.Fatalf("first advance from NULL should report progress")
	}

	// 重复同一个目标：幂等，无行受影响
	advanced, err = repos.ChatRead.AdvanceCursor(appt.ID, constants.RolePatient, 200, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("repeat advance: %v", err)
	}
	if advanced {
		t.Fatalf("repeating the same cursor must be a no-op")
	}

	// 回退：更小的目标不生效
	advanced, err = repos.ChatRead.AdvanceCursor(appt.ID, constants.RolePatient, 150, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("backward advance: %v", err)
	}
	if advanced {
		t.Fatalf("cursor must never move backwards")
	}

	row, err := repos.ChatRead.FindByAppointmentId(appt.ID)
	if err != nil {
		t.Fatalf("find cursor row: %v", err)
	}
	if !row.PatientLastReadMessageId.Valid || row.PatientLastReadMessageId.Int64 != 200 {
		t.Fatalf("patient cursor = %+v, want 200", row.PatientLastReadMessageId)
	}
	// 对端游标不受影响
	if row.TherapistLastReadMessageId.Valid {
		t.Fatalf("therapist cursor must stay NULL")
	}
}

func TestAdvanceCursorPerRole(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")

	if _, err := repos.ChatRead.AdvanceCursor(appt.ID, constants.RolePatient, 300, time.Now()); err != nil {
		t.Fatalf("advance patient: %v", err)
	}
	if _, err := repos.ChatRead.AdvanceCursor(appt.ID, constants.RoleTherapist, 250, time.Now()); err != nil {
		t.Fatalf("advance therapist: %v", err)
	}

	row, err := repos.ChatRead.FindByAppointmentId(appt.ID)
	if err != nil {
		t.Fatalf("find cursor row: %v", err)
	}
	if row.PatientLastReadMessageId.Int64 != 300 {
		t.Fatalf("patient cursor = %d, want 300", row.PatientLastReadMessageId.Int64)
	}
	if row.TherapistLastReadMessageId.Int64 != 250 {
		t.Fatalf("therapist cursor = %d, want 250", row.TherapistLastReadMessageId.Int64)
	}
}

func TestEnsureRowIdempotent(t *testing.T) {
	repos := openTestRepos(t)
	appt := mustCreateAppointment(t, repos, "p1", "t1")

	// 行已在预约创建时初始化，重复 EnsureRow 不应报唯一键冲突
	if err := repos.ChatRead.EnsureRow(appt.ID); err != nil {
		t.Fatalf("ensure row: %v", err)
	}
	if err := repos.ChatRead.EnsureRow(appt.ID); err != nil {
		t.Fatalf("ensure row twice: %v", err)
	}
}
