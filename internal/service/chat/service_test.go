package chat

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"thera_chat_server/internal/dao/mysql/repository"
	"thera_chat_server/internal/model"
	"thera_chat_server/internal/service/appointment"
	"thera_chat_server/internal/service/chatread"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

// recordingBus 记录每次发布，供断言用
type recordingBus struct {
	published []publishedEvent
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

func (b *recordingBus) Publish(ctx context.Context, channel, event string, payload any) error {
	_ = ctx
	b.published = append(b.published, publishedEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (b *recordingBus) Start() {}
func (b *recordingBus) Close() {}

// queuedCache 异步任务只入队不执行的缓存实现
// 用于验证同步路径不依赖后台任务的执行时机
type queuedCache struct {
	store map[string]string
	tasks []func()
}

func newQueuedCache() *queuedCache {
	return &queuedCache{store: make(map[string]string)}
}

func (c *queuedCache) SubmitTask(action func()) {
	c.tasks = append(c.tasks, action)
}

func (c *queuedCache) GetOrError(ctx context.Context, key string) (string, error) {
	_ = ctx
	value, ok := c.store[key]
	if !ok {
		return "", errorx.Newf(errorx.CodeNotFound, "key %s not found", key)
	}
	return value, nil
}

func (c *queuedCache) Set(ctx context.Context, key, value string, timeout time.Duration) error {
	_ = ctx
	_ = timeout
	c.store[key] = value
	return nil
}

func (c *queuedCache) Delete(ctx context.Context, key string) error {
	_ = ctx
	delete(c.store, key)
	return nil
}

var testDBSeq int64

func newTestChatService(t *testing.T) (*ChatService, *repository.Repositories, *recordingBus, uint) {
	t.Helper()
	dsn := fmt.Sprintf("file:chat_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Appointment{}, &model.Message{}, &model.ChatRead{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	repos := repository.NewRepositories(db)

	appt := &model.Appointment{
		PatientId: "p1", PatientName: "张三",
		TherapistId: "t1", TherapistName: "李医生",
		Status: constants.StatusBooked,
	}
	if err := repos.Appointment.Create(appt); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	bus := &recordingBus{}
	guard := appointment.NewAppointmentService(repos)
	reads := chatread.NewChatReadService(repos)
	svc := NewChatService(repos, guard, reads, bus, nil)
	return svc, repos, bus, appt.ID
}

func TestSendTextPersistsAndPublishesDualChannel(t *testing.T) {
	svc, repos, bus, id := newTestChatService(t)

	rsp, err := svc.SendText(id, constants.RolePatient, "p1", "  你好医生  ")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	if rsp.Body != "你好医生" {
		t.Fatalf("body = %q, want trimmed text", rsp.Body)
	}
	if rsp.Id == "" || rsp.Id == "0" {
		t.Fatalf("message id must be a snowflake string, got %q", rsp.Id)
	}

	messages, err := repos.Message.FindByAppointmentId(id, constants.MESSAGE_PAGE_SIZE)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("persisted %d messages, want 1", len(messages))
	}

	if len(bus.published) != 2 {
		t.Fatalf("published %d events, want 2 (thread + counterpart)", len(bus.published))
	}
	if bus.published[0].Channel != AppointmentChannel(id) || bus.published[0].Event != EventMessageNew {
		t.Fatalf("first publish = %+v, want message:new on thread channel", bus.published[0])
	}
	// 患者发送，对端是咨询师的个人频道
	wantActor := ActorChannel(constants.RoleTherapist, "t1")
	if bus.published[1].Channel != wantActor || bus.published[1].Event != EventMessageNew {
		t.Fatalf("second publish = %+v, want message:new on %s", bus.published[1], wantActor)
	}
}

func TestSendTextForbiddenPersistsNothing(t *testing.T) {
	svc, repos, bus, id := newTestChatService(t)

	_, err := svc.SendText(id, constants.RolePatient, "intruder", "偷看")
	if errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("stranger send should be forbidden, got %v", err)
	}

	messages, err := repos.Message.FindByAppointmentId(id, constants.MESSAGE_PAGE_SIZE)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("forbidden send must not persist, found %d messages", len(messages))
	}
	if len(bus.published) != 0 {
		t.Fatalf("forbidden send must not publish, found %d events", len(bus.published))
	}
}

func TestSendTextRejectsEmptyBody(t *testing.T) {
	svc, _, bus, id := newTestChatService(t)

	_, err := svc.SendText(id, constants.RolePatient, "p1", "   ")
	if errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("blank body should be a param error, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("rejected send must not publish")
	}
}

func TestSendFilePublishesWithFilePayload(t *testing.T) {
	svc, _, bus, id := newTestChatService(t)

	rsp, err := svc.SendFile(id, constants.RoleTherapist, "t1",
		"/static/files/report.png", "体检报告.png", "image/png")
	if err != nil {
		t.Fatalf("send file: %v", err)
	}
	if rsp.FileUrl != "/static/files/report.png" || rsp.FileType != "image/png" {
		t.Fatalf("file fields lost: %+v", rsp)
	}
	if rsp.Body != "" {
		t.Fatalf("file message must not carry a body")
	}

	// 咨询师发送，对端是患者的个人频道
	wantActor := ActorChannel(constants.RolePatient, "p1")
	if len(bus.published) != 2 || bus.published[1].Channel != wantActor {
		t.Fatalf("publishes = %+v, want second on %s", bus.published, wantActor)
	}
}

func TestListMessagesAscendingOrder(t *testing.T) {
	svc, repos, _, id := newTestChatService(t)

	base := time.Now().Add(-time.Hour)
	for i, uuid := range []int64{301, 302, 303} {
		msg := &model.Message{
			Uuid:          uuid,
			AppointmentId: id,
			SenderRole:    constants.RoleTherapist,
			SenderId:      "t1",
			Body:          fmt.Sprintf("第%d条", i+1),
		}
		msg.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repos.Message.Create(msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	rsp, err := svc.ListMessages(id, constants.RolePatient, "p1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(rsp) != 3 {
		t.Fatalf("got %d messages, want 3", len(rsp))
	}
	for i, want := range []string{"301", "302", "303"} {
		if rsp[i].Id != want {
			t.Fatalf("message[%d].Id = %s, want %s (ascending order)", i, rsp[i].Id, want)
		}
	}

	// 只读操作同样过守卫
	if _, err := svc.ListMessages(id, constants.RolePatient, "intruder"); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("stranger list should be forbidden, got %v", err)
	}
}

func TestMarkReadPublishesReadUpdated(t *testing.T) {
	svc, repos, bus, id := newTestChatService(t)

	msg := &model.Message{
		Uuid:          401,
		AppointmentId: id,
		SenderRole:    constants.RoleTherapist,
		SenderId:      "t1",
		Body:          "请查收",
	}
	if err := repos.Message.Create(msg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	summary, err := svc.MarkRead(id, constants.RolePatient, "p1", 401)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if summary.UnreadCount != 0 {
		t.Fatalf("unread after reading everything = %d, want 0", summary.UnreadCount)
	}

	if len(bus.published) != 2 {
		t.Fatalf("published %d events, want 2", len(bus.published))
	}
	for _, ev := range bus.published {
		if ev.Event != EventReadUpdated {
			t.Fatalf("event = %s, want read:updated", ev.Event)
		}
		payload, ok := ev.Payload.(readUpdatedPayload)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Payload)
		}
		if payload.Role != constants.RolePatient || payload.AppointmentId != id {
			t.Fatalf("payload = %+v", payload)
		}
	}
	// 患者标记已读，通知的是咨询师的个人频道
	if bus.published[1].Channel != ActorChannel(constants.RoleTherapist, "t1") {
		t.Fatalf("counterpart channel = %s", bus.published[1].Channel)
	}
}

func TestSendThenReadLifecycle(t *testing.T) {
	svc, _, _, id := newTestChatService(t)

	sent, err := svc.SendText(id, constants.RolePatient, "p1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	messages, err := svc.ListMessages(id, constants.RoleTherapist, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "hello" || messages[0].SenderRole != constants.RolePatient {
		t.Fatalf("listing = %+v", messages)
	}

	summary, err := svc.GetReadSummary(id, constants.RoleTherapist, "t1")
	if err != nil {
		t.Fatalf("summary before read: %v", err)
	}
	if summary.UnreadCount != 1 {
		t.Fatalf("therapist unread = %d, want 1", summary.UnreadCount)
	}

	uuid, err := strconv.ParseInt(sent.Id, 10, 64)
	if err != nil {
		t.Fatalf("parse message id: %v", err)
	}
	after, err := svc.MarkRead(id, constants.RoleTherapist, "t1", uuid)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if after.UnreadCount != 0 || after.LastSeenAt == "" {
		t.Fatalf("after mark read = %+v, want unread 0 with lastSeenAt set", after)
	}
}

func TestSendTextInvalidatesCacheBeforePublish(t *testing.T) {
	svc, _, bus, id := newTestChatService(t)
	cache := newQueuedCache()
	svc.cache = cache

	// 预先写入一份旧的空列表缓存
	key := messagesCacheKey(id)
	if err := cache.Set(context.Background(), key, "[]", 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if _, err := svc.SendText(id, constants.RolePatient, "p1", "新消息"); err != nil {
		t.Fatalf("send text: %v", err)
	}
	if len(bus.published) != 2 {
		t.Fatalf("published %d events, want 2", len(bus.published))
	}

	// 事件已发出而后台任务一个都没跑：此刻对端拉列表必须看到新消息，
	// 不能被旧缓存挡住
	messages, err := svc.ListMessages(id, constants.RoleTherapist, "t1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "新消息" {
		t.Fatalf("counterpart listing after notify = %+v, want the new message", messages)
	}
}

func TestGetReadSummaryGuarded(t *testing.T) {
	svc, _, _, id := newTestChatService(t)

	if _, err := svc.GetReadSummary(id, constants.RoleTherapist, "someone-else"); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("stranger summary should be forbidden, got %v", err)
	}
	summary, err := svc.GetReadSummary(id, constants.RoleTherapist, "t1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.UnreadCount != 0 {
		t.Fatalf("fresh thread unread = %d, want 0", summary.UnreadCount)
	}
}
