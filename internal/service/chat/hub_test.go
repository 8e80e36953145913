package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"thera_chat_server/internal/model"
	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

// fakeWsConn 测试用连接，记录写出的帧
type fakeWsConn struct {
	written [][]byte
	closed  bool
}

func (c *fakeWsConn) ReadMessage() (int, []byte, error) {
	return 0, nil, fmt.Errorf("not used in tests")
}

func (c *fakeWsConn) WriteMessage(messageType int, data []byte) error {
	_ = messageType
	c.written = append(c.written, data)
	return nil
}

func (c *fakeWsConn) Close() error {
	c.closed = true
	return nil
}

// fakeGuard 白名单守卫
type fakeGuard struct {
	allowed map[string]bool
}

func (g *fakeGuard) CheckMembership(appointmentId uint, role, actorId string) (*model.Appointment, error) {
	if g.allowed[fmt.Sprintf("%d/%s/%s", appointmentId, role, actorId)] {
		return &model.Appointment{PatientId: "p1", TherapistId: "t1"}, nil
	}
	return nil, errorx.ErrForbidden
}

func newTestConn(t *testing.T, hub *Hub, guard MembershipGuard) *UserConn {
	t.Helper()
	conn := NewUserConn(&fakeWsConn{}, hub, guard)
	hub.Register(conn)
	return conn
}

func drain(conn *UserConn) [][]byte {
	var out [][]byte
	for {
		select {
		case data := <-conn.Send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func decodeEnvelope(t *testing.T, data []byte) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHubPublishFansOutToSubscribers(t *testing.T) {
	hub := NewHub()
	guard := &fakeGuard{}
	first := newTestConn(t, hub, guard)
	second := newTestConn(t, hub, guard)
	outsider := newTestConn(t, hub, guard)

	channel := AppointmentChannel(1)
	hub.Subscribe(first, channel)
	hub.Subscribe(second, channel)

	if err := hub.Publish(context.Background(), channel, EventMessageNew, map[string]any{"body": "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, conn := range []*UserConn{first, second} {
		got := drain(conn)
		if len(got) != 1 {
			t.Fatalf("subscriber received %d events, want 1", len(got))
		}
		env := decodeEnvelope(t, got[0])
		if env.Channel != channel || env.Event != EventMessageNew {
			t.Fatalf("envelope = %+v", env)
		}
	}
	if got := drain(outsider); len(got) != 0 {
		t.Fatalf("non-subscriber received %d events", len(got))
	}
}

func TestHubUnregisterCleansSubscriptions(t *testing.T) {
	hub := NewHub()
	conn := newTestConn(t, hub, &fakeGuard{})
	channel := AppointmentChannel(2)
	hub.Subscribe(conn, channel)
	if hub.Subscribers(channel) != 1 {
		t.Fatalf("subscribers = %d, want 1", hub.Subscribers(channel))
	}

	hub.Unregister(conn)
	if hub.Subscribers(channel) != 0 {
		t.Fatalf("subscriptions must be removed on unregister")
	}
	// 重复注销是幂等的（不能二次 close Send）
	hub.Unregister(conn)

	// 注销后的发布不会投递
	if err := hub.Publish(context.Background(), channel, EventMessageNew, nil); err != nil {
		t.Fatalf("publish after unregister: %v", err)
	}
}

func TestHubSlowConsumerDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	conn := newTestConn(t, hub, &fakeGuard{})
	channel := AppointmentChannel(3)
	hub.Subscribe(conn, channel)

	// 填满发送缓冲再多发一条：Publish 必须立即返回而不是阻塞
	for i := 0; i < constants.CHANNEL_SIZE+10; i++ {
		if err := hub.Publish(context.Background(), channel, EventMessageNew, i); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if got := len(drain(conn)); got != constants.CHANNEL_SIZE {
		t.Fatalf("buffered events = %d, want %d (excess dropped)", got, constants.CHANNEL_SIZE)
	}
}

func TestJoinSubscribesAndAcks(t *testing.T) {
	hub := NewHub()
	guard := &fakeGuard{allowed: map[string]bool{"7/patient/p1": true}}
	conn := newTestConn(t, hub, guard)

	data, _ := json.Marshal(map[string]any{"appointmentId": 7, "role": "patient", "actorId": "p1"})
	conn.HandleEvent(ClientEvent{Event: ClientEventJoin, Data: data})

	threadChannel := AppointmentChannel(7)
	if hub.Subscribers(threadChannel) != 1 {
		t.Fatalf("join must subscribe the thread channel")
	}
	if hub.Subscribers(ActorChannel("patient", "p1")) != 1 {
		t.Fatalf("join must also subscribe the actor channel")
	}

	got := drain(conn)
	if len(got) != 1 {
		t.Fatalf("expected a single joined ack, got %d frames", len(got))
	}
	env := decodeEnvelope(t, got[0])
	if env.Event != EventJoined || env.Channel != threadChannel {
		t.Fatalf("ack envelope = %+v", env)
	}

	// 订阅生效：线程频道的事件能送达
	if err := hub.Publish(context.Background(), threadChannel, EventMessageNew, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(drain(conn)) != 1 {
		t.Fatalf("joined connection must receive thread events")
	}
}

func TestJoinDeniedIsSilent(t *testing.T) {
	hub := NewHub()
	guard := &fakeGuard{} // 全部拒绝
	conn := newTestConn(t, hub, guard)

	data, _ := json.Marshal(map[string]any{"appointmentId": 7, "role": "patient", "actorId": "intruder"})
	conn.HandleEvent(ClientEvent{Event: ClientEventJoin, Data: data})

	if hub.Subscribers(AppointmentChannel(7)) != 0 {
		t.Fatalf("denied join must not subscribe")
	}
	if got := drain(conn); len(got) != 0 {
		t.Fatalf("denied join must be silent, got %d frames", len(got))
	}
}

func TestJoinActorSubscribesActorChannelOnly(t *testing.T) {
	hub := NewHub()
	conn := newTestConn(t, hub, &fakeGuard{})

	data, _ := json.Marshal(map[string]any{"role": "therapist", "actorId": "t1"})
	conn.HandleEvent(ClientEvent{Event: ClientEventJoinActor, Data: data})

	channel := ActorChannel("therapist", "t1")
	if hub.Subscribers(channel) != 1 {
		t.Fatalf("join:actor must subscribe the actor channel")
	}

	got := drain(conn)
	if len(got) != 1 {
		t.Fatalf("expected joined ack, got %d frames", len(got))
	}
	env := decodeEnvelope(t, got[0])
	if env.Event != EventJoined || env.Channel != channel {
		t.Fatalf("ack envelope = %+v", env)
	}

	// 非法角色静默忽略
	bad, _ := json.Marshal(map[string]any{"role": "admin", "actorId": "x"})
	conn.HandleEvent(ClientEvent{Event: ClientEventJoinActor, Data: bad})
	if hub.Subscribers(ActorChannel("admin", "x")) != 0 {
		t.Fatalf("invalid role must not subscribe")
	}
}
