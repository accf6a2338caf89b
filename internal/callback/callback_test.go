package callback

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/maa-core/internal/event"
	"github.com/nerrad567/maa-core/internal/taskchain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Message
}

func (p *recordingPublisher) Publish(msg event.Message) {
	p.mu.Lock()
	p.events = append(p.events, msg)
	p.mu.Unlock()
}

func (p *recordingPublisher) Events() []event.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Message(nil), p.events...)
}

func translateRaw(t *testing.T, code int, detail string) Event {
	t.Helper()
	msg, err := Decode(code, detail)
	if err != nil {
		t.Fatalf("Decode(%d) error = %v", code, err)
	}
	ev, err := Translate(msg)
	if err != nil {
		t.Fatalf("Translate(%d) error = %v", code, err)
	}
	return ev
}

func TestTranslate_SubTaskStart(t *testing.T) {
	ev := translateRaw(t, 20001,
		`{"taskchain":"StartUp","details":{"task":"StartToWakeUp","exec_times":1},"uuid":"dev1"}`)

	if ev.Topic() != "StartUp:Start:StartToWakeUp" {
		t.Errorf("Topic() = %q, want StartUp:Start:StartToWakeUp", ev.Topic())
	}
	if ev.UUID != "dev1" {
		t.Errorf("UUID = %q, want dev1", ev.UUID)
	}
	if ev.Chain != "startup" {
		t.Errorf("Chain = %q, want startup", ev.Chain)
	}
	if ev.Payload["task"] != "startup" || ev.Payload["uuid"] != "dev1" || ev.Payload["execTimes"] != 1 {
		t.Errorf("Payload = %v", ev.Payload)
	}
	if ev.Payload["taskchain"] != "StartUp" {
		t.Errorf("Payload missing decoded detail fields: %v", ev.Payload)
	}
}

func TestTranslate_Topics(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		detail string
		topic  string
		family Family
	}{
		{"internal error", 0, `{}`, "0", FamilyGlobal},
		{"init failed", 1, `{"uuid":"d"}`, "1", FamilyGlobal},
		{"all completed", 3, `{"uuid":"d"}`, "3", FamilyGlobal},
		{"uuid getted", 2, `{"what":"UuidGetted","details":{"address":"127.0.0.1:5555","uuid":"abc"},"uuid":"d"}`, "UuidGetted", FamilyGlobal},
		{"chain error", 10000, `{"taskchain":"Fight","uuid":"d"}`, "10000", FamilyTaskChain},
		{"chain start", 10001, `{"taskchain":"Fight","uuid":"d"}`, "10001", FamilyTaskChain},
		{"chain completed", 10002, `{"taskchain":"Roguelike","uuid":"d"}`, "10002", FamilyTaskChain},
		{"subtask error", 20000, `{"taskchain":"Mall","details":{"task":"Shopping"},"uuid":"d"}`, "Mall:Shopping", FamilySubTask},
		{"subtask completed", 20002, `{"taskchain":"Infrast","details":{"task":"InfrastDormDoubleConfirmButton"},"uuid":"d"}`, "Infrast:Completed:InfrastDormDoubleConfirmButton", FamilySubTask},
		{"subtask extra", 20003, `{"taskchain":"Recruit","what":"RecruitTagsDetected","details":{},"uuid":"d"}`, "Recruit:Extra:RecruitTagsDetected", FamilySubTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := translateRaw(t, tt.code, tt.detail)
			if ev.Topic() != tt.topic {
				t.Errorf("Topic() = %q, want %q", ev.Topic(), tt.topic)
			}
			if ev.Family != tt.family {
				t.Errorf("Family = %s, want %s", ev.Family, tt.family)
			}
		})
	}
}

func TestTranslate_GlobalPayloads(t *testing.T) {
	tests := []struct {
		name string
		code int
		want map[string]any
	}{
		{"internal error", 0, map[string]any{"name": 0}},
		{"init failed", 1, map[string]any{"name": 1, "uuid": "d"}},
		{"all completed", 3, map[string]any{"name": 3, "uuid": "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := translateRaw(t, tt.code, `{"uuid":"d"}`)
			if !reflect.DeepEqual(ev.Payload, tt.want) {
				t.Errorf("Payload = %v, want %v", ev.Payload, tt.want)
			}
		})
	}
}

func TestTranslate_ConnectionInfoPayloads(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		wantUUID bool
	}{
		{"uuid getted", `{"what":"UuidGetted","details":{"address":"a:1","uuid":"abc"}}`, true},
		{"connect failed", `{"what":"ConnectFailed","details":{"address":"a:1"}}`, false},
		{"unknown sub-kind", `{"what":"Reconnecting","details":{"address":"a:1"}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := translateRaw(t, 2, tt.detail)
			if ev.Payload["address"] != "a:1" {
				t.Errorf("address = %v, want a:1", ev.Payload["address"])
			}
			_, hasUUID := ev.Payload["uuid"]
			if hasUUID != tt.wantUUID {
				t.Errorf("payload uuid present = %v, want %v (%v)", hasUUID, tt.wantUUID, ev.Payload)
			}
			if len(ev.Payload) != 2 && !tt.wantUUID {
				t.Errorf("payload = %v, want only name and address", ev.Payload)
			}
		})
	}
}

func TestTranslate_TaskChainPayload(t *testing.T) {
	ev := translateRaw(t, 10002, `{"taskchain":"Fight","uuid":"dev1"}`)

	want := map[string]any{"name": 10002, "task": "fight", "uuid": "dev1"}
	if len(ev.Payload) != len(want) {
		t.Fatalf("Payload = %v, want %v", ev.Payload, want)
	}
	for k, v := range want {
		if ev.Payload[k] != v {
			t.Errorf("Payload[%s] = %v, want %v", k, ev.Payload[k], v)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		detail string
		want   error
	}{
		{"unknown code", 42, `{}`, ErrUnknownCode},
		{"malformed json", 20001, `{"taskchain":`, ErrMalformedDetail},
		{"array detail", 3, `[1,2]`, ErrMalformedDetail},
		{"null detail", 3, `null`, ErrMalformedDetail},
		{"missing taskchain", 10001, `{"uuid":"d"}`, ErrMalformedDetail},
		{"missing subtask", 20001, `{"taskchain":"Fight","details":{}}`, ErrMalformedDetail},
		{"missing what", 2, `{"details":{}}`, ErrMalformedDetail},
		{"extra missing what", 20003, `{"taskchain":"Fight"}`, ErrMalformedDetail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.code, tt.detail)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTranslate_UnknownChainToken(t *testing.T) {
	msg, err := Decode(10001, `{"taskchain":"Mystery","uuid":"d"}`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := Translate(msg); !errors.Is(err, taskchain.ErrUnknownToken) {
		t.Errorf("Translate() error = %v, want ErrUnknownToken", err)
	}
}

func TestCode_Family(t *testing.T) {
	tests := []struct {
		code Code
		want Family
	}{
		{InternalError, FamilyGlobal},
		{AllTasksCompleted, FamilyGlobal},
		{TaskChainExtraInfo, FamilyTaskChain},
		{SubTaskError, FamilySubTask},
		{Code(4), FamilyUnknown},
		{Code(10004), FamilyUnknown},
	}
	for _, tt := range tests {
		if got := tt.code.Family(); got != tt.want {
			t.Errorf("Code(%d).Family() = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestDispatcher_HandleAndDrain(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 8, nil)

	if err := d.Handle(10001, `{"taskchain":"Fight","uuid":"d"}`); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := d.Handle(10002, `{"taskchain":"Mystery","uuid":"d"}`); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := d.Handle(99, `{}`); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("Handle(99) error = %v, want ErrUnknownCode", err)
	}

	if n := d.Drain(); n != 2 {
		t.Errorf("Drain() = %d, want 2", n)
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Topic() != "10001" {
		t.Errorf("published = %v, want one 10001 event", events)
	}
	published, dropped := d.Stats()
	if published != 1 || dropped != 2 {
		t.Errorf("Stats() = (%d, %d), want (1, 2)", published, dropped)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{}, 1, nil)

	if err := d.Handle(3, `{"uuid":"d"}`); err != nil {
		t.Fatalf("first Handle() error = %v", err)
	}
	if err := d.Handle(3, `{"uuid":"d"}`); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Handle() error = %v, want ErrQueueFull", err)
	}
}

func TestDispatcher_RunPublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.EngineCallback(10001, `{"taskchain":"Fight","uuid":"d"}`, 0)
	d.EngineCallback(20001, `{"taskchain":"Fight","details":{"task":"StartButton1","exec_times":2},"uuid":"d"}`, 0)
	d.EngineCallback(10002, `{"taskchain":"Fight","uuid":"d"}`, 0)

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.Events()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	events := pub.Events()
	want := []string{"10001", "Fight:Start:StartButton1", "10002"}
	if len(events) != len(want) {
		t.Fatalf("published %d events, want %d", len(events), len(want))
	}
	for i, topic := range want {
		if events[i].Topic() != topic {
			t.Errorf("events[%d].Topic() = %q, want %q", i, events[i].Topic(), topic)
		}
	}
}

type panickingPublisher struct{}

func (panickingPublisher) Publish(event.Message) { panic("subscriber exploded") }

func TestDispatcher_PublishPanicRecovered(t *testing.T) {
	d := NewDispatcher(panickingPublisher{}, 4, nil)
	_ = d.Handle(3, `{"uuid":"d"}`)

	if n := d.Drain(); n != 1 {
		t.Errorf("Drain() = %d, want 1", n)
	}
	if _, dropped := d.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}
