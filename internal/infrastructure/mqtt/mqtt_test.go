package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/maa-core/internal/event"
	"github.com/nerrad567/maa-core/internal/infrastructure/config"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"event", topics.Event("dev1", "StartUp:Start:StartToWakeUp"), "maa/event/dev1/StartUp:Start:StartToWakeUp"},
		{"event without device", topics.Event("", "ui:message"), "maa/event/_/ui:message"},
		{"event sanitised", topics.Event("a/b", "x#y+z"), "maa/event/a_b/x_y_z"},
		{"command", topics.Command("dev1", "start"), "maa/command/dev1/start"},
		{"system status", topics.SystemStatus(), "maa/system/status"},
		{"all events", topics.AllEvents(), "maa/event/+/+"},
		{"all commands", topics.AllCommands(), "maa/command/+/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	uuid, action, err := Topics{}.ParseCommand("maa/command/dev1/stop")
	if err != nil || uuid != "dev1" || action != "stop" {
		t.Errorf("ParseCommand() = %q, %q, %v", uuid, action, err)
	}

	for _, bad := range []string{"", "maa/command/dev1", "maa/event/dev1/stop", "other/command/dev1/stop", "maa/command//stop"} {
		if _, _, err := (Topics{}).ParseCommand(bad); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidTopic", bad, err)
		}
	}
}

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.msgs = append(p.msgs, published{topic, payload, qos, retained})
	return p.err
}

type testMessage struct{}

func (testMessage) Topic() string        { return "10002" }
func (testMessage) DeviceUUID() string   { return "dev1" }
func (testMessage) Body() map[string]any { return map[string]any{"name": 10002, "task": "fight"} }

func TestForwarder(t *testing.T) {
	pub := &fakePublisher{}
	fwd := NewForwarder(pub, 1)
	fwd.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	fwd.Forward(testMessage{})
	fwd.Close()

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.topic != "maa/event/dev1/10002" || msg.qos != 1 || msg.retained {
		t.Errorf("published to %q qos %d retained %v", msg.topic, msg.qos, msg.retained)
	}

	var env Envelope
	if err := json.Unmarshal(msg.payload, &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if env.ID == "" || env.Topic != "10002" || env.UUID != "dev1" || env.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Payload["task"] != "fight" {
		t.Errorf("payload = %v", env.Payload)
	}
}

type recordingLogger struct{ warns int }

func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any)  { l.warns++ }

func TestForwarder_PublishErrorLogged(t *testing.T) {
	pub := &fakePublisher{err: ErrNotConnected}
	logger := &recordingLogger{}
	fwd := NewForwarder(pub, 0)
	fwd.SetLogger(logger)

	fwd.Forward(event.Notice{Message: "hi", Type: "warning"})
	fwd.Close()

	if logger.warns != 1 {
		t.Errorf("warns = %d, want 1", logger.warns)
	}
	if pub.msgs[0].topic != "maa/event/_/ui:message" {
		t.Errorf("topic = %q", pub.msgs[0].topic)
	}
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	count int
}

func (p *blockingPublisher) Publish(string, []byte, byte, bool) error {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.release
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	return nil
}

func TestForwarder_SlowBrokerDoesNotBlockForward(t *testing.T) {
	pub := &blockingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	fwd := NewForwarder(pub, 1)

	// One envelope is held by the publisher, the queue takes the next
	// forwardQueueSize and the rest are dropped.
	const extra = 10
	total := forwardQueueSize + 1 + extra

	done := make(chan struct{})
	go func() {
		fwd.Forward(testMessage{})
		<-pub.entered
		for i := 1; i < total; i++ {
			fwd.Forward(testMessage{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward blocked on a stalled publisher")
	}
	if got := fwd.Dropped(); got != extra {
		t.Errorf("Dropped() = %d, want %d", got, extra)
	}

	close(pub.release)
	fwd.Close()
	if pub.count != forwardQueueSize+1 {
		t.Errorf("published %d, want %d", pub.count, forwardQueueSize+1)
	}

	fwd.Forward(testMessage{})
	if got := fwd.Dropped(); got != extra+1 {
		t.Errorf("Dropped() after Close = %d, want %d", got, extra+1)
	}
	fwd.Close()
}

type fakeController struct {
	started, stopped []string
}

func (c *fakeController) Start(_ context.Context, uuid string) error {
	c.started = append(c.started, uuid)
	return nil
}

func (c *fakeController) Stop(_ context.Context, uuid string) error {
	c.stopped = append(c.stopped, uuid)
	return nil
}

func TestCommandHandler(t *testing.T) {
	ctrl := &fakeController{}
	handle := CommandHandler(context.Background(), ctrl)

	if err := handle("maa/command/dev1/start", nil); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if err := handle("maa/command/dev2/stop", []byte(`{}`)); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if err := handle("maa/command/dev1/explode", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown action error = %v, want ErrUnknownCommand", err)
	}
	if err := handle("maa/event/dev1/start", nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("bad topic error = %v, want ErrInvalidTopic", err)
	}

	if len(ctrl.started) != 1 || ctrl.started[0] != "dev1" || len(ctrl.stopped) != 1 || ctrl.stopped[0] != "dev2" {
		t.Errorf("started %v stopped %v", ctrl.started, ctrl.stopped)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker:    config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true, ClientID: "maa-core"},
		Auth:      config.MQTTAuthConfig{Username: "maa", Password: "secret"},
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 2, MaxDelay: 30},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "maa-core" || opts.Username != "maa" {
		t.Errorf("ClientID %q Username %q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS not configured")
	}
	if opts.MaxReconnectInterval != 30*time.Second {
		t.Errorf("MaxReconnectInterval = %v", opts.MaxReconnectInterval)
	}

	configureLWT(opts, "maa-core")
	if !opts.WillEnabled || opts.WillTopic != "maa/system/status" || !opts.WillRetained {
		t.Errorf("LWT = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var got statusPayload
	if err := json.Unmarshal(buildStatusPayload("maa-core", "offline", "graceful_shutdown"), &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Status != "offline" || got.ClientID != "maa-core" || got.Reason != "graceful_shutdown" || got.Timestamp == "" {
		t.Errorf("payload = %+v", got)
	}
}

func TestClient_CloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if (&Client{}).IsConnected() {
		t.Error("IsConnected() on zero client = true")
	}
}

type fakeToken struct {
	done bool
	err  error
}

func (t fakeToken) Wait() bool                     { return t.done }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t fakeToken) Done() <-chan struct{}          { return nil }
func (t fakeToken) Error() error                   { return t.err }

func TestAwait(t *testing.T) {
	tests := []struct {
		name    string
		token   fakeToken
		wantErr bool
	}{
		{"acknowledged", fakeToken{done: true}, false},
		{"timeout", fakeToken{done: false}, true},
		{"broker error", fakeToken{done: true, err: errors.New("not authorized")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := await(tt.token, time.Millisecond, ErrPublishFailed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("await() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrPublishFailed) {
				t.Errorf("await() error = %v, want wrapped ErrPublishFailed", err)
			}
		})
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type countingLogger struct{ warns, errors int }

func (l *countingLogger) Warn(string, ...any)  { l.warns++ }
func (l *countingLogger) Error(string, ...any) { l.errors++ }

func TestDeliver(t *testing.T) {
	log := &countingLogger{}
	c := &Client{}
	c.SetLogger(log)
	msg := fakeMessage{topic: "maa/command/dev1/start"}

	c.deliver(func(string, []byte) error { return ErrUnknownCommand })(nil, msg)
	c.deliver(func(string, []byte) error { panic("boom") })(nil, msg)

	var gotTopic string
	c.deliver(func(topic string, _ []byte) error { gotTopic = topic; return nil })(nil, msg)

	if log.warns != 1 || log.errors != 1 {
		t.Errorf("warns = %d, errors = %d, want 1 each", log.warns, log.errors)
	}
	if gotTopic != msg.topic {
		t.Errorf("handler topic = %q", gotTopic)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) = %v, want context.Canceled", err)
	}
}
