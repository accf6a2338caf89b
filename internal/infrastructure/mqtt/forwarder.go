package mqtt

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/maa-core/internal/event"
)

// Publisher is the part of Client used by the Forwarder.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Envelope is the JSON body of a mirrored event.
type Envelope struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Topic     string         `json:"topic"`
	UUID      string         `json:"uuid,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// forwardQueueSize bounds the envelopes waiting for the broker.
const forwardQueueSize = 256

type outbound struct {
	topic   string
	payload []byte
}

// Forwarder mirrors bus messages to MQTT.
//
// The bus runs handlers on the dispatch goroutine, so Forward only encodes
// and queues. A drain goroutine owns the Publisher. When the queue is full
// the envelope is dropped and counted.
type Forwarder struct {
	pub    Publisher
	qos    byte
	logger Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan outbound
	done   chan struct{}

	dropped atomic.Uint64
}

// NewForwarder creates a forwarder publishing with qos and starts its drain
// goroutine. Call Close to stop it.
func NewForwarder(pub Publisher, qos byte) *Forwarder {
	f := &Forwarder{
		pub:   pub,
		qos:   qos,
		now:   time.Now,
		queue: make(chan outbound, forwardQueueSize),
		done:  make(chan struct{}),
	}
	go f.drain()
	return f
}

// SetLogger sets the logger for publish failures. Call before the first
// Forward.
func (f *Forwarder) SetLogger(logger Logger) {
	f.logger = logger
}

// Forward queues msg for publishing. It has the event.Handler signature so it
// can be registered with Bus.SubscribeAll, and never blocks.
func (f *Forwarder) Forward(msg event.Message) {
	env := Envelope{
		ID:        uuid.NewString(),
		Timestamp: f.now().UTC().Format(time.RFC3339Nano),
		Topic:     msg.Topic(),
		UUID:      msg.DeviceUUID(),
		Payload:   msg.Body(),
	}

	payload, err := json.Marshal(env)
	if err != nil {
		f.warn("encoding event envelope", "topic", env.Topic, "error", err)
		return
	}
	out := outbound{topic: Topics{}.Event(env.UUID, env.Topic), payload: payload}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.dropped.Add(1)
		return
	}
	select {
	case f.queue <- out:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many envelopes were discarded because the queue was
// full or the forwarder was closed.
func (f *Forwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Close stops accepting envelopes and waits until the queued ones have been
// handed to the Publisher. Safe to call more than once.
func (f *Forwarder) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
}

func (f *Forwarder) drain() {
	defer close(f.done)
	for out := range f.queue {
		if err := f.pub.Publish(out.topic, out.payload, f.qos, false); err != nil {
			f.warn("mirroring event", "topic", out.topic, "error", err)
		}
	}
}

func (f *Forwarder) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
