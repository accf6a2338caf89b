package callback

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/maa-core/internal/event"
)

// DefaultQueueSize is used when NewDispatcher is given a non-positive size.
const DefaultQueueSize = 256

// Publisher receives translated events.
type Publisher interface {
	Publish(msg event.Message)
}

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher decouples the engine thread from event consumers.
//
// Handle is called on the engine thread and only decodes and enqueues.
// Run, on its own goroutine, translates and publishes in arrival order.
type Dispatcher struct {
	queue     chan Message
	publisher Publisher
	logger    Logger

	dropped   atomic.Uint64
	published atomic.Uint64
}

// NewDispatcher creates a dispatcher publishing to p.
func NewDispatcher(p Publisher, queueSize int, logger Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		queue:     make(chan Message, queueSize),
		publisher: p,
		logger:    logger,
	}
}

// EngineCallback matches engine.Callback and is registered with
// CreateWithCallback.
func (d *Dispatcher) EngineCallback(code int, detail string, _ uintptr) {
	_ = d.Handle(code, detail)
}

// Handle decodes one engine message and queues it. It never blocks; a full
// queue drops the message. Errors are logged before being returned.
func (d *Dispatcher) Handle(code int, detail string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMalformedDetail, r)
			d.logger.Error("callback decode panic recovered", "code", code, "panic", r)
		}
	}()

	msg, err := Decode(code, detail)
	if err != nil {
		d.dropped.Add(1)
		d.logger.Warn("dropping engine callback", "code", code, "error", err)
		return err
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("dropping engine callback", "code", code, "error", ErrQueueFull)
		return ErrQueueFull
	}
}

// Run translates and publishes queued messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			d.process(msg)
		}
	}
}

// Drain processes every message currently queued and returns how many were
// taken off the queue.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		select {
		case msg := <-d.queue:
			d.process(msg)
			n++
		default:
			return n
		}
	}
}

func (d *Dispatcher) process(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
			d.logger.Error("callback translation panic recovered",
				"code", msg.MessageCode(), "panic", r)
		}
	}()

	ev, err := Translate(msg)
	if err != nil {
		d.dropped.Add(1)
		d.logger.Warn("dropping engine callback", "code", msg.MessageCode(), "error", err)
		return
	}

	d.logger.Debug("engine event", "topic", ev.Name, "uuid", ev.UUID)
	d.publisher.Publish(ev)
	d.published.Add(1)
}

// Stats returns the counts of published and dropped messages.
func (d *Dispatcher) Stats() (published, dropped uint64) {
	return d.published.Load(), d.dropped.Load()
}
