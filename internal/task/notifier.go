package task

import "github.com/nerrad567/maa-core/internal/event"

// Publisher is the event sink used by BusNotifier.
type Publisher interface {
	Publish(msg event.Message)
}

// BusNotifier publishes warnings as ui:message events.
type BusNotifier struct {
	publisher Publisher
}

// NewBusNotifier creates a notifier publishing to p.
func NewBusNotifier(p Publisher) *BusNotifier {
	return &BusNotifier{publisher: p}
}

// Warn publishes a warning that stays open until the user dismisses it.
func (n *BusNotifier) Warn(uuid, message string) {
	n.publisher.Publish(event.Notice{
		UUID:     uuid,
		Message:  message,
		Type:     "warning",
		Duration: 0,
		Closable: true,
	})
}
