package task

import (
	"strconv"
	"sync"

	"github.com/nerrad567/maa-core/internal/callback"
	"github.com/nerrad567/maa-core/internal/event"
)

// chainStatus maps task chain message codes to descriptor statuses.
var chainStatus = map[callback.Code]Status{
	callback.TaskChainError:     StatusException,
	callback.TaskChainStart:     StatusProcessing,
	callback.TaskChainCompleted: StatusSuccess,
}

// Subscriber is the part of the event bus the Synchronizer needs.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) string
	Unsubscribe(id string) bool
}

// Synchronizer applies task chain events to the store.
type Synchronizer struct {
	store *Store
	bus   Subscriber

	mu  sync.Mutex
	ids []string
}

// NewSynchronizer creates a synchronizer for store fed by bus.
func NewSynchronizer(store *Store, bus Subscriber) *Synchronizer {
	return &Synchronizer{store: store, bus: bus}
}

// Start subscribes to the task chain topics.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) > 0 {
		return
	}
	for code := range chainStatus {
		s.ids = append(s.ids, s.bus.Subscribe(strconv.Itoa(int(code)), s.handle))
	}
}

// Stop removes the subscriptions.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.ids {
		s.bus.Unsubscribe(id)
	}
	s.ids = nil
}

func (s *Synchronizer) handle(msg event.Message) {
	ev, ok := msg.(callback.Event)
	if !ok {
		return
	}
	status, ok := chainStatus[ev.Code]
	if !ok {
		return
	}

	progress := s.store.GetProgress(ev.UUID, ev.Chain)
	switch status {
	case StatusSuccess:
		progress = 100
	case StatusProcessing:
		progress = 0
	}
	s.store.UpdateStatus(ev.UUID, ev.Chain, status, progress)
}
