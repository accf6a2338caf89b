package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier shows a dismissible, non-blocking warning to the user.
type Notifier interface {
	Warn(uuid, message string)
}

// Run is a finished task execution.
type Run struct {
	UUID      string
	Kind      string
	Title     string
	Status    Status
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// RunRecorder receives finished runs. It must not block.
type RunRecorder interface {
	RecordRun(run Run)
}

// Store holds the task list of every device.
type Store struct {
	mu    sync.RWMutex
	lists map[string][]Descriptor

	repo     Repository
	notifier Notifier
	recorder RunRecorder
	logger   Logger
	now      func() time.Time
}

// NewStore creates a store. repo may be nil when lists are not persisted.
func NewStore(repo Repository) *Store {
	return &Store{
		lists:  make(map[string][]Descriptor),
		repo:   repo,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetNotifier sets the notifier used for drift repair warnings.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecorder sets the recorder for finished runs.
func (s *Store) SetRecorder(r RunRecorder) {
	s.recorder = r
}

// Initialize replaces the device's list with the canonical default list.
func (s *Store) Initialize(uuid string) {
	s.mu.Lock()
	s.lists[uuid] = DefaultList()
	s.mu.Unlock()
	s.logger.Debug("task list initialized", "uuid", uuid)
}

// Replace stores a deep copy of list as the device's list.
func (s *Store) Replace(uuid string, list []Descriptor) {
	cpy := copyList(list)
	if cpy == nil {
		cpy = []Descriptor{}
	}
	s.mu.Lock()
	s.lists[uuid] = cpy
	s.mu.Unlock()
}

// List returns a deep copy of the device's list.
func (s *Store) List(uuid string) ([]Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[uuid]
	if !ok {
		return nil, false
	}
	return copyList(list), true
}

// Has reports whether the device has a list.
func (s *Store) Has(uuid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lists[uuid]
	return ok
}

// Remove drops the device's list from memory.
func (s *Store) Remove(uuid string) {
	s.mu.Lock()
	delete(s.lists, uuid)
	s.mu.Unlock()
}

// Devices returns the uuids with a list, sorted.
func (s *Store) Devices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uuids := make([]string, 0, len(s.lists))
	for uuid := range s.lists {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

// UpdateStatus moves the first descriptor of kind to status and sets its
// progress. Nothing changes when the descriptor is absent or already has
// that status. Timestamps follow the status:
//
//	waiting              startTime = endTime = 0
//	processing           startTime = now
//	success, exception   endTime = now
//
// The result reports whether a transition was applied.
func (s *Store) UpdateStatus(uuid, kind string, status Status, progress int) bool {
	var finished *Run

	s.mu.Lock()
	list := s.lists[uuid]
	i := indexOfKind(list, kind)
	if i < 0 || list[i].Status == status {
		s.mu.Unlock()
		return false
	}

	d := &list[i]
	applyStatus(d, status, s.now())
	d.Progress = progress
	if (status == StatusSuccess || status == StatusException) && d.StartTime > 0 {
		finished = &Run{
			UUID:      uuid,
			Kind:      d.Name,
			Title:     d.Title,
			Status:    status,
			StartTime: time.UnixMilli(d.StartTime),
			EndTime:   time.UnixMilli(d.EndTime),
		}
	}
	s.mu.Unlock()

	s.logger.Debug("task status updated", "uuid", uuid, "kind", kind, "status", status)

	if finished != nil && s.recorder != nil {
		s.recorder.RecordRun(*finished)
	}
	return true
}

// Reorder moves the descriptor at from to position to, keeping the relative
// order of the others. to is clamped to the list bounds.
func (s *Store) Reorder(uuid string, from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[uuid]
	if from < 0 || from >= len(list) {
		return false
	}

	item := list[from]
	rest := append(list[:from:from], list[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(rest) {
		to = len(rest)
	}

	out := make([]Descriptor, 0, len(list))
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	s.lists[uuid] = out
	return true
}

// Copy inserts a deep copy of the descriptor at index immediately before it.
// The copy is unassigned in the engine.
func (s *Store) Copy(uuid string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[uuid]
	if index < 0 || index >= len(list) {
		return false
	}

	dup := list[index].DeepCopy()
	dup.TaskID = UnassignedTaskID

	out := make([]Descriptor, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, dup)
	out = append(out, list[index:]...)
	s.lists[uuid] = out
	return true
}

// Delete removes the descriptor at index, unless it is the last descriptor
// of its kind.
func (s *Store) Delete(uuid string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[uuid]
	if index < 0 || index >= len(list) {
		return false
	}

	count := 0
	for _, d := range list {
		if d.Name == list[index].Name {
			count++
		}
	}
	if count < 2 {
		return false
	}

	out := make([]Descriptor, 0, len(list)-1)
	out = append(out, list[:index]...)
	out = append(out, list[index+1:]...)
	s.lists[uuid] = out
	return true
}

// StopAll marks every non-idle descriptor as stopped.
func (s *Store) StopAll(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[uuid]
	for i := range list {
		if list[i].Status != StatusIdle {
			list[i].Status = StatusStopped
		}
	}
}

// FixDrift resets every configuration whose key set differs from its kind's
// template to the template default, warning the user once per repaired
// descriptor. Descriptors of unknown kinds are left alone. It returns the
// number of repaired descriptors.
func (s *Store) FixDrift(uuid string) int {
	var repaired []string

	s.mu.Lock()
	list := s.lists[uuid]
	for i := range list {
		d := &list[i]
		tmpl, ok := Template(d.Name)
		if !ok {
			s.logger.Warn("task of unknown kind", "uuid", uuid, "kind", d.Name)
			continue
		}
		if sameKeys(d.Configurations, tmpl.Configurations) {
			continue
		}
		d.Configurations = tmpl.Configurations
		repaired = append(repaired, d.Title)
	}
	s.mu.Unlock()

	for _, title := range repaired {
		s.logger.Warn("task configuration reset to defaults", "uuid", uuid, "task", title)
		if s.notifier != nil {
			s.notifier.Warn(uuid, fmt.Sprintf("Task %q had an outdated configuration and was reset to defaults", title))
		}
	}
	return len(repaired)
}

// Get returns a deep copy of the first descriptor of kind.
func (s *Store) Get(uuid, kind string) (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.lists[uuid]
	i := indexOfKind(list, kind)
	if i < 0 {
		return Descriptor{}, false
	}
	return list[i].DeepCopy(), true
}

// GetProgress returns the progress of the first descriptor of kind, or 0.
func (s *Store) GetProgress(uuid, kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.lists[uuid]
	i := indexOfKind(list, kind)
	if i < 0 {
		return 0
	}
	return list[i].Progress
}

// SetEnabled toggles the descriptor at index.
func (s *Store) SetEnabled(uuid string, index int, enabled bool) bool {
	return s.mutateAt(uuid, index, func(d *Descriptor) { d.Enabled = enabled })
}

// ResetTaskIDs marks every descriptor of uuid as unknown to the engine. Call it
// whenever the engine instance is new or its queue was cleared.
func (s *Store) ResetTaskIDs(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[uuid]
	for i := range list {
		list[i].TaskID = UnassignedTaskID
	}
	return ok
}

// Enqueuer hands one descriptor to the engine. It returns the engine task id
// and whether the descriptor was queued; skipped descriptors are left as is.
type Enqueuer func(d Descriptor) (id int, queued bool, err error)

// Queue runs enqueue over the device's list in order while holding the list
// lock, so no reorder, copy or delete can shift indexes under it. Every
// queued descriptor takes the returned id and moves to waiting. Queue stops
// at the first error, keeping what was queued before it. enqueue must not
// call back into s.
func (s *Store) Queue(uuid string, enqueue Enqueuer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[uuid]
	if !ok {
		return 0, fmt.Errorf("queueing %s: %w", uuid, ErrListNotFound)
	}

	queued := 0
	for i := range list {
		id, accepted, err := enqueue(list[i])
		if err != nil {
			return queued, err
		}
		if !accepted {
			continue
		}
		list[i].TaskID = id
		applyStatus(&list[i], StatusWaiting, s.now())
		queued++
	}
	return queued, nil
}

// applyStatus moves d to status with the timestamp rules. Caller holds s.mu.
func applyStatus(d *Descriptor, status Status, now time.Time) {
	if d.Status == status {
		return
	}
	switch status {
	case StatusWaiting:
		d.StartTime = 0
		d.EndTime = 0
	case StatusProcessing:
		d.StartTime = now.UnixMilli()
	case StatusSuccess, StatusException:
		d.EndTime = now.UnixMilli()
	}
	d.Status = status
}

func (s *Store) mutateAt(uuid string, index int, fn func(*Descriptor)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[uuid]
	if index < 0 || index >= len(list) {
		return false
	}
	fn(&list[index])
	return true
}

// Save persists the device's list.
func (s *Store) Save(ctx context.Context, uuid string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	list, ok := s.List(uuid)
	if !ok {
		return fmt.Errorf("saving %s: %w", uuid, ErrListNotFound)
	}
	if err := s.repo.Save(ctx, uuid, list); err != nil {
		return fmt.Errorf("saving task list %s: %w", uuid, err)
	}
	return nil
}

// Restore loads the device's saved list and repairs configuration drift.
// It returns false without error when nothing is saved.
func (s *Store) Restore(ctx context.Context, uuid string) (bool, error) {
	if s.repo == nil {
		return false, ErrNoRepository
	}
	list, err := s.repo.Load(ctx, uuid)
	if errors.Is(err, ErrListNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restoring task list %s: %w", uuid, err)
	}

	s.Replace(uuid, list)
	s.FixDrift(uuid)
	s.logger.Info("task list restored", "uuid", uuid, "tasks", len(list))
	return true, nil
}

func indexOfKind(list []Descriptor, kind string) int {
	for i := range list {
		if list[i].Name == kind {
			return i
		}
	}
	return -1
}
