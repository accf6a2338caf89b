package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/maa-core/internal/engine"
	"github.com/nerrad567/maa-core/internal/task"
	"github.com/nerrad567/maa-core/internal/taskchain"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine is the subset of *engine.Engine used by the Manager.
type Engine interface {
	Available() bool
	CreateWithCallback(uuid string, cb engine.Callback, customArg uintptr) bool
	Destroy(uuid string)
	Connect(uuid, address, adbPath, profile string) bool
	AppendTask(uuid, taskType, params string) int
	SetTaskParams(uuid string, taskID int, params string) bool
	Start(uuid string) bool
	Stop(uuid string) bool
}

// Connection describes how to reach a device.
type Connection struct {
	UUID    string
	Address string // adb serial, e.g. "127.0.0.1:5555"
	ADBPath string
	Profile string // engine connection profile, e.g. "General"
}

// Options configures a Manager.
type Options struct {
	// Callback receives engine messages for every device.
	Callback engine.Callback

	// DefaultADBPath and DefaultProfile fill empty Connection fields.
	DefaultADBPath string
	DefaultProfile string
}

// Manager binds engine instances to task lists.
//
// All public methods are thread-safe.
type Manager struct {
	engine Engine
	store  *task.Store
	opts   Options
	logger Logger
}

// NewManager creates a device manager.
func NewManager(eng Engine, store *task.Store, opts Options) *Manager {
	return &Manager{
		engine: eng,
		store:  store,
		opts:   opts,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

func (m *Manager) available() bool {
	return m.engine != nil && m.engine.Available()
}

// Add creates an engine instance for the device, connects it and loads the
// saved task list, falling back to the default list.
func (m *Manager) Add(ctx context.Context, conn Connection) error {
	if !m.available() {
		return ErrEngineUnavailable
	}
	if conn.UUID == "" || conn.Address == "" {
		return fmt.Errorf("%w: uuid and address are required", ErrInvalidConnection)
	}
	if conn.ADBPath == "" {
		conn.ADBPath = m.opts.DefaultADBPath
	}
	if conn.Profile == "" {
		conn.Profile = m.opts.DefaultProfile
	}

	if !m.engine.CreateWithCallback(conn.UUID, m.opts.Callback, 0) {
		return fmt.Errorf("%w: %s", ErrDeviceExists, conn.UUID)
	}

	if !m.engine.Connect(conn.UUID, conn.Address, conn.ADBPath, conn.Profile) {
		m.engine.Destroy(conn.UUID)
		m.logger.Warn("device connection failed", "uuid", conn.UUID, "address", conn.Address)
		return fmt.Errorf("%w: %s", ErrConnectionFailed, conn.Address)
	}

	restored, err := m.store.Restore(ctx, conn.UUID)
	if err != nil {
		m.logger.Warn("restoring task list", "uuid", conn.UUID, "error", err)
	}
	if !restored {
		m.store.Initialize(conn.UUID)
	}
	// Ids saved with the list belong to an instance that no longer exists.
	m.store.ResetTaskIDs(conn.UUID)

	m.logger.Info("device added", "uuid", conn.UUID, "address", conn.Address, "restored", restored)
	return nil
}

// Remove stops and destroys the device's engine instance, saves its task
// list and drops it from memory.
func (m *Manager) Remove(ctx context.Context, uuid string) error {
	if !m.store.Has(uuid) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, uuid)
	}

	if m.available() {
		m.engine.Stop(uuid)
		m.engine.Destroy(uuid)
	}
	m.store.StopAll(uuid)
	m.store.ResetTaskIDs(uuid)

	var saveErr error
	if err := m.store.Save(ctx, uuid); err != nil {
		m.logger.Warn("saving task list", "uuid", uuid, "error", err)
		saveErr = err
	}
	m.store.Remove(uuid)

	m.logger.Info("device removed", "uuid", uuid)
	return saveErr
}

// Start queues every enabled engine task of the device and starts the engine.
// Tasks already known to the engine get their parameters refreshed.
func (m *Manager) Start(ctx context.Context, uuid string) error {
	if !m.available() {
		return ErrEngineUnavailable
	}
	if !m.store.Has(uuid) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, uuid)
	}

	queued, err := m.store.Queue(uuid, func(d task.Descriptor) (int, bool, error) {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		if !d.Enabled || !taskchain.IsEngineTask(d.Name) {
			return 0, false, nil
		}

		token, err := taskchain.Token(d.Name)
		if err != nil {
			return 0, false, err
		}
		params, err := json.Marshal(d.Configurations)
		if err != nil {
			return 0, false, fmt.Errorf("encoding %s parameters: %w", d.Name, err)
		}

		if d.TaskID <= 0 {
			id := m.engine.AppendTask(uuid, token, string(params))
			if id <= 0 {
				return 0, false, fmt.Errorf("%w: append %s", ErrTaskRejected, d.Name)
			}
			return id, true, nil
		}
		if !m.engine.SetTaskParams(uuid, d.TaskID, string(params)) {
			return 0, false, fmt.Errorf("%w: parameters for %s (task %d)", ErrTaskRejected, d.Name, d.TaskID)
		}
		return d.TaskID, true, nil
	})
	if errors.Is(err, task.ErrListNotFound) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, uuid)
	}
	if err != nil {
		return err
	}

	if !m.engine.Start(uuid) {
		return fmt.Errorf("%w: %s", ErrStartFailed, uuid)
	}
	m.logger.Info("device started", "uuid", uuid, "tasks", queued)
	return nil
}

// Stop asks the engine to abandon the device's chains and marks every
// non-idle task as stopped.
func (m *Manager) Stop(_ context.Context, uuid string) error {
	if !m.available() {
		return ErrEngineUnavailable
	}
	if !m.store.Has(uuid) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, uuid)
	}

	if !m.engine.Stop(uuid) {
		m.logger.Warn("engine stop refused", "uuid", uuid)
	}
	// Stop clears the engine queue, so the next Start appends again.
	m.store.StopAll(uuid)
	m.store.ResetTaskIDs(uuid)
	return nil
}

// SaveAll persists every device's task list.
func (m *Manager) SaveAll(ctx context.Context) error {
	for _, uuid := range m.store.Devices() {
		if err := m.store.Save(ctx, uuid); err != nil {
			return err
		}
	}
	return nil
}

// Devices returns the uuids of the managed devices.
func (m *Manager) Devices() []string {
	return m.store.Devices()
}
