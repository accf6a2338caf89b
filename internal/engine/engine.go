package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger is the logging interface used by the engine.
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

// Handle is an opaque native instance pointer.
type Handle uintptr

// Engine owns the loaded library and the uuid to handle map.
type Engine struct {
	lib        Library
	libDir     string
	logger     Logger
	trampoline func() uintptr

	// mu guards handles and closed. Native calls on a handle hold the read
	// lock; freeing a handle or the library takes the write lock.
	mu      sync.RWMutex
	handles map[string]Handle
	closed  bool
}

// New wraps an already loaded Library. libDir is the default resource path.
func New(lib Library, libDir string, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		lib:        lib,
		libDir:     libDir,
		logger:     logger,
		trampoline: sharedTrampoline,
		handles:    make(map[string]Handle),
	}
}

// Options configures Open.
type Options struct {
	// Settings persists the library directory under LibPathKey.
	Settings Settings

	// AppName and DataDir determine the default library directory.
	AppName string
	DataDir string

	// ResourcePath is passed to LoadResource. Empty means the library directory.
	ResourcePath string

	// Loader opens the libraries. Nil means LoadNative.
	Loader func(dir string, p Platform) (Library, error)

	Logger Logger
}

// Open resolves the library directory, loads the libraries and the resource
// bundle. Failures are logged and returned with a nil Engine.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	loader := opts.Loader
	if loader == nil {
		loader = LoadNative
	}

	dir, err := ResolveLibDir(ctx, opts.Settings, opts.AppName, opts.DataDir)
	if err != nil {
		logger.Error("resolving engine library directory", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLibraryLoad, err)
	}

	platform, err := CurrentPlatform()
	if err != nil {
		logger.Error("engine platform lookup failed", "error", err)
		return nil, err
	}

	lib, err := loader(dir, platform)
	if err != nil {
		logger.Error("loading engine library", "dir", dir, "error", err)
		return nil, err
	}

	eng := New(lib, dir, logger)
	if err := eng.LoadResources(opts.ResourcePath); err != nil {
		logger.Error("loading engine resources", "dir", dir, "error", err)
		if closeErr := eng.Close(); closeErr != nil {
			logger.Warn("closing engine after resource failure", "error", closeErr)
		}
		return nil, err
	}

	logger.Info("engine loaded", "dir", dir, "version", eng.Version())
	return eng, nil
}

// Available reports whether e can serve native calls. Safe on a nil Engine.
func (e *Engine) Available() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// LibDir returns the resolved library directory.
func (e *Engine) LibDir() string {
	if e == nil {
		return ""
	}
	return e.libDir
}

// withLibrary runs fn while the library is loaded. Close waits for fn.
func (e *Engine) withLibrary(fn func()) bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	fn()
	return true
}

// withHandle runs fn with the live handle for uuid. The read lock is held for
// the whole native call, so Destroy and Close cannot free the handle under it.
// fn must not call back into e.
func (e *Engine) withHandle(uuid string, fn func(h uintptr)) bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[uuid]
	if !ok || e.closed {
		return false
	}
	fn(uintptr(h))
	return true
}

func (e *Engine) lookup(uuid string) (Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[uuid]
	return h, ok
}

// LoadResource loads the resource bundle at path, or the library directory
// when path is empty.
func (e *Engine) LoadResource(path string) bool {
	return e.LoadResources(path) == nil
}

// LoadResources is LoadResource with an error describing the failure.
func (e *Engine) LoadResources(path string) error {
	if path == "" && e != nil {
		path = e.libDir
	}
	var loaded bool
	if !e.withLibrary(func() { loaded = e.lib.LoadResource(path) }) {
		return ErrClosed
	}
	if !loaded {
		return fmt.Errorf("%w: %s", ErrResourceLoad, path)
	}
	return nil
}

// Create allocates a native instance for uuid without a callback.
// It returns false, leaving state unchanged, when uuid already has a handle.
func (e *Engine) Create(uuid string) bool {
	return e.create(uuid, func() uintptr { return e.lib.Create() })
}

// CreateWithCallback allocates a native instance for uuid that reports to cb.
// The callback is process-wide: the most recent non-nil cb receives messages
// for every instance.
func (e *Engine) CreateWithCallback(uuid string, cb Callback, customArg uintptr) bool {
	return e.create(uuid, func() uintptr {
		if cb != nil {
			setSink(cb)
		}
		return e.lib.CreateEx(e.trampoline(), customArg)
	})
}

func (e *Engine) create(uuid string, alloc func() uintptr) bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	if _, exists := e.handles[uuid]; exists {
		e.logger.Warn("engine instance already exists", "uuid", uuid)
		return false
	}

	h := alloc()
	if h == 0 {
		e.logger.Error("engine instance creation failed", "uuid", uuid)
		return false
	}
	e.handles[uuid] = Handle(h)
	e.logger.Debug("engine instance created", "uuid", uuid)
	return true
}

// Destroy releases the native instance for uuid and forgets it. It waits for
// native calls already running on the instance.
func (e *Engine) Destroy(uuid string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.handles[uuid]
	if !ok {
		return
	}
	delete(e.handles, uuid)
	e.lib.Destroy(uintptr(h))
	e.logger.Debug("engine instance destroyed", "uuid", uuid)
}

// Connect attaches the instance to a device through adb.
func (e *Engine) Connect(uuid, address, adbPath, profile string) bool {
	var ok bool
	e.withHandle(uuid, func(h uintptr) { ok = e.lib.Connect(h, adbPath, address, profile) })
	return ok
}

// AppendTask queues a task chain and returns the engine task id, or -1 when
// uuid has no handle.
func (e *Engine) AppendTask(uuid, taskType, params string) int {
	id := -1
	e.withHandle(uuid, func(h uintptr) { id = int(e.lib.AppendTask(h, taskType, params)) })
	return id
}

// SetTaskParams replaces the parameters of a queued task.
func (e *Engine) SetTaskParams(uuid string, taskID int, params string) bool {
	var ok bool
	e.withHandle(uuid, func(h uintptr) { ok = e.lib.SetTaskParams(h, int32(taskID), params) })
	return ok
}

// Start runs the queued tasks.
func (e *Engine) Start(uuid string) bool {
	var ok bool
	e.withHandle(uuid, func(h uintptr) { ok = e.lib.Start(h) })
	return ok
}

// Stop asks the engine to abandon the running chains and clears its queue.
// It does not wait for the chains to halt.
func (e *Engine) Stop(uuid string) bool {
	var ok bool
	e.withHandle(uuid, func(h uintptr) { ok = e.lib.Stop(h) })
	return ok
}

// Click taps the device screen at (x, y).
func (e *Engine) Click(uuid string, x, y int, blocking bool) bool {
	var ok bool
	e.withHandle(uuid, func(h uintptr) { ok = e.lib.CtrlerClick(h, int32(x), int32(y), blocking) })
	return ok
}

// GetImage copies the latest encoded screenshot into buf and returns the
// number of bytes written.
func (e *Engine) GetImage(uuid string, buf []byte) uint64 {
	var n uint64
	e.withHandle(uuid, func(h uintptr) { n = e.lib.GetImage(h, buf) })
	return n
}

// Version returns the engine version string.
func (e *Engine) Version() string {
	var v string
	e.withLibrary(func() { v = e.lib.GetVersion() })
	return v
}

// Log writes a line into the engine's own log file.
func (e *Engine) Log(level, message string) {
	e.withLibrary(func() { e.lib.Log(level, message) })
}

// Handles returns the uuids with a live handle, sorted.
func (e *Engine) Handles() []string {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	uuids := make([]string, 0, len(e.handles))
	for uuid := range e.handles {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

// Close stops and destroys every live instance, then releases the libraries.
// It waits for in-flight native calls and is safe to call more than once and
// on a nil Engine.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	uuids := make([]string, 0, len(e.handles))
	for uuid := range e.handles {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	for _, uuid := range uuids {
		h := uintptr(e.handles[uuid])
		e.lib.Stop(h)
		e.lib.Destroy(h)
	}
	e.handles = make(map[string]Handle)

	if err := e.lib.Close(); err != nil {
		return fmt.Errorf("closing engine library: %w", err)
	}
	e.logger.Info("engine closed", "instances", len(uuids))
	return nil
}

// IsUnavailable reports whether err means the engine could not be brought up.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLibraryLoad) ||
		errors.Is(err, ErrSymbolMissing) ||
		errors.Is(err, ErrResourceLoad) ||
		errors.Is(err, ErrUnsupportedPlatform)
}
