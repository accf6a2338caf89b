package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// nativeLibrary is the purego-backed Library.
type nativeLibrary struct {
	mu      sync.Mutex
	deps    []uintptr
	primary uintptr
	closed  bool

	asstLoadResource  func(path string) bool
	asstCreate        func() uintptr
	asstCreateEx      func(callback, customArg uintptr) uintptr
	asstDestroy       func(handle uintptr)
	asstConnect       func(handle uintptr, adbPath, address, config string) bool
	asstAppendTask    func(handle uintptr, taskType, params string) int32
	asstSetTaskParams func(handle uintptr, taskID int32, params string) bool
	asstStart         func(handle uintptr) bool
	asstStop          func(handle uintptr) bool
	asstCtrlerClick   func(handle uintptr, x, y int32, block bool) bool
	asstGetImage      func(handle uintptr, buf unsafe.Pointer, size uint64) uint64
	asstGetVersion    func() string
	asstLog           func(level, message string)
}

// LoadNative opens the platform libraries found in dir and binds the engine
// entry points. Libraries opened before a failure are closed again.
func LoadNative(dir string, p Platform) (Library, error) {
	lib := &nativeLibrary{}

	for _, name := range p.Dependencies {
		h, err := openLibrary(filepath.Join(dir, name))
		if err != nil {
			_ = lib.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrLibraryLoad, name, err)
		}
		lib.deps = append(lib.deps, h)
	}

	h, err := openLibrary(filepath.Join(dir, p.Primary))
	if err != nil {
		_ = lib.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrLibraryLoad, p.Primary, err)
	}
	lib.primary = h

	if err := lib.bind(); err != nil {
		_ = lib.Close()
		return nil, err
	}

	return lib, nil
}

func (l *nativeLibrary) bind() error {
	symbols := []struct {
		fptr any
		name string
	}{
		{&l.asstLoadResource, "AsstLoadResource"},
		{&l.asstCreate, "AsstCreate"},
		{&l.asstCreateEx, "AsstCreateEx"},
		{&l.asstDestroy, "AsstDestroy"},
		{&l.asstConnect, "AsstConnect"},
		{&l.asstAppendTask, "AsstAppendTask"},
		{&l.asstSetTaskParams, "AsstSetTaskParams"},
		{&l.asstStart, "AsstStart"},
		{&l.asstStop, "AsstStop"},
		{&l.asstCtrlerClick, "AsstCtrlerClick"},
		{&l.asstGetImage, "AsstGetImage"},
		{&l.asstGetVersion, "AsstGetVersion"},
		{&l.asstLog, "AsstLog"},
	}

	for _, s := range symbols {
		if err := register(s.fptr, l.primary, s.name); err != nil {
			return err
		}
	}
	return nil
}

// register binds one symbol. RegisterLibFunc panics on lookup failure.
func register(fptr any, handle uintptr, name string) (err error) {
	if _, lookupErr := lookupSymbol(handle, name); lookupErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrSymbolMissing, name, lookupErr)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrSymbolMissing, name, r)
		}
	}()
	purego.RegisterLibFunc(fptr, handle, name)
	return nil
}

func (l *nativeLibrary) LoadResource(path string) bool { return l.asstLoadResource(path) }
func (l *nativeLibrary) Create() uintptr               { return l.asstCreate() }

func (l *nativeLibrary) CreateEx(callback, customArg uintptr) uintptr {
	return l.asstCreateEx(callback, customArg)
}

func (l *nativeLibrary) Destroy(handle uintptr) { l.asstDestroy(handle) }

func (l *nativeLibrary) Connect(handle uintptr, adbPath, address, config string) bool {
	return l.asstConnect(handle, adbPath, address, config)
}

func (l *nativeLibrary) AppendTask(handle uintptr, taskType, params string) int32 {
	return l.asstAppendTask(handle, taskType, params)
}

func (l *nativeLibrary) SetTaskParams(handle uintptr, taskID int32, params string) bool {
	return l.asstSetTaskParams(handle, taskID, params)
}

func (l *nativeLibrary) Start(handle uintptr) bool { return l.asstStart(handle) }
func (l *nativeLibrary) Stop(handle uintptr) bool  { return l.asstStop(handle) }

func (l *nativeLibrary) CtrlerClick(handle uintptr, x, y int32, block bool) bool {
	return l.asstCtrlerClick(handle, x, y, block)
}

func (l *nativeLibrary) GetImage(handle uintptr, buf []byte) uint64 {
	if len(buf) == 0 {
		return l.asstGetImage(handle, nil, 0)
	}
	return l.asstGetImage(handle, unsafe.Pointer(&buf[0]), uint64(len(buf)))
}

func (l *nativeLibrary) GetVersion() string        { return l.asstGetVersion() }
func (l *nativeLibrary) Log(level, message string) { l.asstLog(level, message) }

// Close releases dependency handles in load order, then the primary handle.
// Subsequent calls are no-ops.
func (l *nativeLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, h := range l.deps {
		if err := closeLibrary(h); err != nil {
			errs = append(errs, err)
		}
	}
	l.deps = nil

	if l.primary != 0 {
		if err := closeLibrary(l.primary); err != nil {
			errs = append(errs, err)
		}
		l.primary = 0
	}

	return errors.Join(errs...)
}
