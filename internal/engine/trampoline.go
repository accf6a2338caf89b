package engine

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Callback receives a native engine message. detail is the JSON document
// sent by the engine, already copied into Go memory.
type Callback func(code int, detail string, customArg uintptr)

var (
	trampolineOnce sync.Once
	trampolinePtr  uintptr

	// sink is the Go callback the trampoline forwards to.
	sink atomic.Pointer[Callback]
)

// sharedTrampoline returns the native function pointer passed to AsstCreateEx.
// purego callbacks are never freed, so exactly one is created per process.
func sharedTrampoline() uintptr {
	trampolineOnce.Do(func() {
		trampolinePtr = purego.NewCallback(nativeCallback)
	})
	return trampolinePtr
}

func setSink(cb Callback) {
	if cb == nil {
		sink.Store(nil)
		return
	}
	sink.Store(&cb)
}

// nativeCallback runs on an engine thread.
func nativeCallback(msg int32, detail *byte, customArg uintptr) uintptr {
	// A panic must not unwind into the engine.
	defer func() { _ = recover() }()
	deliver(int(msg), goString(detail), customArg)
	return 0
}

func deliver(code int, detail string, customArg uintptr) {
	cb := sink.Load()
	if cb == nil {
		return
	}
	(*cb)(code, detail, customArg)
}

// goString copies a NUL-terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
