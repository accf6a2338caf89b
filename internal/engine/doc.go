// Package engine binds the MeoAssistant native automation library.
//
// The library is loaded at runtime with purego, so no cgo toolchain is needed.
// An Engine owns every native instance handle, keyed by device uuid, and is the
// only component that talks to the foreign entry points. Every operation takes
// the device uuid explicitly; there is no notion of a current device.
//
// Lifecycle:
//
//	eng, err := engine.Open(ctx, engine.Options{Settings: store, AppName: "maa-x"})
//	if err != nil {
//	    // eng is nil; callers check eng.Available() before use.
//	}
//	defer eng.Close()
//
// Operations against a uuid without a live handle return the zero value
// (false, -1 or 0) and never reach the native library.
//
// The native callback is a single process-wide trampoline. It copies the
// detail string and hands it to the Callback registered by CreateWithCallback
// before returning to the engine thread.
package engine
