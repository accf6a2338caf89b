package engine

import "errors"

// Domain errors for the engine package.
var (
	// ErrLibraryLoad is returned when a dependency or the primary library
	// cannot be opened.
	ErrLibraryLoad = errors.New("engine: library load failed")

	// ErrSymbolMissing is returned when the primary library does not export
	// one of the required entry points.
	ErrSymbolMissing = errors.New("engine: symbol missing")

	// ErrResourceLoad is returned when AsstLoadResource reports failure.
	ErrResourceLoad = errors.New("engine: resource load failed")

	// ErrClosed is returned when an operation needs an engine that has
	// already been torn down.
	ErrClosed = errors.New("engine: closed")

	// ErrUnsupportedPlatform is returned when there is no library table for
	// the running operating system.
	ErrUnsupportedPlatform = errors.New("engine: unsupported platform")
)
