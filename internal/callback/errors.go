package callback

import "errors"

// Domain errors for the callback package.
var (
	// ErrMalformedDetail is returned when the detail is not a JSON object or
	// lacks a field its message code requires.
	ErrMalformedDetail = errors.New("callback: malformed detail")

	// ErrUnknownCode is returned for message codes outside the engine ABI.
	ErrUnknownCode = errors.New("callback: unknown message code")

	// ErrQueueFull is returned when the event queue has no room.
	ErrQueueFull = errors.New("callback: event queue full")
)
