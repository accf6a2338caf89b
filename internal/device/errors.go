package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a uuid has no device.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when adding a uuid that already has an engine instance.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrConnectionFailed is returned when the engine cannot connect to the device.
	ErrConnectionFailed = errors.New("device: connection failed")

	// ErrEngineUnavailable is returned when the native engine is not loaded.
	ErrEngineUnavailable = errors.New("device: engine unavailable")

	// ErrInvalidConnection is returned when a connection lacks a uuid or address.
	ErrInvalidConnection = errors.New("device: invalid connection")

	// ErrTaskRejected is returned when the engine refuses a task or its parameters.
	ErrTaskRejected = errors.New("device: task rejected")

	// ErrStartFailed is returned when the engine refuses to start the queued tasks.
	ErrStartFailed = errors.New("device: start failed")
)
