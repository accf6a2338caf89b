package mqtt

import "errors"

// Sentinel errors; match with errors.Is.
var (
	// Connection state.
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// Broker operations. The broker or timeout cause is wrapped.
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// Argument validation.
	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrUnknownCommand is returned for maa/command topics whose action is
	// neither start nor stop.
	ErrUnknownCommand = errors.New("mqtt: unknown command")
)
