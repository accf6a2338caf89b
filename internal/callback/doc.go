// Package callback turns native engine messages into topic-keyed events.
//
// The engine reports progress through one callback with a numeric message
// code and a JSON detail document. Handle decodes the detail into one of four
// message variants (GlobalMessage, ConnectionMessage, TaskChainMessage,
// SubTaskMessage) and queues it without blocking. Run drains the queue,
// translates each message into an Event and publishes it under its derived
// topic, for example "StartUp:Start:StartToWakeUp" or "10002".
//
// Malformed detail, unknown codes and unknown chain tokens are logged and
// dropped; nothing panics back into the engine thread.
package callback
