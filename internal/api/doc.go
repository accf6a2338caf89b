// Package api implements the HTTP REST API and WebSocket event stream for
// maa-core.
//
// This package provides:
//   - REST endpoints to attach, start, stop and detach devices
//   - Task list editing (reorder, copy, delete, enable) with persistence
//   - Screenshots of the device screen as seen by the engine
//   - A WebSocket hub relaying every event bus message to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # WebSocket channels
//
// Clients subscribe to event topics ("10001", "ui:message", ...) or to "*"
// for every topic, optionally narrowed to a list of device uuids:
//
//	{"type":"subscribe","id":"1","payload":{"topics":["*"],"devices":["dev1"]}}
//
// Events arrive as {"type":"event","event_type":<topic>,
// "payload":{"uuid":...,"body":{...}}}.
//
// # Graceful Degradation
//
// The server works without a loaded engine: reads and the event stream keep
// working and engine operations answer 503.
package api
