// Package event provides the topic-keyed publish/subscribe bus that carries
// translated engine callbacks and UI notices to their consumers.
//
// Subscribers register for a literal topic string such as
// "StartUp:Start:StartToWakeUp" or "10002" and only receive messages published
// under exactly that topic. Infrastructure sinks that need every message (the
// MQTT mirror) use SubscribeAll.
//
// Handlers run synchronously on the publishing goroutine, in registration
// order. A panicking handler is recovered and logged so it cannot stop
// delivery to the others.
package event
