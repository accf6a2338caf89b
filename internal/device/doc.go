// Package device orchestrates the engine binding and the task store for the
// UI-facing device actions: add, remove, start and stop.
//
// A device is a uuid bound to exactly one engine instance and one task
// list. Both are created by Add and released together by Remove.
package device
