// Package task holds the per-device ordered task lists shown and edited by
// the UI and updated by engine events.
//
// A list starts as a deep copy of the canonical templates: one descriptor per
// kind, in canonical order. UI actions reorder, copy, delete and
// enable descriptors; engine task chain events drive the status state machine
// through the Synchronizer.
//
// Mutations report failure through bool or ok results. Only persistence
// (Save, Restore) returns errors.
//
// Thread Safety: all Store methods are safe for concurrent use.
package task
