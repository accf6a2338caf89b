package task

import "errors"

// Domain errors for task persistence.
var (
	// ErrListNotFound is returned when no task list is saved for a device.
	ErrListNotFound = errors.New("task: list not found")

	// ErrNoRepository is returned by Save and Restore on a store without a repository.
	ErrNoRepository = errors.New("task: no repository configured")
)
