package task

import "errors"

var (
	// ErrTaskNotFound is returned when a task ID does not exist in the store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateTask is returned when appending a task whose ID already exists.
	ErrDuplicateTask = errors.New("task already exists")

	// ErrTaskTerminal is returned by update functions that refuse to modify a
	// task which already completed or failed.
	ErrTaskTerminal = errors.New("task already in terminal state")

	// ErrSchedulerStopped is returned when creating tasks after Stop.
	ErrSchedulerStopped = errors.New("scheduler stopped")
)
