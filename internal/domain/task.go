package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a generation task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusError     TaskStatus = "error"
)

// MaxInputImages is the maximum number of input images a task can carry.
const MaxInputImages = 4

// IsTerminal reports whether no further automatic transitions happen from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusError:
		return true
	}
	return false
}

// Task is one generation request and its outcome.
//
// Tasks are created pending and only ever move forward: a pending task either
// completes with an output image or ends in error with a message. RetryCount
// counts failed attempts and never decreases.
type Task struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	InputImages []ImageRef `json:"input_images"`
	OutputImage ImageRef   `json:"output_image,omitempty"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	Timestamp   time.Time  `json:"timestamp"`
	View        View       `json:"view"`
	BatchID     string     `json:"batch_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewTask creates a pending task. The input images are copied so later changes
// to the caller's slice cannot reach the task.
func NewTask(id, prompt string, images []ImageRef, view View, batchID string, now time.Time) Task {
	return Task{
		ID:          id,
		Prompt:      prompt,
		InputImages: CloneImages(images),
		Status:      TaskStatusPending,
		Timestamp:   now,
		View:        view,
		BatchID:     batchID,
		CreatedAt:   now,
	}
}

// InBatch reports whether the task was created by a fan-out submission.
func (t Task) InBatch() bool {
	return t.BatchID != ""
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.InputImages = CloneImages(t.InputImages)
	return c
}

// Validate checks the task's structural invariants.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, t.Status)
	}
	if !t.View.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, t.View)
	}
	if len(t.InputImages) > MaxInputImages {
		return fmt.Errorf("%w: %d input images, at most %d allowed",
			ErrValidation, len(t.InputImages), MaxInputImages)
	}
	if t.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry count", ErrValidation)
	}

	hasOutput := t.OutputImage != ""
	hasError := t.Error != ""
	switch t.Status {
	case TaskStatusPending:
		if hasOutput || hasError {
			return fmt.Errorf("%w: pending task cannot carry an outcome", ErrValidation)
		}
	case TaskStatusCompleted:
		if !hasOutput || hasError {
			return fmt.Errorf("%w: completed task needs an output image and no error", ErrValidation)
		}
	case TaskStatusError:
		if !hasError || hasOutput {
			return fmt.Errorf("%w: failed task needs an error message and no output image", ErrValidation)
		}
	}
	return nil
}

// Seed is the data used to pre-populate a new submission from an existing task.
type Seed struct {
	View        View       `json:"view"`
	Prompt      string     `json:"prompt"`
	InputImages []ImageRef `json:"input_images"`
}
