package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
)

// TaskEventType identifies what happened to a task.
type TaskEventType string

// Task event types
const (
	TaskCreated TaskEventType = "task.created"
	TaskUpdated TaskEventType = "task.updated"
)

// TaskEvent describes a single task mutation. It carries the task's state
// after the mutation but not its image payloads, which are fetched from the
// store by ID.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the kind of mutation
	Type TaskEventType `json:"type"`

	TaskID     string            `json:"task_id"`
	BatchID    string            `json:"batch_id,omitempty"`
	View       domain.View       `json:"view"`
	Status     domain.TaskStatus `json:"status"`
	RetryCount int               `json:"retry_count"`
	Error      string            `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent for the given task state.
func NewTaskEvent(eventType TaskEventType, task domain.Task) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     task.ID,
		BatchID:    task.BatchID,
		View:       task.View,
		Status:     task.Status,
		RetryCount: task.RetryCount,
		Error:      task.Error,
		CreatedAt:  time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the scheduler to publish events without knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
