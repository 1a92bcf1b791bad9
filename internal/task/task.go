package task

import (
	"context"

	"github.com/phrazzld/studio-api/internal/domain"
)

// Retry policy constants
const (
	// MaxAttempts is the number of generation attempts before a task fails.
	MaxAttempts = 5

	// BatchSize is the number of tasks created by a fan-out submission.
	BatchSize = 4
)

// DescribeImagesPrompt is dispatched instead of a blank prompt when the task
// carries input images. The stored prompt stays blank.
const DescribeImagesPrompt = "Describe what is in these images in detail."

// UnknownErrorMessage is recorded when the final failure carries no message.
const UnknownErrorMessage = "An unknown error occurred during image generation."

// UpdateFunc transforms the latest stored version of a task. Returning an
// error aborts the update and leaves the stored task unchanged.
type UpdateFunc func(t *domain.Task) error

// TaskStore persists tasks as an append-only log.
//
// Updates are serialized per store: each UpdateFunc sees the latest record,
// so concurrent drive loops never lose each other's writes. Returned tasks are
// copies the caller may keep.
type TaskStore interface {
	// Append stores new tasks. Tasks appended in one call are kept together
	// in the given order.
	Append(ctx context.Context, tasks ...domain.Task) error

	// Update applies fn to the stored task and persists the result.
	Update(ctx context.Context, id string, fn UpdateFunc) (domain.Task, error)

	// Get returns a single task or ErrTaskNotFound.
	Get(ctx context.Context, id string) (domain.Task, error)

	// List returns every task, newest append first, with tasks from the same
	// append call in their original order.
	List(ctx context.Context) ([]domain.Task, error)

	// ListPending returns tasks still pending, oldest first.
	ListPending(ctx context.Context) ([]domain.Task, error)
}
