package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
	"github.com/phrazzld/studio-api/internal/reuse"
	"github.com/phrazzld/studio-api/internal/task"
)

// TaskScheduler defines the scheduler operations used by the service
type TaskScheduler interface {
	// CreateTask stores and starts driving the tasks for a submission
	CreateTask(ctx context.Context, sub domain.Submission) error

	// Rerun resubmits an existing task as a new task or batch
	Rerun(ctx context.Context, original domain.Task) error
}

// TaskReader provides read access to stored tasks
type TaskReader interface {
	Get(ctx context.Context, id string) (domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
}

// SubmitInput is a generation request as received from a client.
type SubmitInput struct {
	View    string   `validate:"required"`
	Prompt  string   `validate:"max=10000"`
	Images  []string `validate:"max=4,dive,required"`
	FanOut  bool
	Options map[string]string `validate:"max=8,dive,keys,required,max=64,endkeys,max=1000"`
}

// StudioService provides generation task operations
type StudioService interface {
	// Submit validates the input, resolves the mode prompt and schedules the
	// task or batch. It returns before generation starts.
	Submit(ctx context.Context, in SubmitInput) error

	// Rerun resubmits the task with the given ID.
	Rerun(ctx context.Context, id string) error

	// Seed returns the data needed to pre-populate a new submission from a task.
	Seed(ctx context.Context, id string) (domain.Seed, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id string) (domain.Task, error)

	// ListTasks returns tasks newest first, filtered to view unless it is empty.
	ListTasks(ctx context.Context, view domain.View) ([]domain.Task, error)

	// Feed returns the tasks of view grouped by day and batch.
	Feed(ctx context.Context, view domain.View) ([]feed.DateGroup, error)

	// Modes lists the available generation modes.
	Modes() []mode.Mode
}

// StudioServiceError wraps errors from the studio service with context.
type StudioServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "rerun")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for StudioServiceError.
func (e *StudioServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("studio service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("studio service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StudioServiceError) Unwrap() error {
	return e.Err
}

// NewStudioServiceError creates a new StudioServiceError.
// Known sentinel errors are returned without wrapping.
func NewStudioServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, task.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return &StudioServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// FeedConfig controls how the feed computes calendar days.
type FeedConfig struct {
	Location *time.Location
	Now      func() time.Time
}

type studioServiceImpl struct {
	scheduler TaskScheduler
	tasks     TaskReader
	feed      FeedConfig
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewStudioService creates a new StudioService.
// It returns an error if any of the required dependencies are nil.
func NewStudioService(
	scheduler TaskScheduler,
	tasks TaskReader,
	feedConfig FeedConfig,
	logger *slog.Logger,
) (StudioService, error) {
	if scheduler == nil {
		return nil, &StudioServiceError{Operation: "create_service", Message: "scheduler cannot be nil"}
	}
	if tasks == nil {
		return nil, &StudioServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if feedConfig.Location == nil {
		feedConfig.Location = time.UTC
	}
	if feedConfig.Now == nil {
		feedConfig.Now = time.Now
	}

	return &studioServiceImpl{
		scheduler: scheduler,
		tasks:     tasks,
		feed:      feedConfig,
		validate:  validator.New(),
		logger:    logger.With("component", "studio_service"),
	}, nil
}

// Submit implements StudioService.
func (s *studioServiceImpl) Submit(ctx context.Context, in SubmitInput) error {
	if err := s.validate.Struct(in); err != nil {
		return invalid(err)
	}

	view, err := domain.ParseView(strings.TrimSpace(in.View))
	if err != nil {
		return invalid(fmt.Errorf("%w: %q", err, in.View))
	}
	m, err := mode.Lookup(view)
	if err != nil {
		return invalid(err)
	}

	images := make([]domain.ImageRef, 0, len(in.Images))
	for i, raw := range in.Images {
		ref := domain.ImageRef(strings.TrimSpace(raw))
		if err := domain.ValidateInputImage(ref); err != nil {
			return invalid(fmt.Errorf("image %d: %w", i+1, err))
		}
		images = append(images, ref)
	}
	if err := m.ValidateImages(len(images)); err != nil {
		return invalid(err)
	}

	prompt, err := m.Prompt(in.Prompt, mode.Options(in.Options))
	if err != nil {
		return invalid(err)
	}

	sub := domain.Submission{
		Prompt:      prompt,
		InputImages: images,
		View:        view,
		FanOut:      in.FanOut,
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.scheduler.CreateTask(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrInvalidSubmission) {
			return err
		}
		s.logger.Error("failed to create task",
			"error", err,
			"view", view,
			"fan_out", in.FanOut)
		return NewStudioServiceError("submit", "failed to create task", err)
	}

	s.logger.Info("submission accepted",
		"view", view,
		"image_count", len(images),
		"fan_out", in.FanOut)
	return nil
}

// Rerun implements StudioService.
func (s *studioServiceImpl) Rerun(ctx context.Context, id string) error {
	original, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.scheduler.Rerun(ctx, original); err != nil {
		s.logger.Error("failed to rerun task", "error", err, "task_id", id)
		return NewStudioServiceError("rerun", "failed to rerun task", err)
	}
	s.logger.Info("task rerun submitted", "task_id", id, "batch_id", original.BatchID)
	return nil
}

// Seed implements StudioService.
func (s *studioServiceImpl) Seed(ctx context.Context, id string) (domain.Seed, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return domain.Seed{}, err
	}
	return reuse.Insert(t), nil
}

// GetTask implements StudioService.
func (s *studioServiceImpl) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, task.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task", "error", err, "task_id", id)
		}
		return domain.Task{}, NewStudioServiceError("get_task", "failed to retrieve task", err)
	}
	return t, nil
}

// ListTasks implements StudioService.
func (s *studioServiceImpl) ListTasks(ctx context.Context, view domain.View) ([]domain.Task, error) {
	if view != "" && !view.Valid() {
		return nil, invalid(fmt.Errorf("%w: %q", domain.ErrInvalidView, view))
	}

	all, err := s.tasks.List(ctx)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		return nil, NewStudioServiceError("list_tasks", "failed to list tasks", err)
	}
	if view == "" {
		return all, nil
	}

	filtered := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if t.View == view {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Feed implements StudioService.
func (s *studioServiceImpl) Feed(ctx context.Context, view domain.View) ([]feed.DateGroup, error) {
	if !view.Valid() {
		return nil, invalid(fmt.Errorf("%w: %q", domain.ErrInvalidView, view))
	}

	all, err := s.tasks.List(ctx)
	if err != nil {
		s.logger.Error("failed to list tasks for feed", "error", err, "view", view)
		return nil, NewStudioServiceError("feed", "failed to list tasks", err)
	}

	return feed.GroupForDisplay(all, view, feed.Options{
		Location: s.feed.Location,
		Now:      s.feed.Now(),
	}), nil
}

// Modes implements StudioService.
func (s *studioServiceImpl) Modes() []mode.Mode {
	return mode.All()
}

func invalid(err error) error {
	if errors.Is(err, domain.ErrInvalidSubmission) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidSubmission, err)
}
