package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/reuse"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

// SchedulerConfig holds configuration for the scheduler
type SchedulerConfig struct {
	// Backoff computes the wait between failed attempts
	Backoff BackoffPolicy

	// MaxInFlight caps simultaneous generator calls across all tasks.
	// Zero or negative means no cap.
	MaxInFlight int64
}

// DefaultSchedulerConfig returns a SchedulerConfig with production defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Backoff: DefaultBackoffPolicy(),
	}
}

// Scheduler creates generation tasks and drives each one to a terminal state.
//
// Every task gets its own goroutine. A drive loop makes up to MaxAttempts
// generator calls, waiting Backoff.Delay(n) after the n-th failure, and ends
// with the task either completed or in error. Drive loops only stop early when
// the scheduler is stopped; the task then stays pending and is resumed by the
// next Start.
type Scheduler struct {
	store     TaskStore
	generator generation.Generator
	delay     func(failed int) time.Duration
	sem       *semaphore.Weighted
	emitter   events.EventEmitter
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]bool
	stopped bool
}

// NewScheduler creates a scheduler writing to store and generating with generator.
func NewScheduler(
	store TaskStore,
	generator generation.Generator,
	config SchedulerConfig,
	logger *slog.Logger,
) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		store:     store,
		generator: generator,
		delay:     config.Backoff.Delay,
		logger:    logger.With("component", "task_scheduler"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return ulid.Make().String() },
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[string]bool),
	}
	if config.MaxInFlight > 0 {
		s.sem = semaphore.NewWeighted(config.MaxInFlight)
	}
	return s, nil
}

// SetEventEmitter sets the emitter notified after every task mutation.
// Emission failures are logged and never affect the task.
func (s *Scheduler) SetEventEmitter(emitter events.EventEmitter) {
	s.emitter = emitter
}

// CreateTask appends one pending task, or BatchSize tasks sharing a fresh
// batch ID when sub.FanOut is set, and starts driving them. It returns as soon
// as the tasks are stored; progress is observed through the store.
func (s *Scheduler) CreateTask(ctx context.Context, sub domain.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrSchedulerStopped
	}

	now := s.now()
	var tasks []domain.Task
	if sub.FanOut {
		batchID := s.newID()
		tasks = make([]domain.Task, 0, BatchSize)
		for i := 0; i < BatchSize; i++ {
			id := batchID + "-" + strconv.Itoa(i)
			tasks = append(tasks, domain.NewTask(id, sub.Prompt, sub.InputImages, sub.View, batchID, now))
		}
	} else {
		tasks = []domain.Task{domain.NewTask(s.newID(), sub.Prompt, sub.InputImages, sub.View, "", now)}
	}

	if err := s.store.Append(ctx, tasks...); err != nil {
		return fmt.Errorf("failed to store tasks: %w", err)
	}

	s.logger.Info("tasks created",
		"count", len(tasks),
		"batch_id", tasks[0].BatchID,
		"view", sub.View,
		"image_count", len(sub.InputImages))

	for _, t := range tasks {
		s.emit(events.TaskCreated, t)
		s.launch(t, 1)
	}
	return nil
}

// Rerun creates a new task, or a new batch for batch members, from the
// original task's prompt, images and view. The original is not modified.
func (s *Scheduler) Rerun(ctx context.Context, original domain.Task) error {
	return s.CreateTask(ctx, reuse.RerunSubmission(original))
}

// Start resumes drive loops for tasks left pending by a previous process.
// A resumed task continues at attempt RetryCount+1.
func (s *Scheduler) Start(ctx context.Context) error {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	s.logger.Info("recovering unfinished tasks", "pending_count", len(pending))

	for _, t := range pending {
		s.launch(t, t.RetryCount+1)
	}
	return nil
}

// Stop cancels all drive loops and waits for them to return. Interrupted
// tasks remain pending. The scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every drive loop started so far has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// launch starts a drive loop unless the task is already being driven.
func (s *Scheduler) launch(t domain.Task, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.running[t.ID] {
		return
	}
	s.running[t.ID] = true
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, t.ID)
			s.mu.Unlock()
		}()
		s.drive(t, attempt)
	}()
}

func (s *Scheduler) drive(t domain.Task, attempt int) {
	log := s.logger.With(
		"task_id", t.ID,
		"batch_id", t.BatchID,
		"view", t.View)

	if attempt > MaxAttempts {
		attempt = MaxAttempts
	}

	prompt := t.Prompt
	if strings.TrimSpace(prompt) == "" && len(t.InputImages) > 0 {
		prompt = DescribeImagesPrompt
	}

	// store writes outlive shutdown so a finished attempt is never lost
	storeCtx := context.WithoutCancel(s.ctx)

	failed := attempt - 1
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return s.delay(failed), false
	})

	err := retry.Do(s.ctx, backoff, func(ctx context.Context) error {
		log.Debug("starting attempt", "attempt", attempt)

		img, err := s.generate(ctx, prompt, t.InputImages)
		if err == nil {
			s.complete(storeCtx, log, t.ID, img, attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt >= MaxAttempts {
			s.fail(storeCtx, log, t.ID, err, attempt)
			return nil
		}

		log.Warn("attempt failed, will retry",
			"attempt", attempt,
			"error", err)
		s.recordFailure(storeCtx, log, t.ID, attempt)

		failed = attempt
		attempt++
		return retry.RetryableError(err)
	})

	if err != nil {
		log.Info("drive loop interrupted, task left pending",
			"attempt", attempt,
			"error", err)
	}
}

// generate calls the generator, treating panics and empty results as failures.
func (s *Scheduler) generate(ctx context.Context, prompt string, images []domain.ImageRef) (img domain.ImageRef, err error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer s.sem.Release(1)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: generator panic: %v", generation.ErrGenerationFailed, r)
		}
	}()

	img, err = s.generator.Generate(ctx, prompt, images)
	if err == nil && img == "" {
		err = generation.ErrNoImage
	}
	return img, err
}

func (s *Scheduler) complete(ctx context.Context, log *slog.Logger, id string, img domain.ImageRef, attempt int) {
	updated, err := s.store.Update(ctx, id, func(t *domain.Task) error {
		if t.Status.IsTerminal() {
			return ErrTaskTerminal
		}
		t.Status = domain.TaskStatusCompleted
		t.OutputImage = img
		t.Error = ""
		t.Timestamp = s.now()
		return nil
	})
	if err != nil {
		log.Error("failed to record completed task", "attempt", attempt, "error", err)
		return
	}
	log.Info("task completed", "attempt", attempt)
	s.emit(events.TaskUpdated, updated)
}

func (s *Scheduler) recordFailure(ctx context.Context, log *slog.Logger, id string, attempt int) {
	updated, err := s.store.Update(ctx, id, func(t *domain.Task) error {
		if t.Status.IsTerminal() {
			return ErrTaskTerminal
		}
		if attempt > t.RetryCount {
			t.RetryCount = attempt
		}
		return nil
	})
	if err != nil {
		log.Error("failed to record retry count", "attempt", attempt, "error", err)
		return
	}
	s.emit(events.TaskUpdated, updated)
}

func (s *Scheduler) fail(ctx context.Context, log *slog.Logger, id string, cause error, attempt int) {
	msg := ErrorMessage(cause)
	updated, err := s.store.Update(ctx, id, func(t *domain.Task) error {
		if t.Status.IsTerminal() {
			return ErrTaskTerminal
		}
		t.Status = domain.TaskStatusError
		t.Error = msg
		t.OutputImage = ""
		if t.RetryCount < attempt-1 {
			t.RetryCount = attempt - 1
		}
		return nil
	})
	if err != nil {
		log.Error("failed to record failed task", "attempt", attempt, "error", err)
		return
	}
	log.Error("task failed after retries", "attempt", attempt, "error", cause)
	s.emit(events.TaskUpdated, updated)
}

func (s *Scheduler) emit(eventType events.TaskEventType, t domain.Task) {
	if s.emitter == nil {
		return
	}
	ctx := context.WithoutCancel(s.ctx)
	if err := s.emitter.EmitEvent(ctx, events.NewTaskEvent(eventType, t)); err != nil {
		s.logger.Warn("failed to emit task event",
			"task_id", t.ID,
			"event_type", eventType,
			"error", err)
	}
}

// ErrorMessage returns the message stored on a failed task: the error's text,
// or UnknownErrorMessage when there is none.
func ErrorMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}
