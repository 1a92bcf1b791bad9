package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outputImage = domain.NewImageRef("image/png", []byte("generated"))

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig() SchedulerConfig {
	return SchedulerConfig{
		Backoff: BackoffPolicy{Base: time.Microsecond, MaxJitter: time.Microsecond},
	}
}

// scriptedGenerator fails the first failures calls and succeeds afterwards.
type scriptedGenerator struct {
	failures int32
	errFor   func(call int32) error

	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
	call := g.calls.Add(1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if call <= g.failures {
		if g.errFor != nil {
			return "", g.errFor(call)
		}
		return "", fmt.Errorf("attempt %d failed", call)
	}
	return outputImage, nil
}

func newTestScheduler(t *testing.T, store TaskStore, gen generation.Generator) *Scheduler {
	t.Helper()
	s, err := NewScheduler(store, gen, testConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func onlyTask(t *testing.T, store TaskStore) domain.Task {
	t.Helper()
	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	return all[0]
}

func assertRetryCountNonDecreasing(t *testing.T, history []domain.Task) {
	t.Helper()
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i].RetryCount, history[i-1].RetryCount)
		assert.LessOrEqual(t, history[i].RetryCount, MaxAttempts-1)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	_, err := NewScheduler(nil, gen, testConfig(), testLogger())
	assert.Error(t, err)

	_, err = NewScheduler(NewMemoryTaskStore(), nil, testConfig(), testLogger())
	assert.Error(t, err)
}

func TestScheduler_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	gen := &scriptedGenerator{failures: 2}
	s := newTestScheduler(t, store, gen)

	err := s.CreateTask(context.Background(), domain.Submission{Prompt: "a cat", View: domain.ViewCreate})
	require.NoError(t, err)
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, 2, task.RetryCount)
	assert.Equal(t, outputImage, task.OutputImage)
	assert.Empty(t, task.Error)
	assert.Empty(t, task.BatchID)
	assert.Equal(t, "a cat", task.Prompt)
	assert.Equal(t, int32(3), gen.calls.Load())
	assert.Equal(t, []string{"a cat", "a cat", "a cat"}, gen.prompts)
	assert.False(t, task.Timestamp.Before(task.CreatedAt))

	history := store.History(task.ID)
	assertRetryCountNonDecreasing(t, history)
	require.Len(t, history, 4)
	assert.Equal(t, 0, history[0].RetryCount)
	assert.Equal(t, 1, history[1].RetryCount)
	assert.Equal(t, domain.TaskStatusPending, history[2].Status)
	assert.Equal(t, 2, history[2].RetryCount)
}

func TestScheduler_FailsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	gen := &scriptedGenerator{failures: 100}
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "a cat", View: domain.ViewCreate}))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusError, task.Status)
	assert.Equal(t, MaxAttempts-1, task.RetryCount)
	assert.Equal(t, "attempt 5 failed", task.Error)
	assert.Empty(t, task.OutputImage)
	assert.Equal(t, int32(MaxAttempts), gen.calls.Load())

	assertRetryCountNonDecreasing(t, store.History(task.ID))
}

func TestScheduler_ErrorMessageFallback(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{
		failures: 100,
		errFor:   func(int32) error { return errors.New("  ") },
	}
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate}))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusError, task.Status)
	assert.Equal(t, UnknownErrorMessage, task.Error)
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownErrorMessage, ErrorMessage(nil))
	assert.Equal(t, UnknownErrorMessage, ErrorMessage(errors.New("")))
	assert.Equal(t, "quota exceeded", ErrorMessage(errors.New(" quota exceeded ")))
	assert.Equal(t, "wrapped: inner", ErrorMessage(fmt.Errorf("wrapped: %w", errors.New("inner"))))
}

func TestScheduler_EmptyImageCountsAsFailure(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	var calls atomic.Int32
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		if calls.Add(1) == 1 {
			return "", nil
		}
		return outputImage, nil
	})
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate}))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, 1, task.RetryCount)
}

func TestScheduler_GeneratorPanicIsRetried(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	var calls atomic.Int32
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		if calls.Add(1) == 1 {
			panic("kaboom")
		}
		return outputImage, nil
	})
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate}))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, 1, task.RetryCount)
}

func TestScheduler_FanOut(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{}
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewModel, FanOut: true}))
	s.Wait()

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, BatchSize)

	batchID := all[0].BatchID
	require.NotEmpty(t, batchID)
	seen := make(map[string]bool)
	for _, task := range all {
		assert.Equal(t, batchID, task.BatchID)
		assert.Equal(t, domain.ViewModel, task.View)
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
	assert.Equal(t, int32(BatchSize), gen.calls.Load())

	// a second fan-out gets a fresh batch
	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewModel, FanOut: true}))
	s.Wait()
	all, err = store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2*BatchSize)
	assert.NotEqual(t, batchID, all[0].BatchID)
}

func TestScheduler_FanOutMembersProgressIndependently(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	var calls atomic.Int32
	// Each member makes its second call only after its first failed, so the
	// first three calls belong to three different members.
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		if calls.Add(1) <= 3 {
			return outputImage, nil
		}
		return "", errors.New("model overloaded")
	})
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate, FanOut: true}))
	s.Wait()

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, BatchSize)

	counts := map[domain.TaskStatus]int{}
	for _, task := range all {
		counts[task.Status]++
		if task.Status == domain.TaskStatusError {
			assert.Equal(t, "model overloaded", task.Error)
			assert.Equal(t, MaxAttempts-1, task.RetryCount)
		}
	}
	assert.Equal(t, 3, counts[domain.TaskStatusCompleted])
	assert.Equal(t, 1, counts[domain.TaskStatusError])
	assert.Equal(t, int32(3+MaxAttempts), calls.Load())
}

func TestScheduler_DispatchedPromptForImagesOnly(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{}
	s := newTestScheduler(t, store, gen)

	img := domain.NewImageRef("image/png", []byte("in"))
	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{
		Prompt:      "   ",
		InputImages: []domain.ImageRef{img},
		View:        domain.ViewCreate,
	}))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, "   ", task.Prompt)
	assert.Equal(t, []string{DescribeImagesPrompt}, gen.prompts)
}

func TestScheduler_CreateTaskRejectsInvalidSubmission(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{}
	s := newTestScheduler(t, store, gen)

	img := domain.NewImageRef("image/png", []byte("in"))
	tests := []struct {
		name string
		sub  domain.Submission
	}{
		{"blank prompt without images", domain.Submission{Prompt: " ", View: domain.ViewCreate}},
		{"too many images", domain.Submission{Prompt: "p", View: domain.ViewCreate, InputImages: []domain.ImageRef{img, img, img, img, img}}},
		{"unknown view", domain.Submission{Prompt: "p", View: "gallery"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.CreateTask(context.Background(), tc.sub)
			assert.ErrorIs(t, err, domain.ErrInvalidSubmission)
		})
	}

	s.Wait()
	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, gen.calls.Load())
}

func TestScheduler_CreateTaskStoreError(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	store.AppendFn = func(ctx context.Context, tasks ...domain.Task) error {
		return errors.New("disk full")
	}
	gen := &scriptedGenerator{}
	s := newTestScheduler(t, store, gen)

	err := s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	s.Wait()
	assert.Zero(t, gen.calls.Load())
}

func TestScheduler_Rerun(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{}
	s := newTestScheduler(t, store, gen)
	ctx := context.Background()

	img := domain.NewImageRef("image/png", []byte("in"))
	require.NoError(t, s.CreateTask(ctx, domain.Submission{Prompt: "x", InputImages: []domain.ImageRef{img}, View: domain.ViewPosture}))
	s.Wait()
	original := onlyTask(t, store)

	t.Run("singleton reruns as singleton", func(t *testing.T) {
		require.NoError(t, s.Rerun(ctx, original))
		s.Wait()

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		rerun := all[0]
		assert.NotEqual(t, original.ID, rerun.ID)
		assert.Empty(t, rerun.BatchID)
		assert.Equal(t, original.Prompt, rerun.Prompt)
		assert.Equal(t, original.InputImages, rerun.InputImages)
		assert.Equal(t, original.View, rerun.View)

		unchanged, err := store.Get(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, original, unchanged)
	})

	t.Run("batch member reruns as batch", func(t *testing.T) {
		member := original
		member.BatchID = "01BATCH"
		require.NoError(t, s.Rerun(ctx, member))
		s.Wait()

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2+BatchSize)
		for _, task := range all[:BatchSize] {
			assert.NotEmpty(t, task.BatchID)
			assert.NotEqual(t, "01BATCH", task.BatchID)
			assert.Equal(t, all[0].BatchID, task.BatchID)
		}
	})
}

func TestScheduler_StartResumesPendingTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryTaskStore()

	resumed := domain.NewTask("resumed", "a cat", nil, domain.ViewCreate, "", time.Now().UTC())
	resumed.RetryCount = 2
	done := domain.NewTask("done", "a dog", nil, domain.ViewCreate, "", time.Now().UTC())
	done.Status = domain.TaskStatusCompleted
	done.OutputImage = outputImage
	require.NoError(t, store.Append(ctx, resumed))
	require.NoError(t, store.Append(ctx, done))

	gen := &scriptedGenerator{failures: 100}
	s := newTestScheduler(t, store, gen)

	require.NoError(t, s.Start(ctx))
	s.Wait()

	// attempts 3, 4 and 5 remain
	assert.Equal(t, int32(3), gen.calls.Load())

	got, err := store.Get(ctx, "resumed")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, got.Status)
	assert.Equal(t, MaxAttempts-1, got.RetryCount)
	assert.Equal(t, "attempt 3 failed", got.Error)

	untouched, err := store.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, done.Status, untouched.Status)
}

func TestScheduler_StartListError(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	store.ListPendingFn = func(ctx context.Context) ([]domain.Task, error) {
		return nil, errors.New("connection refused")
	}
	s := newTestScheduler(t, store, &scriptedGenerator{})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestScheduler_StopLeavesTaskPending(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	started := make(chan struct{})
	var once sync.Once
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", ctx.Err()
	})
	s, err := NewScheduler(store, gen, testConfig(), testLogger())
	require.NoError(t, err)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate}))
	<-started
	s.Stop()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.RetryCount)

	err = s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate})
	assert.ErrorIs(t, err, ErrSchedulerStopped)
}

func TestScheduler_MaxInFlight(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	var inFlight, peak atomic.Int32
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return outputImage, nil
	})

	cfg := testConfig()
	cfg.MaxInFlight = 1
	s, err := NewScheduler(store, gen, cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate, FanOut: true}))
	s.Wait()

	assert.Equal(t, int32(1), peak.Load())
	all, err := store.List(context.Background())
	require.NoError(t, err)
	for _, task := range all {
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	}
}

func TestScheduler_EmitsEvents(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{failures: 2}
	s := newTestScheduler(t, store, gen)

	var mu sync.Mutex
	var received []*events.TaskEvent
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler("recorder", events.EventHandlerFunc(func(ctx context.Context, e *events.TaskEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	}))
	s.SetEventEmitter(emitter)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "a cat", View: domain.ViewCreate}))
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 4)
	assert.Equal(t, events.TaskCreated, received[0].Type)
	assert.Equal(t, domain.TaskStatusPending, received[0].Status)
	assert.Equal(t, 1, received[1].RetryCount)
	assert.Equal(t, 2, received[2].RetryCount)
	assert.Equal(t, events.TaskUpdated, received[3].Type)
	assert.Equal(t, domain.TaskStatusCompleted, received[3].Status)
}

func TestScheduler_EmitterErrorDoesNotAffectTask(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	s := newTestScheduler(t, store, &scriptedGenerator{})

	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler("recorder", events.EventHandlerFunc(func(ctx context.Context, e *events.TaskEvent) error {
		return errors.New("subscriber gone")
	}))
	s.SetEventEmitter(emitter)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "p", View: domain.ViewCreate}))
	s.Wait()

	assert.Equal(t, domain.TaskStatusCompleted, onlyTask(t, store).Status)
}

func TestScheduler_BackoffUsesFailedAttemptCount(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	gen := &scriptedGenerator{failures: MaxAttempts}
	s := newTestScheduler(t, store, gen)

	var (
		mu     sync.Mutex
		failed []int
	)
	s.delay = func(n int) time.Duration {
		mu.Lock()
		failed = append(failed, n)
		mu.Unlock()
		return 0
	}

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "a cat", View: domain.ViewCreate}))
	s.Wait()

	assert.Equal(t, domain.TaskStatusError, onlyTask(t, store).Status)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4}, failed)
}

func TestScheduler_BackoffResumesFromRetryCount(t *testing.T) {
	t.Parallel()

	store := NewMemoryTaskStore()
	pending := domain.NewTask("t1", "a cat", nil, domain.ViewCreate, "", time.Now().UTC())
	pending.RetryCount = 2
	require.NoError(t, store.Append(context.Background(), pending))

	gen := &scriptedGenerator{failures: MaxAttempts}
	s := newTestScheduler(t, store, gen)

	var (
		mu     sync.Mutex
		failed []int
	)
	s.delay = func(n int) time.Duration {
		mu.Lock()
		failed = append(failed, n)
		mu.Unlock()
		return 0
	}

	require.NoError(t, s.Start(context.Background()))
	s.Wait()

	task := onlyTask(t, store)
	assert.Equal(t, domain.TaskStatusError, task.Status)
	assert.Equal(t, MaxAttempts-1, task.RetryCount)
	assert.Equal(t, int32(3), gen.calls.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3, 4}, failed)
}

// timedGenerator always fails and records when each call started.
type timedGenerator struct {
	mu    sync.Mutex
	calls []time.Time
}

func (g *timedGenerator) Generate(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, time.Now())
	return "", errors.New("overloaded")
}

func TestScheduler_RetryGapsDoubleFromBase(t *testing.T) {
	t.Parallel()

	const base = 20 * time.Millisecond

	store := NewMemoryTaskStore()
	gen := &timedGenerator{}
	s, err := NewScheduler(store, gen, SchedulerConfig{
		Backoff: BackoffPolicy{Base: base},
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NoError(t, s.CreateTask(context.Background(), domain.Submission{Prompt: "a cat", View: domain.ViewCreate}))
	s.Wait()

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.calls, MaxAttempts)
	for n := 1; n < MaxAttempts; n++ {
		want := base << uint(n)
		gap := gen.calls[n].Sub(gen.calls[n-1])
		assert.GreaterOrEqual(t, gap, want, "gap before attempt %d", n+1)
		assert.Less(t, gap, want+250*time.Millisecond, "gap before attempt %d", n+1)
	}
}
