package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testImage  = domain.NewImageRef("image/png", []byte("input"))
	testOutput = domain.NewImageRef("image/jpeg", []byte("output"))
	testNow    = time.Date(2026, time.March, 10, 9, 30, 0, 123456789, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "studio.db")
	db, err := Open(context.Background(), Config{Dialect: DialectSQLite, DSN: dsn}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSQLiteStore(t *testing.T) *TaskStore {
	t.Helper()
	store, err := NewTaskStore(openSQLite(t), DialectSQLite, testLogger())
	require.NoError(t, err)
	return store
}

func newTask(id, batchID string, images ...domain.ImageRef) domain.Task {
	return domain.NewTask(id, "prompt "+id, images, domain.ViewCreate, batchID, testNow)
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestNewTaskStore_Validation(t *testing.T) {
	_, err := NewTaskStore(nil, DialectSQLite, nil)
	assert.Error(t, err)

	_, err = NewTaskStore(&sql.DB{}, Dialect("mysql"), nil)
	assert.Error(t, err)
}

func TestTaskStore_AppendAndGet(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	original := newTask("t1", "", testImage, testImage)
	original.View = domain.ViewFusion
	require.NoError(t, store.Append(ctx, original))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Prompt, got.Prompt)
	assert.Equal(t, original.InputImages, got.InputImages)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Equal(t, domain.ViewFusion, got.View)
	assert.Empty(t, got.BatchID)
	assert.Zero(t, got.RetryCount)
	assert.True(t, testNow.Equal(got.Timestamp))
	assert.True(t, testNow.Equal(got.CreatedAt))

	text := newTask("t2", "")
	require.NoError(t, store.Append(ctx, text))
	got, err = store.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Nil(t, got.InputImages)
}

func TestTaskStore_GetMissing(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestTaskStore_AppendRejects(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, newTask("t1", "")))

	err := store.Append(ctx, newTask("t2", ""), newTask("t1", ""))
	assert.ErrorIs(t, err, task.ErrDuplicateTask)

	_, err = store.Get(ctx, "t2")
	assert.ErrorIs(t, err, task.ErrTaskNotFound, "a failed append must not store any task")

	invalid := newTask("", "")
	assert.ErrorIs(t, store.Append(ctx, invalid), domain.ErrValidation)

	assert.NoError(t, store.Append(ctx))
}

func TestTaskStore_ListOrder(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, newTask("a", "")))
	require.NoError(t, store.Append(ctx,
		newTask("b-0", "b"), newTask("b-1", "b"), newTask("b-2", "b"), newTask("b-3", "b")))
	require.NoError(t, store.Append(ctx, newTask("c", "")))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b-0", "b-1", "b-2", "b-3", "a"}, ids(all))

	_, err = store.Update(ctx, "b-1", func(t *domain.Task) error {
		t.Status = domain.TaskStatusCompleted
		t.OutputImage = testOutput
		return nil
	})
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b-0", "b-2", "b-3", "c"}, ids(pending))
}

func TestTaskStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies mutation", func(t *testing.T) {
		store := newSQLiteStore(t)
		require.NoError(t, store.Append(ctx, newTask("t1", "")))

		later := testNow.Add(time.Minute)
		updated, err := store.Update(ctx, "t1", func(t *domain.Task) error {
			t.RetryCount = 4
			t.Status = domain.TaskStatusError
			t.Error = "quota exceeded"
			t.Timestamp = later
			t.ID = "renamed"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "t1", updated.ID)

		got, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusError, got.Status)
		assert.Equal(t, "quota exceeded", got.Error)
		assert.Equal(t, 4, got.RetryCount)
		assert.True(t, later.Equal(got.Timestamp))
		assert.True(t, testNow.Equal(got.CreatedAt))
	})

	t.Run("mutation error leaves task unchanged", func(t *testing.T) {
		store := newSQLiteStore(t)
		require.NoError(t, store.Append(ctx, newTask("t1", "")))

		boom := errors.New("boom")
		_, err := store.Update(ctx, "t1", func(t *domain.Task) error {
			t.RetryCount = 3
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Zero(t, got.RetryCount)
	})

	t.Run("invalid result is rejected", func(t *testing.T) {
		store := newSQLiteStore(t)
		require.NoError(t, store.Append(ctx, newTask("t1", "")))

		_, err := store.Update(ctx, "t1", func(t *domain.Task) error {
			t.Status = domain.TaskStatusCompleted
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
	})

	t.Run("missing task", func(t *testing.T) {
		store := newSQLiteStore(t)
		_, err := store.Update(ctx, "nope", func(*domain.Task) error { return nil })
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
	})
}

func TestTaskStore_ConcurrentUpdates(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, newTask("t1", "")))

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "t1", func(t *domain.Task) error {
				t.RetryCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, writers, got.RetryCount)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openSQLite(t)
	assert.NoError(t, Migrate(context.Background(), db, DialectSQLite, nil))
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{Dialect: DialectSQLite}, testLogger())
	assert.Error(t, err)
}

func TestTaskStore_DrivesScheduler(t *testing.T) {
	store := newSQLiteStore(t)

	var calls int
	var mu sync.Mutex
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", errors.New("temporarily unavailable")
		}
		return testOutput, nil
	})

	scheduler, err := task.NewScheduler(store, gen, task.SchedulerConfig{
		Backoff: task.BackoffPolicy{Base: time.Microsecond, MaxJitter: time.Microsecond},
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(scheduler.Stop)

	require.NoError(t, scheduler.CreateTask(context.Background(), domain.Submission{
		Prompt: "a lighthouse at dusk",
		View:   domain.ViewCreate,
	}))
	scheduler.Wait()

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.TaskStatusCompleted, all[0].Status)
	assert.Equal(t, testOutput, all[0].OutputImage)
	assert.Equal(t, 1, all[0].RetryCount)
}

func TestParseDialect(t *testing.T) {
	tests := map[string]Dialect{
		"postgres":   DialectPostgres,
		"PostgreSQL": DialectPostgres,
		"sqlite":     DialectSQLite,
		"sqlite3":    DialectSQLite,
	}
	for in, want := range tests {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDialect("memory")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `UPDATE tasks SET status = ? WHERE id = ?`
	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t, `UPDATE tasks SET status = $1 WHERE id = $2`, DialectPostgres.rebind(q))
}
