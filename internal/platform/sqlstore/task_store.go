package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/task"
)

const taskColumns = `id, prompt, input_images, output_image, status, error_message,
	retry_count, task_view, batch_id, updated_at, created_at`

// TaskStore implements task.TaskStore on a SQL database.
//
// Each Append call takes the next append sequence number and stores its tasks
// with their position in the call, which gives List its newest-first order
// with batch members kept together.
type TaskStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewTaskStore creates a TaskStore on an open, migrated database.
func NewTaskStore(db *sql.DB, dialect Dialect, logger *slog.Logger) (*TaskStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With("component", "sql_task_store", "dialect", dialect),
	}, nil
}

// Append implements task.TaskStore.
func (s *TaskStore) Append(ctx context.Context, tasks ...domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid task %s: %w", t.ID, err)
		}
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	err := runInTransaction(ctx, s.db, log, func(ctx context.Context, tx *sql.Tx) error {
		seq, err := s.nextAppendSeq(ctx, tx)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
			INSERT INTO tasks (id, append_seq, batch_index, prompt, input_images, output_image,
				status, error_message, retry_count, task_view, batch_id, updated_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare task insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, t := range tasks {
			images, err := encodeImages(t.InputImages)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx,
				t.ID,
				seq,
				i,
				t.Prompt,
				images,
				string(t.OutputImage),
				string(t.Status),
				t.Error,
				t.RetryCount,
				string(t.View),
				t.BatchID,
				t.Timestamp.UTC().UnixNano(),
				t.CreatedAt.UTC().UnixNano(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert task %s: %w", t.ID, mapError(err))
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to append tasks", "count", len(tasks), "error", err)
		return err
	}
	return nil
}

func (s *TaskStore) nextAppendSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	query := `SELECT COALESCE(MAX(append_seq), 0) + 1 FROM tasks`
	if s.dialect == DialectPostgres {
		query = `SELECT nextval('task_append_seq')`
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to get append sequence: %w", err)
	}
	return seq, nil
}

// Update implements task.TaskStore. The row is locked for the duration of the
// transaction on PostgreSQL; SQLite serializes writers on its single
// connection.
func (s *TaskStore) Update(ctx context.Context, id string, fn task.UpdateFunc) (domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated domain.Task
	err := runInTransaction(ctx, s.db, log, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
		if s.dialect == DialectPostgres {
			query += ` FOR UPDATE`
		}

		current, err := scanTask(tx.QueryRowContext(ctx, s.dialect.rebind(query), id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", task.ErrTaskNotFound, id)
			}
			return fmt.Errorf("failed to load task %s: %w", id, err)
		}

		next := current.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.ID = current.ID
		if err := next.Validate(); err != nil {
			return fmt.Errorf("invalid update for task %s: %w", id, err)
		}

		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			UPDATE tasks
			SET output_image = ?, status = ?, error_message = ?, retry_count = ?, updated_at = ?
			WHERE id = ?
		`),
			string(next.OutputImage),
			string(next.Status),
			next.Error,
			next.RetryCount,
			next.Timestamp.UTC().UnixNano(),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update task %s: %w", id, mapError(err))
		}

		updated = next
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// Get implements task.TaskStore.
func (s *TaskStore) Get(ctx context.Context, id string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, fmt.Errorf("%w: %s", task.ErrTaskNotFound, id)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task", "task_id", id, "error", err)
		return domain.Task{}, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// List implements task.TaskStore.
func (s *TaskStore) List(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY append_seq DESC, batch_index ASC`)
}

// ListPending implements task.TaskStore.
func (s *TaskStore) ListPending(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY append_seq ASC, batch_index ASC`,
		string(domain.TaskStatusPending))
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		log.Error("failed to query tasks", "error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", "error", err)
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", "error", err)
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t           domain.Task
		images      []byte
		outputImage string
		status      string
		view        string
		updatedAt   int64
		createdAt   int64
	)
	err := row.Scan(
		&t.ID,
		&t.Prompt,
		&images,
		&outputImage,
		&status,
		&t.Error,
		&t.RetryCount,
		&view,
		&t.BatchID,
		&updatedAt,
		&createdAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	if err := json.Unmarshal(images, &t.InputImages); err != nil {
		return domain.Task{}, fmt.Errorf("failed to decode input images of task %s: %w", t.ID, err)
	}
	if len(t.InputImages) == 0 {
		t.InputImages = nil
	}
	t.OutputImage = domain.ImageRef(outputImage)
	t.Status = domain.TaskStatus(status)
	t.View = domain.View(view)
	t.Timestamp = time.Unix(0, updatedAt).UTC()
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	return t, nil
}

func encodeImages(images []domain.ImageRef) (string, error) {
	if images == nil {
		images = []domain.ImageRef{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("failed to encode input images: %w", err)
	}
	return string(b), nil
}

var _ task.TaskStore = (*TaskStore)(nil)
