package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/studio-api/internal/domain"
)

// MemoryTaskStore is a TaskStore that keeps tasks in process memory. Tasks do
// not survive a restart.
type MemoryTaskStore struct {
	mu     sync.RWMutex
	tasks  map[string]domain.Task
	blocks [][]string
}

// NewMemoryTaskStore creates an empty in-memory store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]domain.Task),
	}
}

// Append implements TaskStore.
func (s *MemoryTaskStore) Append(ctx context.Context, tasks ...domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid task %s: %w", t.ID, err)
		}
		if _, exists := s.tasks[t.ID]; exists || seen[t.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = true
	}

	block := make([]string, 0, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = t.Clone()
		block = append(block, t.ID)
	}
	s.blocks = append(s.blocks, block)
	return nil
}

// Update implements TaskStore.
func (s *MemoryTaskStore) Update(ctx context.Context, id string, fn UpdateFunc) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.Task{}, err
	}
	next.ID = current.ID
	if err := next.Validate(); err != nil {
		return domain.Task{}, fmt.Errorf("invalid update for task %s: %w", id, err)
	}

	s.tasks[id] = next
	return next.Clone(), nil
}

// Get implements TaskStore.
func (s *MemoryTaskStore) Get(ctx context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// List implements TaskStore.
func (s *MemoryTaskStore) List(ctx context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0, len(s.tasks))
	for i := len(s.blocks) - 1; i >= 0; i-- {
		for _, id := range s.blocks[i] {
			out = append(out, s.tasks[id].Clone())
		}
	}
	return out, nil
}

// ListPending implements TaskStore.
func (s *MemoryTaskStore) ListPending(ctx context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Task
	for _, block := range s.blocks {
		for _, id := range block {
			if t := s.tasks[id]; t.Status == domain.TaskStatusPending {
				out = append(out, t.Clone())
			}
		}
	}
	return out, nil
}
