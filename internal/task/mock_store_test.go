package task

import (
	"context"
	"sync"

	"github.com/phrazzld/studio-api/internal/domain"
)

// MockTaskStore wraps a MemoryTaskStore and lets tests intercept calls and
// observe every stored version of a task.
type MockTaskStore struct {
	*MemoryTaskStore

	AppendFn      func(ctx context.Context, tasks ...domain.Task) error
	UpdateFn      func(ctx context.Context, id string, fn UpdateFunc) (domain.Task, error)
	ListPendingFn func(ctx context.Context) ([]domain.Task, error)

	mu      sync.Mutex
	history map[string][]domain.Task
}

// NewMockTaskStore creates a MockTaskStore with pass-through defaults.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		MemoryTaskStore: NewMemoryTaskStore(),
		history:         make(map[string][]domain.Task),
	}
}

func (m *MockTaskStore) Append(ctx context.Context, tasks ...domain.Task) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, tasks...)
	}
	if err := m.MemoryTaskStore.Append(ctx, tasks...); err != nil {
		return err
	}
	for _, t := range tasks {
		m.record(t)
	}
	return nil
}

func (m *MockTaskStore) Update(ctx context.Context, id string, fn UpdateFunc) (domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, fn)
	}
	t, err := m.MemoryTaskStore.Update(ctx, id, fn)
	if err == nil {
		m.record(t)
	}
	return t, err
}

func (m *MockTaskStore) ListPending(ctx context.Context) ([]domain.Task, error) {
	if m.ListPendingFn != nil {
		return m.ListPendingFn(ctx)
	}
	return m.MemoryTaskStore.ListPending(ctx)
}

// History returns every stored version of the task, oldest first.
func (m *MockTaskStore) History(id string) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.history[id]...)
}

func (m *MockTaskStore) record(t domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[t.ID] = append(m.history[t.ID], t)
}
