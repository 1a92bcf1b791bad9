package service

import (
	"context"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockTaskScheduler mocks the TaskScheduler interface
type MockTaskScheduler struct {
	mock.Mock
}

func (m *MockTaskScheduler) CreateTask(ctx context.Context, sub domain.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockTaskScheduler) Rerun(ctx context.Context, original domain.Task) error {
	args := m.Called(ctx, original)
	return args.Error(0)
}

// MockTaskReader mocks the TaskReader interface
type MockTaskReader struct {
	mock.Mock
}

func (m *MockTaskReader) Get(ctx context.Context, id string) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *MockTaskReader) List(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}
