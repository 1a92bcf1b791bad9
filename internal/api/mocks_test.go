package api

import (
	"context"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
	"github.com/phrazzld/studio-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockStudioService is a testify mock of service.StudioService.
type MockStudioService struct {
	mock.Mock
}

func (m *MockStudioService) Submit(ctx context.Context, in service.SubmitInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockStudioService) Rerun(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStudioService) Seed(ctx context.Context, id string) (domain.Seed, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Seed), args.Error(1)
}

func (m *MockStudioService) GetTask(ctx context.Context, id string) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *MockStudioService) ListTasks(ctx context.Context, view domain.View) ([]domain.Task, error) {
	args := m.Called(ctx, view)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *MockStudioService) Feed(ctx context.Context, view domain.View) ([]feed.DateGroup, error) {
	args := m.Called(ctx, view)
	groups, _ := args.Get(0).([]feed.DateGroup)
	return groups, args.Error(1)
}

func (m *MockStudioService) Modes() []mode.Mode {
	return m.Called().Get(0).([]mode.Mode)
}

var _ service.StudioService = (*MockStudioService)(nil)
