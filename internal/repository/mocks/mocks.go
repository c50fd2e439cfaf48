package mocks

import (
	"context"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) LoadProjects(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) LoadTemplates(ctx context.Context) ([]project.Template, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Template); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) SaveProjects(ctx context.Context, projects []project.Project) error {
	args := m.Called(ctx, projects)
	return args.Error(0)
}

func (m *ProjectRepository) SaveTemplates(ctx context.Context, templates []project.Template) error {
	args := m.Called(ctx, templates)
	return args.Error(0)
}

// ChangeRepository is a mock for repository.ChangeRepository.
type ChangeRepository struct {
	mock.Mock
}

func (m *ChangeRepository) Log(ctx context.Context, entry *changelog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ChangeRepository) List(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]changelog.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChangeRepository) Since(ctx context.Context, afterID int64, limit int) ([]changelog.Entry, error) {
	args := m.Called(ctx, afterID, limit)
	if list, ok := args.Get(0).([]changelog.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ChangePublisher is a mock for changelog.Publisher.
type ChangePublisher struct {
	mock.Mock
}

func (m *ChangePublisher) Publish(ctx context.Context, entry changelog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// ChangeRecorder is a mock for project.ChangeRecorder.
type ChangeRecorder struct {
	mock.Mock
}

func (m *ChangeRecorder) Record(ctx context.Context, entry *changelog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// KVStore is a mock for repository.KVStore.
type KVStore struct {
	mock.Mock
}

func (m *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *KVStore) Put(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *KVStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
