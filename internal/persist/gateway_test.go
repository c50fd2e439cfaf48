package persist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/persist"
	"github.com/rpggio/plantrack/internal/repository"
	"github.com/rpggio/plantrack/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGatewayDefaultsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(persist.NewMemoryKV(), nil)

	projects, err := gw.LoadProjects(ctx)
	require.NoError(t, err)
	require.NotNil(t, projects)
	require.Empty(t, projects)

	templates, err := gw.LoadTemplates(ctx)
	require.NoError(t, err)
	require.Equal(t, []project.Template{project.DefaultTemplate()}, templates)
}

func TestGatewayRoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	gw := persist.NewGateway(kv, nil)

	in := []project.Project{
		{ID: "b", Name: "B", Contacts: []project.Contact{}, Risks: []project.Risk{}, Activities: []project.Activity{
			{ID: "2", Date: "2026-05-01"}, {ID: "1", Date: "2026-01-01"},
		}},
		{ID: "a", Name: "A", Status: project.StatusCompleted, Contacts: []project.Contact{}, Risks: []project.Risk{}, Activities: []project.Activity{}},
	}
	require.NoError(t, gw.SaveProjects(ctx, in))

	raw, err := kv.Get(ctx, persist.ProjectsKey)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"activities"`)

	out, err := gw.LoadProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestGatewaySavedEmptyTemplatesStayEmpty(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(persist.NewMemoryKV(), nil)
	require.NoError(t, gw.SaveTemplates(ctx, nil))

	templates, err := gw.LoadTemplates(ctx)
	require.NoError(t, err)
	require.Empty(t, templates)
}

func TestGatewayPropagatesStorageErrors(t *testing.T) {
	ctx := context.Background()
	kv := &mocks.KVStore{}
	kv.On("Get", ctx, persist.ProjectsKey).Return(nil, errors.New("io"))
	kv.On("Put", ctx, persist.TemplatesKey, mock.Anything).Return(errors.New("full"))

	gw := persist.NewGateway(kv, nil)
	_, err := gw.LoadProjects(ctx)
	require.Error(t, err)
	require.Error(t, gw.SaveTemplates(ctx, []project.Template{}))
}

func TestGatewayCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	require.NoError(t, kv.Put(ctx, persist.ProjectsKey, []byte("{not json")))

	_, err := persist.NewGateway(kv, nil).LoadProjects(ctx)
	require.Error(t, err)
}

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	_, err := kv.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrNotFound)

	buf := []byte("v1")
	require.NoError(t, kv.Put(ctx, "k", buf))
	buf[0] = 'x'
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestServiceOverGatewayPersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	gw := persist.NewGateway(kv, nil)

	store, err := project.LoadStore(ctx, gw)
	require.NoError(t, err)
	svc := project.NewService(store, gw, nil)

	created, err := svc.Create(ctx, project.CreateRequest{TemplateID: project.DefaultTemplate().ID})
	require.NoError(t, err)

	reloaded, err := project.LoadStore(ctx, gw)
	require.NoError(t, err)
	got, ok := reloaded.Project(created.ID)
	require.True(t, ok)
	require.Equal(t, *created, got)
}
