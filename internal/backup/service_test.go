package backup_test

import (
	"context"
	"testing"

	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) *project.Service {
	t.Helper()
	store, err := project.NewStore(
		[]project.Project{{ID: "p1", Name: "Existing"}},
		[]project.Template{project.DefaultTemplate()},
	)
	require.NoError(t, err)
	return project.NewService(store, nil, nil)
}

func TestServiceExportRestore(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t)
	archive, err := backup.NewDirArchive(t.TempDir())
	require.NoError(t, err)
	svc := backup.NewService(tracker, archive, nil)

	name, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Regexp(t, `^PM_System_Backup_\d{8}\.json$`, name)

	_, err = svc.Import(ctx, []byte(`{"projects":[],"templates":[]}`))
	require.NoError(t, err)
	require.Empty(t, tracker.Snapshot().Projects)
	require.Empty(t, tracker.Snapshot().Templates)

	doc, err := svc.Restore(ctx, name)
	require.NoError(t, err)
	require.Len(t, doc.Projects, 1)
	require.Equal(t, project.ID("p1"), tracker.Snapshot().Projects[0].ID)
	require.Len(t, tracker.Snapshot().Templates, 1)

	names, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{name}, names)
}

func TestServiceImportMalformedLeavesStore(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t)
	svc := backup.NewService(tracker, nil, nil)
	before := tracker.Snapshot()

	_, err := svc.Import(ctx, []byte(`{"projects": [{"id": "x"}, {"id": "x"}]}`))
	require.ErrorIs(t, err, backup.ErrMalformed)
	_, err = svc.Import(ctx, []byte(`garbage`))
	require.ErrorIs(t, err, backup.ErrMalformed)

	require.Equal(t, before, tracker.Snapshot())
}

func TestServiceLegacyImportKeepsTemplates(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t)
	svc := backup.NewService(tracker, nil, nil)

	_, err := svc.Import(ctx, []byte(`[{"id": 1, "name": "legacy"}]`))
	require.NoError(t, err)
	snap := tracker.Snapshot()
	require.Equal(t, "legacy", snap.Projects[0].Name)
	require.Len(t, snap.Templates, 1)

	data, err := svc.Document()
	require.NoError(t, err)
	require.Contains(t, string(data), `"legacy"`)

	_, err = svc.Export(ctx)
	require.Error(t, err)
}
