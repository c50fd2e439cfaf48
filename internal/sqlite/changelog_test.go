package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/stretchr/testify/require"
)

func TestChangeRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewChangeRepository(db)

	projectID := "p1"
	entry1 := &changelog.Entry{
		Kind:      changelog.KindProjectCreated,
		ProjectID: &projectID,
		Summary:   "created project",
		Version:   1,
	}
	entry2 := &changelog.Entry{
		Kind:      changelog.KindProjectDeleted,
		ProjectID: &projectID,
		Summary:   "deleted project",
		Version:   2,
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)
	require.False(t, entry1.CreatedAt.IsZero())

	entries, err := repo.List(ctx, changelog.ListOptions{ProjectID: &projectID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.Kind, entries[0].Kind)
	require.Equal(t, uint64(2), entries[0].Version)
	require.Equal(t, entry1.Kind, entries[1].Kind)
	require.Nil(t, entries[1].TemplateID)
}

func TestChangeRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewChangeRepository(db)

	p1, p2, tpl := "p1", "p2", "t1"
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindActivityAdded, ProjectID: &p1, Summary: "a", Version: 1}))
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindActivityMoved, ProjectID: &p1, Summary: "b", Version: 2}))
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindActivityAdded, ProjectID: &p2, Summary: "c", Version: 3}))
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindTemplateCreated, TemplateID: &tpl, Summary: "d", Version: 4}))

	kind := changelog.KindActivityAdded
	entries, err := repo.List(ctx, changelog.ListOptions{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, changelog.ListOptions{TemplateID: &tpl})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "d", entries[0].Summary)

	entries, err = repo.List(ctx, changelog.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "c", entries[0].Summary)

	entries, err = repo.List(ctx, changelog.ListOptions{ProjectID: &tpl})
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestChangeRepository_SinceIsOldestFirst(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewChangeRepository(db)

	first := &changelog.Entry{Kind: changelog.KindProjectCreated, Summary: "a", Version: 1}
	require.NoError(t, repo.Log(ctx, first))
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindActivityAdded, Summary: "b", Version: 2}))
	require.NoError(t, repo.Log(ctx, &changelog.Entry{Kind: changelog.KindActivityMoved, Summary: "c", Version: 3}))

	entries, err := repo.Since(ctx, first.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b", entries[0].Summary)

	entries, err = repo.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "a", entries[0].Summary)
	require.Equal(t, "c", entries[2].Summary)

	entries, err = repo.Since(ctx, entries[2].ID, 10)
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}
