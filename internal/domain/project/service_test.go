package project_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() project.ID {
	n := 0
	return func() project.ID {
		n++
		return project.ID(fmt.Sprintf("id-%d", n))
	}
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse(project.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func sampleProject(id string) project.Project {
	return project.Project{
		ID:       project.ID(id),
		Name:     "Project " + id,
		Org:      "Org",
		Status:   project.StatusActive,
		Contacts: []project.Contact{{Name: "PM", Info: "pm@example.com"}},
		Risks:    []project.Risk{{Level: project.RiskHigh, Desc: "scope"}},
		Activities: []project.Activity{
			{ID: "a1", Date: "2026-02-01", Name: "first", Status: project.ActivityDone, Type: project.TypeDeadline},
			{ID: "a2", Date: "2026-01-15", Name: "second", Status: project.ActivityPending, Type: project.TypeActivity},
			{ID: "a3", Date: "2026-03-01", Name: "third", Status: project.ActivityBlocked, Type: project.TypeActivity},
		},
	}
}

func newService(t *testing.T, projects []project.Project, templates []project.Template, opts ...project.Option) *project.Service {
	t.Helper()
	store, err := project.NewStore(projects, templates)
	require.NoError(t, err)
	opts = append([]project.Option{project.WithIDGenerator(sequentialIDs()), project.WithClock(fixedClock("2025-07-04"))}, opts...)
	return project.NewService(store, nil, nil, opts...)
}

func TestProjectService_CreateFromTemplate(t *testing.T) {
	ctx := context.Background()
	tpl := project.DefaultTemplate()
	tpl.Activities[0].Status = project.ActivityDone
	existing := sampleProject("p1")
	svc := newService(t, []project.Project{existing}, []project.Template{tpl})

	created, err := svc.Create(ctx, project.CreateRequest{TemplateID: tpl.ID})
	require.NoError(t, err)
	require.Equal(t, tpl.Name+" (Copy)", created.Name)
	require.Equal(t, tpl.Org, created.Org)
	require.Equal(t, project.StatusActive, created.Status)
	require.Len(t, created.Activities, len(tpl.Activities))

	seen := map[project.ID]bool{}
	for i, a := range created.Activities {
		require.Equal(t, project.ActivityPending, a.Status)
		require.Equal(t, tpl.Activities[i].Name, a.Name)
		require.Equal(t, tpl.Activities[i].Date, a.Date)
		require.NotEqual(t, tpl.Activities[i].ID, a.ID)
		require.False(t, seen[a.ID])
		seen[a.ID] = true
	}

	snap := svc.Snapshot()
	require.Len(t, snap.Projects, 2)
	require.Equal(t, created.ID, snap.Projects[0].ID)
	require.Equal(t, existing.ID, snap.Projects[1].ID)

	// the template itself is untouched
	stored, ok := svc.Store().Template(tpl.ID)
	require.True(t, ok)
	require.Equal(t, project.ActivityDone, stored.Activities[0].Status)
}

func TestProjectService_CreateBlank(t *testing.T) {
	svc := newService(t, nil, nil)
	created, err := svc.Create(context.Background(), project.CreateRequest{})
	require.NoError(t, err)
	require.Equal(t, "New Project", created.Name)
	require.NotNil(t, created.Activities)
	require.Empty(t, created.Activities)
}

func TestProjectService_CreateUnknownTemplate(t *testing.T) {
	svc := newService(t, nil, nil)
	_, err := svc.Create(context.Background(), project.CreateRequest{TemplateID: "missing"})
	require.ErrorIs(t, err, project.ErrTemplateNotFound)
	require.Empty(t, svc.Snapshot().Projects)
}

func TestProjectService_SaveAsTemplate(t *testing.T) {
	ctx := context.Background()
	p := sampleProject("p1")
	p.Activities[0].Note = "private"
	svc := newService(t, []project.Project{p}, []project.Template{project.DefaultTemplate()})

	tpl, err := svc.SaveAsTemplate(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "[Template] Project p1", tpl.Name)
	for _, a := range tpl.Activities {
		require.Equal(t, project.ActivityPending, a.Status)
		require.Empty(t, a.Note)
	}
	templates := svc.Snapshot().Templates
	require.Len(t, templates, 2)
	require.Equal(t, tpl.ID, templates[0].ID)

	source, _ := svc.Store().Project(p.ID)
	require.Equal(t, "private", source.Activities[0].Note)
}

func TestProjectService_ToggleStatusKeepsActivities(t *testing.T) {
	ctx := context.Background()
	p := sampleProject("p1")
	p.Status = ""
	svc := newService(t, []project.Project{p}, nil)

	status, err := svc.ToggleStatus(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, project.StatusCompleted, status)

	status, err = svc.ToggleStatus(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, project.StatusActive, status)

	got, _ := svc.Store().Project(p.ID)
	require.Equal(t, p.Activities, got.Activities)
}

func TestProjectService_UpdateProjectPatch(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	name := "Renamed"
	updated, err := svc.UpdateProject(context.Background(), "p1", project.DetailsPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "Org", updated.Org)

	_, err = svc.UpdateProject(context.Background(), "nope", project.DetailsPatch{Name: &name})
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_DeleteAndUndoProject(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1"), sampleProject("p2"), sampleProject("p3")}, nil)

	deleted, err := svc.DeleteProject(ctx, "p2")
	require.NoError(t, err)
	require.True(t, deleted)
	require.True(t, svc.CanUndo())
	require.Len(t, svc.Snapshot().Projects, 2)

	d, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, project.DeletedProject, d.Kind)
	require.False(t, svc.CanUndo())

	snap := svc.Snapshot()
	require.Equal(t, []project.ID{"p1", "p2", "p3"}, []project.ID{snap.Projects[0].ID, snap.Projects[1].ID, snap.Projects[2].ID})
	require.Equal(t, sampleProject("p2"), snap.Projects[1])
}

func TestProjectService_DeleteAbsentProjectIsNoop(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	version := svc.Store().Version()

	deleted, err := svc.DeleteProject(context.Background(), "gone")
	require.NoError(t, err)
	require.False(t, deleted)
	require.False(t, svc.CanUndo())
	require.Equal(t, version, svc.Store().Version())
}

func TestProjectService_UndoHoldsOnlyLatestDeletion(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1"), sampleProject("p2")}, nil)

	_, err := svc.DeleteProject(ctx, "p1")
	require.NoError(t, err)
	_, err = svc.DeleteProject(ctx, "p2")
	require.NoError(t, err)

	d, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, project.ID("p2"), d.TargetID())

	_, applied, err = svc.Undo(ctx)
	require.NoError(t, err)
	require.False(t, applied)

	snap := svc.Snapshot()
	require.Len(t, snap.Projects, 1)
	require.Equal(t, project.ID("p2"), snap.Projects[0].ID)
}

func TestProjectService_DeleteAndUndoActivity(t *testing.T) {
	ctx := context.Background()
	p := sampleProject("p1")
	svc := newService(t, []project.Project{p}, nil)

	deleted, err := svc.DeleteActivity(ctx, "p1", 1)
	require.NoError(t, err)
	require.True(t, deleted)

	got, _ := svc.Store().Project("p1")
	require.Len(t, got.Activities, 2)

	_, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, applied)

	got, _ = svc.Store().Project("p1")
	require.Equal(t, p.Activities, got.Activities)
}

func TestProjectService_UndoActivityAfterParentDeleted(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1"), sampleProject("p2")}, nil)

	_, err := svc.DeleteActivity(ctx, "p1", 0)
	require.NoError(t, err)

	// deleting the parent replaces the held activity
	_, err = svc.DeleteProject(ctx, "p1")
	require.NoError(t, err)
	_, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, applied)

	got, ok := svc.Store().Project("p1")
	require.True(t, ok)
	require.Len(t, got.Activities, 2)
}

func TestProjectService_ImportClearsUndo(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1"), sampleProject("p2")}, nil)

	_, err := svc.DeleteActivity(ctx, "p1", 0)
	require.NoError(t, err)

	require.NoError(t, svc.Import(ctx, []project.Project{sampleProject("p2")}, nil))
	require.False(t, svc.CanUndo())

	version := svc.Store().Version()
	_, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, version, svc.Store().Version())
}

func TestProjectService_DeleteActivityOutOfRange(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	deleted, err := svc.DeleteActivity(context.Background(), "p1", 9)
	require.NoError(t, err)
	require.False(t, deleted)
	require.False(t, svc.CanUndo())
}

func TestProjectService_DeleteAndUndoTemplate(t *testing.T) {
	ctx := context.Background()
	tpl := project.DefaultTemplate()
	svc := newService(t, nil, []project.Template{tpl})

	deleted, err := svc.DeleteTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Empty(t, svc.Snapshot().Templates)

	_, applied, err := svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, []project.Template{tpl}, svc.Snapshot().Templates)
}

func TestProjectService_MoveActivity(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)

	require.NoError(t, svc.MoveActivity(ctx, "p1", 0, 2))
	got, _ := svc.Store().Project("p1")
	require.Equal(t, []project.ID{"a2", "a3", "a1"}, activityIDs(got.Activities))
	require.Equal(t, project.ActivityDone, got.Activities[2].Status)

	require.NoError(t, svc.MoveActivity(ctx, "p1", 2, 0))
	got, _ = svc.Store().Project("p1")
	require.Equal(t, []project.ID{"a1", "a2", "a3"}, activityIDs(got.Activities))

	require.ErrorIs(t, svc.MoveActivity(ctx, "p1", 0, 3), project.ErrIndexOutOfRange)
}

func TestProjectService_DragActivityByID(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)

	require.NoError(t, svc.DragActivity(ctx, "p1", "a3", 0))
	require.NoError(t, svc.DragActivity(ctx, "p1", "a3", 1))
	require.NoError(t, svc.DragActivity(ctx, "p1", "a3", 99))

	got, _ := svc.Store().Project("p1")
	require.Equal(t, []project.ID{"a1", "a2", "a3"}, activityIDs(got.Activities))
	require.ErrorIs(t, svc.DragActivity(ctx, "p1", "zz", 0), project.ErrActivityNotFound)
}

func TestProjectService_SortActivitiesStable(t *testing.T) {
	ctx := context.Background()
	p := sampleProject("p1")
	p.Activities = append(p.Activities,
		project.Activity{ID: "a4", Date: "2026-01-15", Name: "tie"},
	)
	svc := newService(t, []project.Project{p}, nil)

	require.NoError(t, svc.SortActivities(ctx, "p1"))
	got, _ := svc.Store().Project("p1")
	require.Equal(t, []project.ID{"a2", "a4", "a1", "a3"}, activityIDs(got.Activities))

	require.NoError(t, svc.SortActivities(ctx, "p1"))
	again, _ := svc.Store().Project("p1")
	require.Equal(t, got.Activities, again.Activities)
}

func TestProjectService_DropOnBucket(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)

	status, err := svc.DropOnBucket(ctx, "p1", "a3", project.BucketRiskBlocked)
	require.NoError(t, err)
	require.Equal(t, project.ActivityBlocked, status)

	status, err = svc.DropOnBucket(ctx, "p1", "a2", project.BucketRiskBlocked)
	require.NoError(t, err)
	require.Equal(t, project.ActivityRisk, status)

	status, err = svc.DropOnBucket(ctx, "p1", "a3", project.BucketDone)
	require.NoError(t, err)
	require.Equal(t, project.ActivityDone, status)

	_, err = svc.DropOnBucket(ctx, "p1", "a1", project.Bucket("archive"))
	require.ErrorIs(t, err, project.ErrUnknownBucket)
}

func TestProjectService_AddActivityDefaults(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	a, err := svc.AddActivity(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "2026-07-04", a.Date)
	require.Equal(t, project.ActivityPending, a.Status)
	require.Equal(t, project.TypeActivity, a.Type)

	got, _ := svc.Store().Project("p1")
	require.Equal(t, a.ID, got.Activities[len(got.Activities)-1].ID)
}

func TestProjectService_TemplateActivities(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, nil)
	tpl, err := svc.CreateTemplate(ctx)
	require.NoError(t, err)
	require.Equal(t, "New Template", tpl.Name)

	a, err := svc.AddTemplateActivity(ctx, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, "2026-01-01", a.Date)
	require.Equal(t, "New milestone", a.Name)

	owner := "QA"
	updated, err := svc.UpdateTemplateActivity(ctx, tpl.ID, a.ID, project.ActivityPatch{Owner: &owner})
	require.NoError(t, err)
	require.Equal(t, "QA", updated.Owner)

	deleted, err := svc.DeleteTemplateActivity(ctx, tpl.ID, 0)
	require.NoError(t, err)
	require.True(t, deleted)
	require.False(t, svc.CanUndo())
}

func TestProjectService_UpdateActivityValidation(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	bad := project.ActivityStatus("finished")
	_, err := svc.UpdateActivity(context.Background(), "p1", "a1", project.ActivityPatch{Status: &bad})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	blank := ""
	updated, err := svc.UpdateActivity(context.Background(), "p1", "a1", project.ActivityPatch{Name: &blank})
	require.NoError(t, err)
	require.Empty(t, updated.Name)

	_, err = svc.UpdateActivity(context.Background(), "p1", "zz", project.ActivityPatch{Name: &blank})
	require.ErrorIs(t, err, project.ErrActivityNotFound)
}

func TestProjectService_ContactsAndRisks(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)

	idx, err := svc.AddContact(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	name := "QA"
	c, err := svc.UpdateContact(ctx, "p1", idx, project.ContactPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "QA", c.Name)
	removed, err := svc.RemoveContact(ctx, "p1", 0)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = svc.RemoveContact(ctx, "p1", 5)
	require.NoError(t, err)
	require.False(t, removed)

	idx, err = svc.AddRisk(ctx, "p1")
	require.NoError(t, err)
	got, _ := svc.Store().Project("p1")
	require.Equal(t, project.RiskMed, got.Risks[idx].Level)

	bad := project.RiskLevel("critical")
	_, err = svc.UpdateRisk(ctx, "p1", idx, project.RiskPatch{Level: &bad})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	low := project.RiskLow
	r, err := svc.UpdateRisk(ctx, "p1", idx, project.RiskPatch{Level: &low})
	require.NoError(t, err)
	require.Equal(t, project.RiskLow, r.Level)

	_, err = svc.UpdateRisk(ctx, "p1", 10, project.RiskPatch{Level: &low})
	require.ErrorIs(t, err, project.ErrIndexOutOfRange)

	removed, err = svc.RemoveRisk(ctx, "p1", 0)
	require.NoError(t, err)
	require.True(t, removed)
	require.False(t, svc.CanUndo())
}

func TestProjectService_ImportReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	tpl := project.DefaultTemplate()
	svc := newService(t, []project.Project{sampleProject("p1")}, []project.Template{tpl})

	incoming := []project.Project{{ID: "x", Name: "Imported"}}
	require.NoError(t, svc.Import(ctx, incoming, nil))

	snap := svc.Snapshot()
	require.Len(t, snap.Projects, 1)
	require.NotNil(t, snap.Projects[0].Activities)
	require.Equal(t, []project.Template{tpl}, snap.Templates)

	require.NoError(t, svc.Import(ctx, incoming, []project.Template{}))
	require.Empty(t, svc.Snapshot().Templates)
}

func TestProjectService_ImportDuplicateLeavesStoreUntouched(t *testing.T) {
	svc := newService(t, []project.Project{sampleProject("p1")}, nil)
	before := svc.Snapshot()

	err := svc.Import(context.Background(), []project.Project{{ID: "x"}, {ID: "x"}}, nil)
	require.ErrorIs(t, err, project.ErrDuplicateID)
	require.Equal(t, before, svc.Snapshot())
}

func TestProjectService_SavesDirtyCollections(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("SaveProjects", ctx, mock.MatchedBy(func(ps []project.Project) bool {
		return len(ps) == 2
	})).Return(nil).Once()

	store, err := project.NewStore([]project.Project{sampleProject("p1")}, []project.Template{project.DefaultTemplate()})
	require.NoError(t, err)
	svc := project.NewService(store, repo, nil, project.WithIDGenerator(sequentialIDs()))

	_, err = svc.Create(ctx, project.CreateRequest{})
	require.NoError(t, err)
	require.Zero(t, store.Dirty())
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "SaveTemplates", mock.Anything, mock.Anything)
}

func TestProjectService_SaveFailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("SaveProjects", ctx, mock.Anything).Return(errors.New("quota exceeded")).Once()
	repo.On("SaveProjects", ctx, mock.Anything).Return(nil).Once()

	store, err := project.NewStore([]project.Project{sampleProject("p1")}, nil)
	require.NoError(t, err)
	svc := project.NewService(store, repo, nil)

	_, err = svc.ToggleStatus(ctx, "p1")
	require.NoError(t, err)
	require.True(t, store.Dirty().Has(project.CollectionProjects))

	require.NoError(t, svc.Flush(ctx))
	require.Zero(t, store.Dirty())
	repo.AssertExpectations(t)
}

func TestProjectService_RecordsChanges(t *testing.T) {
	ctx := context.Background()
	recorder := &mocks.ChangeRecorder{}
	recorder.On("Record", ctx, mock.MatchedBy(func(e *changelog.Entry) bool {
		return e.Kind == changelog.KindProjectDeleted && e.ProjectID != nil && *e.ProjectID == "p1" && e.Version == 1
	})).Return(nil).Once()

	svc := newService(t, []project.Project{sampleProject("p1")}, nil, project.WithChangeRecorder(recorder))
	_, err := svc.DeleteProject(ctx, "p1")
	require.NoError(t, err)

	// no-op deletes commit nothing and record nothing
	_, err = svc.DeleteProject(ctx, "p1")
	require.NoError(t, err)
	recorder.AssertExpectations(t)
}

func TestLoadStoreNormalizesCollections(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("LoadProjects", ctx).Return([]project.Project{{ID: "p1", Name: "legacy"}}, nil)
	repo.On("LoadTemplates", ctx).Return([]project.Template{project.DefaultTemplate()}, nil)

	store, err := project.LoadStore(ctx, repo)
	require.NoError(t, err)
	p, ok := store.Project("p1")
	require.True(t, ok)
	require.NotNil(t, p.Contacts)
	require.NotNil(t, p.Risks)
	require.NotNil(t, p.Activities)
	require.Equal(t, project.StatusActive, p.EffectiveStatus())
}

func activityIDs(list []project.Activity) []project.ID {
	ids := make([]project.ID, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}
