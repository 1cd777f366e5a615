package task

import (
	"context"
	"testing"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/user"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUserService struct {
	names map[uuid.UUID]string
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]user.User, error) {
	return nil, nil
}

func (s *stubUserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (s *stubUserService) ResolveNames(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = s.names[id]
	}
	return names, nil
}

func newTestService(t *testing.T, names map[uuid.UUID]string) (Service, Repository) {
	t.Helper()
	repo := NewRepository(docstore.NewMemoryStore())
	svc := NewService(repo, &stubUserService{names: names}, nil, zap.NewNop())
	return svc, repo
}

func seedTask(t *testing.T, repo Repository, task *Task) *Task {
	t.Helper()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = StatusNew
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateTask(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	svc, repo := newTestService(t, map[uuid.UUID]string{alice: "Alice", bob: "Bob"})

	created, err := svc.CreateTask(context.Background(), CreateTaskInput{
		TaskID:          "OPS-101",
		Name:            "Reconcile supplier invoices",
		AssignedMembers: []uuid.UUID{alice, bob},
		ExpectedKpi:     floatPtr(50),
		Subtasks:        []SubtaskInput{{Description: "Download statements"}},
		CreatorID:       alice,
		CreatorName:     "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusNew, created.Status)
	assert.Equal(t, []string{"Alice", "Bob"}, created.AssignedMemberNames)
	require.Len(t, created.StatusHistory, 1)
	assert.Equal(t, StatusNew, created.StatusHistory[0].Status)
	assert.Equal(t, alice, created.StatusHistory[0].ChangedBy)
	require.Len(t, created.Subtasks, 1)
	assert.NotEmpty(t, created.Subtasks[0].ID)
	assert.False(t, created.Subtasks[0].Completed)
	assert.Nil(t, created.Order)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)
}

func TestCreateTask_Validation(t *testing.T) {
	alice := uuid.New()
	svc, _ := newTestService(t, map[uuid.UUID]string{alice: "Alice"})

	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{
			name:  "missing name",
			input: CreateTaskInput{AssignedMembers: []uuid.UUID{alice}},
		},
		{
			name:  "no assigned members",
			input: CreateTaskInput{Name: "Orphan task"},
		},
		{
			name: "recurring without dates",
			input: CreateTaskInput{
				Name:            "Weekly report",
				AssignedMembers: []uuid.UUID{alice},
				Recurring:       true,
			},
		},
		{
			name: "recurring with bad frequency",
			input: CreateTaskInput{
				Name:               "Weekly report",
				AssignedMembers:    []uuid.UUID{alice},
				Recurring:          true,
				RecurringFrequency: []string{"someday"},
				RecurringStartDate: timePtr(time.Now()),
				RecurringEndDate:   timePtr(time.Now().AddDate(0, 1, 0)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(context.Background(), tt.input)
			assert.Error(t, err)
		})
	}
}

func timePtr(v time.Time) *time.Time { return &v }

func TestChangeStatus_KpiGate(t *testing.T) {
	alice := uuid.New()
	actor := Actor{ID: alice, Name: "Alice"}

	tests := []struct {
		name    string
		task    *Task
		wantErr error
	}{
		{
			name: "actual KPI missing",
			task: &Task{
				Name:            "Ship monthly report",
				AssignedMembers: []uuid.UUID{alice},
				Status:          StatusProgress,
				ExpectedKpi:     floatPtr(100),
			},
			wantErr: ErrKpiMissing,
		},
		{
			name: "actual KPI below expected",
			task: &Task{
				Name:            "Ship monthly report",
				AssignedMembers: []uuid.UUID{alice},
				Status:          StatusProgress,
				ExpectedKpi:     floatPtr(100),
				ActualKpi:       floatPtr(90),
			},
			wantErr: ErrKpiNotMet,
		},
		{
			name: "actual KPI above expected",
			task: &Task{
				Name:            "Ship monthly report",
				AssignedMembers: []uuid.UUID{alice},
				Status:          StatusProgress,
				ExpectedKpi:     floatPtr(100),
				ActualKpi:       floatPtr(110),
			},
			wantErr: ErrKpiNotMet,
		},
		{
			name: "actual KPI matches",
			task: &Task{
				Name:            "Ship monthly report",
				AssignedMembers: []uuid.UUID{alice},
				Status:          StatusProgress,
				ExpectedKpi:     floatPtr(100),
				ActualKpi:       floatPtr(100),
			},
		},
		{
			name: "no expected KPI set",
			task: &Task{
				Name:            "Ship monthly report",
				AssignedMembers: []uuid.UUID{alice},
				Status:          StatusProgress,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, nil)
			seedTask(t, repo, tt.task)

			updated, err := svc.ChangeStatus(context.Background(), tt.task.ID, StatusComplete, actor)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				// A rejected completion must leave the stored status alone.
				stored, getErr := repo.FindByID(context.Background(), tt.task.ID)
				require.NoError(t, getErr)
				assert.Equal(t, StatusProgress, stored.Status)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StatusComplete, updated.Status)
			require.NotEmpty(t, updated.StatusHistory)
			last := updated.StatusHistory[len(updated.StatusHistory)-1]
			assert.Equal(t, StatusComplete, last.Status)
			assert.Equal(t, alice, last.ChangedBy)
		})
	}
}

func TestChangeStatus_Permissions(t *testing.T) {
	alice := uuid.New()
	stranger := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Rotate on-call schedule",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusNew,
	})

	_, err := svc.ChangeStatus(context.Background(), task.ID, StatusProgress, Actor{ID: stranger, Name: "Mallory"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Privileged actors bypass the assignment check.
	updated, err := svc.ChangeStatus(context.Background(), task.ID, StatusProgress, Actor{ID: stranger, Name: "Ops Admin", Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, StatusProgress, updated.Status)
}

func TestChangeStatus_AnyToAny(t *testing.T) {
	alice := uuid.New()
	actor := Actor{ID: alice, Name: "Alice"}
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Audit access logs",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusComplete,
	})

	// Reopening a completed task is allowed.
	updated, err := svc.ChangeStatus(context.Background(), task.ID, StatusNew, actor)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, updated.Status)
	require.NotEmpty(t, updated.StatusHistory)
	assert.Equal(t, StatusNew, updated.StatusHistory[len(updated.StatusHistory)-1].Status)
}

func TestChangeStatus_RedundantWrite(t *testing.T) {
	alice := uuid.New()
	actor := Actor{ID: alice, Name: "Alice"}
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Prepare board deck",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusProgress,
		StatusHistory: []StatusEntry{
			{Status: StatusNew, Timestamp: time.Now().UTC().Add(-time.Hour)},
			{Status: StatusProgress, Timestamp: time.Now().UTC().Add(-time.Minute)},
		},
	})

	updated, err := svc.ChangeStatus(context.Background(), task.ID, StatusProgress, actor)
	require.NoError(t, err)
	assert.Equal(t, StatusProgress, updated.Status)
	assert.Len(t, updated.StatusHistory, 2, "same-status writes must not grow the history")
	assert.True(t, updated.UpdatedAt.After(task.CreatedAt))
}

func TestChangeStatus_Errors(t *testing.T) {
	alice := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Triage inbox",
		AssignedMembers: []uuid.UUID{alice},
	})

	_, err := svc.ChangeStatus(context.Background(), uuid.New(), StatusProgress, Actor{ID: alice})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = svc.ChangeStatus(context.Background(), task.ID, Status("Archived"), Actor{ID: alice})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCollaborativeCompletion(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Quarterly stock count",
		AssignedMembers: []uuid.UUID{alice, bob},
		Collaborative:   true,
		Status:          StatusProgress,
	})
	ctx := context.Background()

	// First member completes their part; the task stays in Progress.
	updated, err := svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, StatusProgress, updated.Status)
	require.Len(t, updated.CompletedBy, 1)
	assert.Equal(t, alice, updated.CompletedBy[0].UserID)
	require.NotEmpty(t, updated.StatusHistory)
	assert.Equal(t, "Alice completed their part", updated.StatusHistory[len(updated.StatusHistory)-1].Note)

	// The same member completing again is a silent no-op.
	updated, err = svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	assert.Len(t, updated.CompletedBy, 1)

	// The last member tips the task into Complete.
	updated, err = svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: bob, Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, updated.Status)
	require.Len(t, updated.CompletedBy, 2)
	last := updated.StatusHistory[len(updated.StatusHistory)-1]
	assert.Equal(t, StatusComplete, last.Status)
	assert.Equal(t, "all members completed", last.Note)
}

func TestCollaborativeCompletion_RedundantCompleteStaysQuiet(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		TaskID:             "OPS-77",
		Name:               "Weekly stock count",
		AssignedMembers:    []uuid.UUID{alice, bob},
		Collaborative:      true,
		Status:             StatusProgress,
		Recurring:          true,
		RecurringFrequency: []string{"monday"},
		RecurringStartDate: timePtr(time.Now().UTC().AddDate(0, -1, 0)),
		RecurringEndDate:   timePtr(time.Now().UTC().AddDate(0, 1, 0)),
	})
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: bob, Name: "Bob"})
	require.NoError(t, err)

	spawned, err := repo.FindByStatus(ctx, StatusNew)
	require.NoError(t, err)
	require.Len(t, spawned, 1, "completion spawns exactly one occurrence")

	// An admin re-posting Complete, e.g. dragging the card within its own
	// column, must not touch the ledger or spawn another occurrence.
	updated, err := svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: uuid.New(), Name: "Ops Admin", Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, updated.Status)
	assert.Len(t, updated.CompletedBy, 2)

	// Neither does an assigned member re-posting it.
	updated, err = svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	assert.Len(t, updated.CompletedBy, 2)

	spawned, err = repo.FindByStatus(ctx, StatusNew)
	require.NoError(t, err)
	assert.Len(t, spawned, 1)

	stored, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, stored.CompletedBy, 2)
}

func TestCollaborativeCompletion_ForcedByAdminSkipsLedger(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	admin := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Quarterly stock count",
		AssignedMembers: []uuid.UUID{alice, bob},
		Collaborative:   true,
		Status:          StatusProgress,
	})

	// A privileged non-member forces the status directly; the ledger records
	// member completions only.
	updated, err := svc.ChangeStatus(context.Background(), task.ID, StatusComplete, Actor{ID: admin, Name: "Ops Admin", Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, updated.Status)
	assert.Empty(t, updated.CompletedBy)
}

func TestCollaborativeCompletion_KpiGate(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Close month-end books",
		AssignedMembers: []uuid.UUID{alice, bob},
		Collaborative:   true,
		Status:          StatusProgress,
		ExpectedKpi:     floatPtr(100),
		ActualKpi:       floatPtr(90),
	})
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)

	// The last member's completion hits the KPI gate; the ledger entry is
	// kept even though Complete is rejected.
	_, err = svc.ChangeStatus(ctx, task.ID, StatusComplete, Actor{ID: bob, Name: "Bob"})
	require.ErrorIs(t, err, ErrKpiNotMet)

	stored, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProgress, stored.Status)
	assert.Len(t, stored.CompletedBy, 2)
}

func TestUpdateTask(t *testing.T) {
	alice := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Draft incident review",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusProgress,
	})

	name := "Publish incident review"
	updated, err := svc.UpdateTask(context.Background(), task.ID, UpdateTaskInput{
		Name:      &name,
		ActualKpi: floatPtr(7),
	}, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	require.NotNil(t, updated.ActualKpi)
	assert.Equal(t, 7.0, *updated.ActualKpi)
	assert.Equal(t, StatusProgress, updated.Status, "content updates never move status")

	_, err = svc.UpdateTask(context.Background(), task.ID, UpdateTaskInput{Name: &name}, Actor{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
