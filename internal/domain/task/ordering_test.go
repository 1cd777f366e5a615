package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func seedColumn(t *testing.T, repo Repository, status Status, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		task := seedTask(t, repo, &Task{
			Name:            "Task",
			AssignedMembers: []uuid.UUID{uuid.New()},
			Status:          status,
			Order:           intPtr(i),
		})
		ids[i] = task.ID
	}
	return ids
}

func columnIDs(t *testing.T, svc Service, status Status) []uuid.UUID {
	t.Helper()
	board, err := svc.BoardColumns(context.Background())
	require.NoError(t, err)
	col := board[status]
	ids := make([]uuid.UUID, len(col))
	for i := range col {
		ids[i] = col[i].ID
	}
	return ids
}

func TestReorderWithinColumn(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ids := seedColumn(t, repo, StatusProgress, 5)

	// Move the third task to the top.
	err := svc.ReorderWithinColumn(context.Background(), StatusProgress, ids[2], 0)
	require.NoError(t, err)

	got := columnIDs(t, svc, StatusProgress)
	want := []uuid.UUID{ids[2], ids[0], ids[1], ids[3], ids[4]}
	assert.Equal(t, want, got)

	// Orders are dense from zero after the renumber.
	board, err := svc.BoardColumns(context.Background())
	require.NoError(t, err)
	for i, task := range board[StatusProgress] {
		require.NotNil(t, task.Order)
		assert.Equal(t, i, *task.Order)
	}
}

func TestReorderWithinColumn_ClampsOutOfRangeIndex(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ids := seedColumn(t, repo, StatusNew, 3)

	err := svc.ReorderWithinColumn(context.Background(), StatusNew, ids[0], 99)
	require.NoError(t, err)
	got := columnIDs(t, svc, StatusNew)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0]}, got)

	err = svc.ReorderWithinColumn(context.Background(), StatusNew, ids[0], -5)
	require.NoError(t, err)
	got = columnIDs(t, svc, StatusNew)
	assert.Equal(t, []uuid.UUID{ids[0], ids[1], ids[2]}, got)
}

func TestReorderWithinColumn_InPlaceDropIsNoop(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ids := seedColumn(t, repo, StatusProgress, 3)

	err := svc.ReorderWithinColumn(context.Background(), StatusProgress, ids[1], 1)
	require.NoError(t, err)
	assert.Equal(t, ids, columnIDs(t, svc, StatusProgress))
}

func TestReorderWithinColumn_UnknownTask(t *testing.T) {
	svc, repo := newTestService(t, nil)
	seedColumn(t, repo, StatusProgress, 2)

	err := svc.ReorderWithinColumn(context.Background(), StatusProgress, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSortColumn_UnorderedTasksAfterOrdered(t *testing.T) {
	now := time.Now().UTC()
	older := Task{ID: uuid.New(), CreatedAt: now.Add(-2 * time.Hour)}
	newer := Task{ID: uuid.New(), CreatedAt: now.Add(-time.Hour)}
	first := Task{ID: uuid.New(), Order: intPtr(0), CreatedAt: now.Add(-3 * time.Hour)}
	second := Task{ID: uuid.New(), Order: intPtr(1), CreatedAt: now}

	tasks := []Task{newer, second, older, first}
	sortColumn(tasks)

	// Ordered tasks lead by order value; unordered follow newest first.
	want := []uuid.UUID{first.ID, second.ID, newer.ID, older.ID}
	got := make([]uuid.UUID, len(tasks))
	for i := range tasks {
		got[i] = tasks[i].ID
	}
	assert.Equal(t, want, got)
}

func TestMoveToColumn_AppendsToEnd(t *testing.T) {
	alice := uuid.New()
	svc, repo := newTestService(t, nil)
	seedColumn(t, repo, StatusProgress, 2)
	task := seedTask(t, repo, &Task{
		Name:            "Escalate vendor ticket",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusNew,
		Order:           intPtr(0),
	})

	moved, err := svc.MoveToColumn(context.Background(), task.ID, StatusProgress, Actor{ID: alice, Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, StatusProgress, moved.Status)
	require.NotNil(t, moved.Order)
	assert.Equal(t, 2, *moved.Order, "moved task lands at the end of the destination column")

	got := columnIDs(t, svc, StatusProgress)
	require.Len(t, got, 3)
	assert.Equal(t, task.ID, got[2])

	// The move runs through the transition engine, so history records it.
	stored, err := repo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.StatusHistory)
	assert.Equal(t, StatusProgress, stored.StatusHistory[len(stored.StatusHistory)-1].Status)
}

func TestMoveToColumn_OwnColumnStaysDense(t *testing.T) {
	alice := uuid.New()
	svc, repo := newTestService(t, nil)
	ids := seedColumn(t, repo, StatusProgress, 2)
	task := seedTask(t, repo, &Task{
		Name:            "Escalate vendor ticket",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusProgress,
		Order:           intPtr(2),
	})

	// Dropping a task onto its own column area moves it to the end without
	// leaving a hole in the numbering.
	moved, err := svc.MoveToColumn(context.Background(), ids[0], StatusProgress, Actor{ID: alice, Name: "Alice", Privileged: true})
	require.NoError(t, err)
	require.NotNil(t, moved.Order)
	assert.Equal(t, 2, *moved.Order)

	board, err := svc.BoardColumns(context.Background())
	require.NoError(t, err)
	col := board[StatusProgress]
	require.Len(t, col, 3)
	for i := range col {
		require.NotNil(t, col[i].Order)
		assert.Equal(t, i, *col[i].Order)
	}
	assert.Equal(t, []uuid.UUID{ids[1], task.ID, ids[0]}, columnIDs(t, svc, StatusProgress))
}

func TestMoveToColumn_KpiGateBlocksCompleteColumn(t *testing.T) {
	alice := uuid.New()
	svc, repo := newTestService(t, nil)
	task := seedTask(t, repo, &Task{
		Name:            "Hit renewal quota",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusProgress,
		Order:           intPtr(0),
		ExpectedKpi:     floatPtr(10),
	})

	_, err := svc.MoveToColumn(context.Background(), task.ID, StatusComplete, Actor{ID: alice, Name: "Alice"})
	require.ErrorIs(t, err, ErrKpiMissing)

	// The task stays in its source column with its order untouched.
	got := columnIDs(t, svc, StatusProgress)
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0])
}
