package task

import (
	"context"
	"fmt"
	"sort"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/events"
	"github.com/google/uuid"
)

// Columns lists the board columns in display order.
var Columns = []Status{StatusNew, StatusProgress, StatusComplete}

// sortColumn orders a column for display: explicitly ordered tasks first by
// ascending order value, then tasks with no order value, newest first.
func sortColumn(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Order, tasks[j].Order
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
	})
}

func (s *service) BoardColumns(ctx context.Context) (map[Status][]Task, error) {
	board := make(map[Status][]Task, len(Columns))
	for _, status := range Columns {
		tasks, err := s.repo.FindByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s column: %w", status, err)
		}
		sortColumn(tasks)
		board[status] = tasks
	}
	return board, nil
}

// ReorderWithinColumn moves a task to a new position inside its column and
// renumbers the whole column densely from zero. Positions beyond the column
// bounds clamp to the nearest end.
func (s *service) ReorderWithinColumn(ctx context.Context, status Status, taskID uuid.UUID, toIndex int) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	tasks, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return fmt.Errorf("failed to load %s column: %w", status, err)
	}
	sortColumn(tasks)

	from := -1
	for i := range tasks {
		if tasks[i].ID == taskID {
			from = i
			break
		}
	}
	if from == -1 {
		return ErrTaskNotFound
	}

	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(tasks)-1 {
		toIndex = len(tasks) - 1
	}

	moved := tasks[from]
	tasks = append(tasks[:from], tasks[from+1:]...)
	tasks = append(tasks[:toIndex], append([]Task{moved}, tasks[toIndex:]...)...)

	// Renumber densely; only tasks whose stored order differs are written, so
	// an in-place drop is a cheap no-op.
	updates := make(map[uuid.UUID]int)
	for i := range tasks {
		if tasks[i].Order == nil || *tasks[i].Order != i {
			updates[tasks[i].ID] = i
		}
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.repo.BatchUpdateOrders(ctx, updates); err != nil {
		return fmt.Errorf("failed to persist column order: %w", err)
	}

	s.publishBoardEvent(ctx, uuid.Nil, taskID, events.BoardEventOrderChanged, map[string]interface{}{
		"status": status,
	})
	return nil
}

// MoveToColumn changes a task's status via ChangeStatus and appends it to the
// end of the destination column, renumbering the destination densely from
// zero. The source column is not renumbered; the gap it leaves collapses on
// the next read because display order is relative.
func (s *service) MoveToColumn(ctx context.Context, taskID uuid.UUID, target Status, actor Actor) (*Task, error) {
	if !target.IsValid() {
		return nil, ErrInvalidStatus
	}

	dest, err := s.repo.FindByStatus(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s column: %w", target, err)
	}
	sortColumn(dest)

	task, err := s.ChangeStatus(ctx, taskID, target, actor)
	if err != nil {
		return nil, err
	}

	// Skipping the moved task here keeps a drop back onto its own column
	// dense instead of numbering it one past the end.
	updates := make(map[uuid.UUID]int)
	endPos := 0
	for i := range dest {
		if dest[i].ID == task.ID {
			continue
		}
		if dest[i].Order == nil || *dest[i].Order != endPos {
			updates[dest[i].ID] = endPos
		}
		endPos++
	}
	updates[task.ID] = endPos

	if err := s.repo.BatchUpdateOrders(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to persist column order: %w", err)
	}
	task.Order = &endPos
	return task, nil
}
