package task

import (
	"context"
	"fmt"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fireRecurrence spawns the next occurrence of a recurring task after it
// reaches Complete. A spawn failure never fails the completion that
// triggered it; it is logged and dropped.
func (s *service) fireRecurrence(ctx context.Context, completed *Task, actor Actor) {
	next, err := s.spawnNextOccurrence(ctx, completed, actor)
	if err != nil {
		s.logger.Error("Failed to spawn recurring task",
			zap.String("task_id", completed.ID.String()),
			zap.Error(err))
		return
	}

	s.publishBoardEvent(ctx, actor.ID, next.ID, events.BoardEventRecurrence, map[string]interface{}{
		"parent_task_id": next.ParentTaskID.String(),
		"task_label":     next.TaskID,
	})
}

// spawnNextOccurrence creates a fresh instance of a recurring task. The
// spawn fires on every completion of a recurring task regardless of the
// configured frequency or end date; those fields describe the intended
// schedule but do not gate instance creation.
func (s *service) spawnNextOccurrence(ctx context.Context, completed *Task, actor Actor) (*Task, error) {
	now := time.Now().UTC()
	millis := now.UnixMilli()

	// All occurrences of a series point at the original root task.
	parentID := completed.ID
	if completed.ParentTaskID != nil {
		parentID = *completed.ParentTaskID
	}

	next := &Task{
		ID:                  uuid.New(),
		TaskID:              fmt.Sprintf("%s-%d", completed.TaskID, millis),
		Name:                completed.Name,
		Description:         completed.Description,
		Date:                now,
		Eta:                 completed.Eta,
		Time:                completed.Time,
		AssignedMembers:     completed.AssignedMembers,
		AssignedMemberNames: completed.AssignedMemberNames,
		Status:              StatusNew,
		Collaborative:       completed.Collaborative,
		ExpectedKpi:         completed.ExpectedKpi,
		ActualKpi:           completed.ActualKpi,
		Recurring:           true,
		RecurringFrequency:  completed.RecurringFrequency,
		RecurringStartDate:  completed.RecurringStartDate,
		RecurringEndDate:    completed.RecurringEndDate,
		ParentTaskID:        &parentID,
		Files:               completed.Files,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           actor.ID,
		CreatedByName:       actor.Name,
	}
	next.StatusHistory = []StatusEntry{{
		Status:        StatusNew,
		Timestamp:     now,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
	}}

	// Subtasks carry over with completion state reset and fresh identities.
	for _, sub := range completed.Subtasks {
		next.Subtasks = append(next.Subtasks, Subtask{
			ID:          fmt.Sprintf("%s-%d", sub.ID, millis),
			Description: sub.Description,
			AddedAt:     now,
			Images:      sub.Images,
			Files:       sub.Files,
		})
	}

	if err := s.repo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist recurring instance: %w", err)
	}
	return next, nil
}
