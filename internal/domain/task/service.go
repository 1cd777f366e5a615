package task

import (
	"context"
	"fmt"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/events"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/user"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor identifies the user performing a mutation. Privileged actors (admins)
// bypass the assignment check; the flag is resolved by the API layer from the
// caller's roles.
type Actor struct {
	ID         uuid.UUID
	Name       string
	Privileged bool
}

type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListAssignedTasks(ctx context.Context, userID uuid.UUID) ([]Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput, actor Actor) (*Task, error)

	// ChangeStatus is the sole authority for status transitions. Any status
	// may move to any other; entering Complete is KPI-gated and, for
	// collaborative tasks, runs the completion-ledger protocol.
	ChangeStatus(ctx context.Context, id uuid.UUID, target Status, actor Actor) (*Task, error)

	// Board operations (see ordering.go).
	BoardColumns(ctx context.Context) (map[Status][]Task, error)
	ReorderWithinColumn(ctx context.Context, status Status, taskID uuid.UUID, toIndex int) error
	MoveToColumn(ctx context.Context, taskID uuid.UUID, target Status, actor Actor) (*Task, error)

	WatchAssigned(ctx context.Context, userID uuid.UUID, fn func([]Task)) (func(), error)
}

type SubtaskInput struct {
	Description string       `json:"description"`
	Images      []Attachment `json:"images,omitempty"`
	Files       []Attachment `json:"files,omitempty"`
}

type CreateTaskInput struct {
	TaskID             string       `json:"task_id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	Date               time.Time    `json:"date"`
	Eta                *time.Time   `json:"eta,omitempty"`
	Time               string       `json:"time,omitempty"`
	AssignedMembers    []uuid.UUID  `json:"assigned_members"`
	Collaborative      bool         `json:"collaborative"`
	ExpectedKpi        *float64     `json:"expected_kpi,omitempty"`
	Recurring          bool         `json:"recurring"`
	RecurringFrequency []string     `json:"recurring_frequency,omitempty"`
	RecurringStartDate *time.Time   `json:"recurring_start_date,omitempty"`
	RecurringEndDate   *time.Time   `json:"recurring_end_date,omitempty"`
	Images             []Attachment `json:"images,omitempty"`
	Files              []Attachment `json:"files,omitempty"`
	Subtasks           []SubtaskInput `json:"subtasks,omitempty"`
	CreatorID          uuid.UUID    `json:"creator_id"`
	CreatorName        string       `json:"creator_name"`
}

type UpdateTaskInput struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Date        *time.Time   `json:"date,omitempty"`
	Eta         *time.Time   `json:"eta,omitempty"`
	Time        *string      `json:"time,omitempty"`
	ExpectedKpi *float64     `json:"expected_kpi,omitempty"`
	ActualKpi   *float64     `json:"actual_kpi,omitempty"`
	Images      []Attachment `json:"images,omitempty"`
	Files       []Attachment `json:"files,omitempty"`
}

type service struct {
	repo   Repository
	users  user.Service
	redis  *cache.RedisClient // Injected for event publishing
	logger *zap.Logger
}

func NewService(repo Repository, users user.Service, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{repo: repo, users: users, redis: redis, logger: logger}
}

func (s *service) CreateTask(ctx context.Context, input CreateTaskInput) (*Task, error) {
	if input.Name == "" {
		return nil, ErrInvalidInput
	}
	if len(input.AssignedMembers) == 0 {
		return nil, ErrInvalidInput
	}

	names, err := s.users.ResolveNames(ctx, input.AssignedMembers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member names: %w", err)
	}

	now := time.Now().UTC()
	task := &Task{
		ID:                  uuid.New(),
		TaskID:              input.TaskID,
		Name:                input.Name,
		Description:         input.Description,
		Date:                input.Date,
		Eta:                 input.Eta,
		Time:                input.Time,
		AssignedMembers:     input.AssignedMembers,
		AssignedMemberNames: names,
		Status:              StatusNew,
		Collaborative:       input.Collaborative,
		ExpectedKpi:         input.ExpectedKpi,
		Recurring:           input.Recurring,
		RecurringFrequency:  input.RecurringFrequency,
		RecurringStartDate:  input.RecurringStartDate,
		RecurringEndDate:    input.RecurringEndDate,
		Images:              input.Images,
		Files:               input.Files,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           input.CreatorID,
		CreatedByName:       input.CreatorName,
	}
	if task.Date.IsZero() {
		task.Date = now
	}
	task.StatusHistory = []StatusEntry{{
		Status:        StatusNew,
		Timestamp:     now,
		ChangedBy:     input.CreatorID,
		ChangedByName: input.CreatorName,
	}}
	for _, sub := range input.Subtasks {
		task.Subtasks = append(task.Subtasks, Subtask{
			ID:          uuid.NewString(),
			Description: sub.Description,
			AddedAt:     now,
			Images:      sub.Images,
			Files:       sub.Files,
		})
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	s.publishBoardEvent(ctx, input.CreatorID, task.ID, events.BoardEventTaskCreated, map[string]interface{}{
		"name":   task.Name,
		"status": task.Status,
	})

	return task, nil
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListAssignedTasks(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	return s.repo.FindByAssignee(ctx, userID)
}

func (s *service) UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput, actor Actor) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged && !task.IsAssigned(actor.ID) {
		return nil, ErrPermissionDenied
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrInvalidInput
		}
		task.Name = *input.Name
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Date != nil {
		task.Date = *input.Date
	}
	if input.Eta != nil {
		task.Eta = input.Eta
	}
	if input.Time != nil {
		task.Time = *input.Time
	}
	if input.ExpectedKpi != nil {
		task.ExpectedKpi = input.ExpectedKpi
	}
	if input.ActualKpi != nil {
		task.ActualKpi = input.ActualKpi
	}
	if input.Images != nil {
		task.Images = input.Images
	}
	if input.Files != nil {
		task.Files = input.Files
	}

	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	s.publishBoardEvent(ctx, actor.ID, task.ID, events.BoardEventTaskUpdated, map[string]interface{}{
		"name": task.Name,
	})

	return task, nil
}

func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, target Status, actor Actor) (*Task, error) {
	if !target.IsValid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged && !task.IsAssigned(actor.ID) {
		return nil, ErrPermissionDenied
	}

	// Only assigned members work the completion ledger. A privileged
	// non-member forcing Complete takes the direct path and completes on
	// nobody's behalf.
	if target == StatusComplete && task.Collaborative && task.IsAssigned(actor.ID) {
		return s.completeCollaborative(ctx, task, actor)
	}

	if target == StatusComplete {
		if err := kpiGate(task); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	changed := task.Status != target
	if changed {
		task.StatusHistory = append(task.StatusHistory, StatusEntry{
			Status:        target,
			Timestamp:     now,
			ChangedBy:     actor.ID,
			ChangedByName: actor.Name,
		})
		task.Status = target
	}
	// Redundant writes refresh updatedAt only, to keep the history log quiet.
	task.UpdatedAt = now

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist status change: %w", err)
	}

	if changed {
		s.publishBoardEvent(ctx, actor.ID, task.ID, events.BoardEventStatusChanged, map[string]interface{}{
			"status": task.Status,
		})
	}

	if changed && task.Status == StatusComplete && task.Recurring {
		s.fireRecurrence(ctx, task, actor)
	}

	return task, nil
}

// completeCollaborative runs the completion-ledger protocol: each assigned
// member marks their own part done, and the task reaches Complete only once
// the ledger covers every member and the KPI gate passes.
//
// Writes go through the store's field-merge primitive so only the ledger
// fields are overwritten, but the append itself is still a read-modify-write
// on a freshly loaded record; two members completing at the same instant can
// still lose one append. There is no transaction or CAS here on purpose,
// matching the observed behavior of the system this replaces.
func (s *service) completeCollaborative(ctx context.Context, task *Task, actor Actor) (*Task, error) {
	// A task already at Complete stays quiet, same as a redundant write on
	// the direct path: no ledger entry, no history entry, no respawn.
	if task.Status == StatusComplete {
		task.UpdatedAt = time.Now().UTC()
		if err := s.persistLedger(ctx, task); err != nil {
			return nil, err
		}
		return task, nil
	}
	// A member completing twice is a silent no-op.
	if task.HasCompleted(actor.ID) {
		return task, nil
	}

	now := time.Now().UTC()
	task.CompletedBy = append(task.CompletedBy, Completion{
		UserID:      actor.ID,
		UserName:    actor.Name,
		CompletedAt: now,
	})
	task.StatusHistory = append(task.StatusHistory, StatusEntry{
		Status:        StatusProgress,
		Timestamp:     now,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
		Note:          fmt.Sprintf("%s completed their part", actor.Name),
	})

	if !task.AllMembersCompleted() {
		task.Status = StatusProgress
		task.UpdatedAt = now
		if err := s.persistLedger(ctx, task); err != nil {
			return nil, err
		}
		s.publishBoardEvent(ctx, actor.ID, task.ID, events.BoardEventStatusChanged, map[string]interface{}{
			"status":       task.Status,
			"completed_by": len(task.CompletedBy),
		})
		return task, nil
	}

	if err := kpiGate(task); err != nil {
		// The ledger update stays durable even though Complete is rejected.
		task.Status = StatusProgress
		task.UpdatedAt = now
		if saveErr := s.persistLedger(ctx, task); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}

	task.StatusHistory = append(task.StatusHistory, StatusEntry{
		Status:        StatusComplete,
		Timestamp:     now,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
		Note:          "all members completed",
	})
	task.Status = StatusComplete
	task.UpdatedAt = now

	if err := s.persistLedger(ctx, task); err != nil {
		return nil, err
	}

	s.publishBoardEvent(ctx, actor.ID, task.ID, events.BoardEventStatusChanged, map[string]interface{}{
		"status": task.Status,
	})

	if task.Recurring {
		s.fireRecurrence(ctx, task, actor)
	}

	return task, nil
}

func (s *service) persistLedger(ctx context.Context, task *Task) error {
	fields, err := CompletionLedgerFields(task)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateFields(ctx, task.ID, fields); err != nil {
		return fmt.Errorf("failed to persist completion: %w", err)
	}
	return nil
}

// kpiGate enforces the completion guard: when an expected KPI is set, the
// actual KPI must be present and equal.
func kpiGate(t *Task) error {
	if t.ExpectedKpi == nil {
		return nil
	}
	if t.ActualKpi == nil {
		return ErrKpiMissing
	}
	if *t.ActualKpi != *t.ExpectedKpi {
		return ErrKpiNotMet
	}
	return nil
}

func (s *service) WatchAssigned(ctx context.Context, userID uuid.UUID, fn func([]Task)) (func(), error) {
	return s.repo.WatchAssigned(ctx, userID, fn)
}

func (s *service) publishBoardEvent(ctx context.Context, userID, taskID uuid.UUID, eventType string, details map[string]interface{}) {
	if s.redis == nil {
		return
	}
	event := &events.BoardEvent{
		EventType: eventType,
		UserID:    userID,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
	if err := s.redis.PublishBoardEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish board event", zap.Error(err))
	}
}
