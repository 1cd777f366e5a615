package task

import (
	"context"
	"errors"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/docstore"
	"github.com/google/uuid"
)

// Collection is the document-store collection holding task records.
const Collection = "tasks"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository defines the persistence operations the task engine needs.
type Repository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	FindByStatus(ctx context.Context, status Status) ([]Task, error)
	FindByAssignee(ctx context.Context, userID uuid.UUID) ([]Task, error)
	Save(ctx context.Context, task *Task) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields docstore.Record) error
	// BatchUpdateOrders persists a column renumber as a single write batch.
	BatchUpdateOrders(ctx context.Context, orders map[uuid.UUID]int) error
	// WatchAssigned streams the full set of tasks assigned to the user on
	// every change. The caller owns result ordering.
	WatchAssigned(ctx context.Context, userID uuid.UUID, fn func([]Task)) (func(), error)
}

type taskRepository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) Repository {
	return &taskRepository{store: store}
}

func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	rec, err := ToStorageRecord(task)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, Collection, task.ID.String(), rec)
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	rec, err := r.store.Get(ctx, Collection, id.String())
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return FromStorageRecord(rec, id)
}

func (r *taskRepository) FindByStatus(ctx context.Context, status Status) ([]Task, error) {
	docs, err := r.store.Query(ctx, Collection, []docstore.Filter{
		{Field: "status", Op: docstore.OpEqual, Value: string(status)},
	})
	if err != nil {
		return nil, err
	}
	return decodeDocuments(docs)
}

func (r *taskRepository) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	docs, err := r.store.Query(ctx, Collection, []docstore.Filter{
		{Field: "assignedMembers", Op: docstore.OpContains, Value: userID.String()},
	})
	if err != nil {
		return nil, err
	}
	return decodeDocuments(docs)
}

func (r *taskRepository) Save(ctx context.Context, task *Task) error {
	rec, err := ToStorageRecord(task)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, Collection, task.ID.String(), rec)
}

func (r *taskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields docstore.Record) error {
	err := r.store.UpdateFields(ctx, Collection, id.String(), fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func (r *taskRepository) BatchUpdateOrders(ctx context.Context, orders map[uuid.UUID]int) error {
	if len(orders) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	updates := make(map[string]docstore.Record, len(orders))
	for id, order := range orders {
		updates[id.String()] = docstore.Record{
			"order":     order,
			"updatedAt": now,
		}
	}
	err := r.store.BatchUpdateFields(ctx, Collection, updates)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func (r *taskRepository) WatchAssigned(ctx context.Context, userID uuid.UUID, fn func([]Task)) (func(), error) {
	filters := []docstore.Filter{
		{Field: "assignedMembers", Op: docstore.OpContains, Value: userID.String()},
	}
	return r.store.Subscribe(ctx, Collection, filters, func(docs []docstore.Document) {
		tasks, err := decodeDocuments(docs)
		if err != nil {
			// A single malformed record must not kill the stream.
			return
		}
		fn(tasks)
	})
}

func decodeDocuments(docs []docstore.Document) ([]Task, error) {
	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, err
		}
		t, err := FromStorageRecord(doc.Data, id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
