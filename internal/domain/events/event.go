package events

import (
	"time"

	"github.com/google/uuid"
)

// Board event types published on the redis channel whenever a task's
// status or column order changes.
const (
	BoardEventTaskCreated   = "task_created"
	BoardEventStatusChanged = "status_changed"
	BoardEventOrderChanged  = "order_changed"
	BoardEventTaskUpdated   = "task_updated"
	BoardEventRecurrence    = "recurrence_spawned"
)

// BoardEvent represents a change on the task board
type BoardEvent struct {
	EventType string      `json:"event_type"`
	UserID    uuid.UUID   `json:"user_id"`
	TaskID    uuid.UUID   `json:"task_id"`
	Timestamp time.Time   `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}
