package dto

import "github.com/google/uuid"

// BoardResponse carries every column of the kanban board, sorted for display.
type BoardResponse struct {
	Columns map[string][]TaskResponse `json:"columns"`
}

// ReorderTaskRequest moves a task to a new position within its column.
type ReorderTaskRequest struct {
	Status  string    `json:"status" binding:"required"`
	TaskID  uuid.UUID `json:"task_id" binding:"required"`
	ToIndex int       `json:"to_index"`
}

// MoveTaskRequest moves a task to a different column, appending it at the end.
type MoveTaskRequest struct {
	TaskID uuid.UUID `json:"task_id" binding:"required"`
	Status string    `json:"status" binding:"required"`
}

// ReorderConflictResponse tells the client its board view was stale; the
// client reloads the board and retries the drag against fresh state.
type ReorderConflictResponse struct {
	Error  string `json:"error"`
	Reload bool   `json:"reload"`
}
