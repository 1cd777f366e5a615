package dto

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentPayload is the wire form of an uploaded file reference. Legacy
// records that stored a bare URL surface here with only the URL set.
type AttachmentPayload struct {
	URL         string `json:"url" binding:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type SubtaskPayload struct {
	Description string              `json:"description" binding:"required"`
	Images      []AttachmentPayload `json:"images,omitempty"`
	Files       []AttachmentPayload `json:"files,omitempty"`
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	TaskID             string              `json:"task_id"`
	Name               string              `json:"name" binding:"required"`
	Description        string              `json:"description"`
	Date               *time.Time          `json:"date,omitempty"`
	Eta                *time.Time          `json:"eta,omitempty"`
	Time               string              `json:"time,omitempty"`
	AssignedMembers    []uuid.UUID         `json:"assigned_members" binding:"required,min=1"`
	Collaborative      bool                `json:"collaborative"`
	ExpectedKpi        *float64            `json:"expected_kpi,omitempty"`
	Recurring          bool                `json:"recurring"`
	RecurringFrequency []string            `json:"recurring_frequency,omitempty"`
	RecurringStartDate *time.Time          `json:"recurring_start_date,omitempty"`
	RecurringEndDate   *time.Time          `json:"recurring_end_date,omitempty"`
	Images             []AttachmentPayload `json:"images,omitempty"`
	Files              []AttachmentPayload `json:"files,omitempty"`
	Subtasks           []SubtaskPayload    `json:"subtasks,omitempty"`
}

// UpdateTaskRequest represents the request body for updating task content.
// Status changes go through the status endpoint instead.
type UpdateTaskRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Date        *time.Time          `json:"date,omitempty"`
	Eta         *time.Time          `json:"eta,omitempty"`
	Time        *string             `json:"time,omitempty"`
	ExpectedKpi *float64            `json:"expected_kpi,omitempty"`
	ActualKpi   *float64            `json:"actual_kpi,omitempty"`
	Images      []AttachmentPayload `json:"images,omitempty"`
	Files       []AttachmentPayload `json:"files,omitempty"`
}

// UpdateTaskStatusRequest represents the request body for a status transition
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type StatusEntryResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	ChangedByName string    `json:"changed_by_name,omitempty"`
	Note          string    `json:"note,omitempty"`
}

type CompletionResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

type SubtaskResponse struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	AddedAt     time.Time           `json:"added_at"`
	Completed   bool                `json:"completed"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Images      []AttachmentPayload `json:"images,omitempty"`
	Files       []AttachmentPayload `json:"files,omitempty"`
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID                  uuid.UUID             `json:"id"`
	TaskID              string                `json:"task_id,omitempty"`
	Name                string                `json:"name"`
	Description         string                `json:"description,omitempty"`
	Date                time.Time             `json:"date"`
	Eta                 *time.Time            `json:"eta,omitempty"`
	Time                string                `json:"time,omitempty"`
	AssignedMembers     []uuid.UUID           `json:"assigned_members"`
	AssignedMemberNames []string              `json:"assigned_member_names,omitempty"`
	Status              string                `json:"status"`
	StatusHistory       []StatusEntryResponse `json:"status_history,omitempty"`
	Collaborative       bool                  `json:"collaborative"`
	CompletedBy         []CompletionResponse  `json:"completed_by,omitempty"`
	ExpectedKpi         *float64              `json:"expected_kpi,omitempty"`
	ActualKpi           *float64              `json:"actual_kpi,omitempty"`
	Recurring           bool                  `json:"recurring"`
	RecurringFrequency  []string              `json:"recurring_frequency,omitempty"`
	RecurringStartDate  *time.Time            `json:"recurring_start_date,omitempty"`
	RecurringEndDate    *time.Time            `json:"recurring_end_date,omitempty"`
	ParentTaskID        *uuid.UUID            `json:"parent_task_id,omitempty"`
	Images              []AttachmentPayload   `json:"images,omitempty"`
	Files               []AttachmentPayload   `json:"files,omitempty"`
	Subtasks            []SubtaskResponse     `json:"subtasks,omitempty"`
	Order               *int                  `json:"order,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	CreatedBy           string                `json:"created_by,omitempty"`
	CreatedByName       string                `json:"created_by_name,omitempty"`
}
