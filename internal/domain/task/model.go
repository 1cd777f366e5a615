package task

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task. Any status may transition
// to any other; entering Complete is guarded by the KPI gate and, for
// collaborative tasks, by the completion ledger.
type Status string

const (
	StatusNew      Status = "New"
	StatusProgress Status = "Progress"
	StatusComplete Status = "Complete"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusProgress, StatusComplete:
		return true
	}
	return false
}

// FrequencyAll marks a recurring task that repeats every day of the week.
const FrequencyAll = "all"

var weekdayNames = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

// Common errors
var (
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrKpiMissing       = errors.New("actual KPI value is required to complete this task")
	ErrKpiNotMet        = errors.New("actual KPI does not match the expected KPI")
	ErrPermissionDenied = errors.New("user is not assigned to this task")
)

// StatusEntry is one row of the append-only status log.
type StatusEntry struct {
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ChangedBy     uuid.UUID `json:"changedBy"`
	ChangedByName string    `json:"changedByName"`
	Note          string    `json:"note,omitempty"`
}

// Completion is one row of the collaborative completion ledger.
type Completion struct {
	UserID      uuid.UUID `json:"userId"`
	UserName    string    `json:"userName"`
	CompletedAt time.Time `json:"completedAt"`
}

// Attachment is the closed variant behind the images/files fields: older
// records store a bare URL string, newer ones an object with metadata. A
// legacy value re-encodes as the bare string so stored records round-trip
// unchanged.
type Attachment struct {
	URL         string
	Name        string
	Description string

	legacy bool
}

// NewLegacyAttachment wraps a bare URL in the legacy form.
func NewLegacyAttachment(url string) Attachment {
	return Attachment{URL: url, legacy: true}
}

// NewAttachment builds a structured attachment.
func NewAttachment(url, name, description string) Attachment {
	return Attachment{URL: url, Name: name, Description: description}
}

// IsLegacy reports whether the attachment was stored as a bare URL string.
func (a Attachment) IsLegacy() bool {
	return a.legacy
}

type attachmentObject struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	if a.legacy {
		return json.Marshal(a.URL)
	}
	return json.Marshal(attachmentObject{URL: a.URL, Name: a.Name, Description: a.Description})
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*a = Attachment{URL: url, legacy: true}
		return nil
	}
	var obj attachmentObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = Attachment{URL: obj.URL, Name: obj.Name, Description: obj.Description}
	return nil
}

// Subtask is a checklist item owned by a task. Subtask ids are strings
// because recurrence rewrites them with a timestamp suffix.
type Subtask struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	AddedAt     time.Time    `json:"addedAt"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Images      []Attachment `json:"images,omitempty"`
	Files       []Attachment `json:"files,omitempty"`
}

// Task is the canonical in-memory representation of a task.
type Task struct {
	ID     uuid.UUID `json:"id"`
	TaskID string    `json:"task_id"`

	Name        string `json:"name"`
	Description string `json:"description"`

	Date time.Time  `json:"date"`
	Eta  *time.Time `json:"eta,omitempty"`
	Time string     `json:"time,omitempty"`

	AssignedMembers     []uuid.UUID `json:"assigned_members"`
	AssignedMemberNames []string    `json:"assigned_member_names"`

	Status        Status        `json:"status"`
	StatusHistory []StatusEntry `json:"status_history"`
	Collaborative bool          `json:"collaborative"`
	CompletedBy   []Completion  `json:"completed_by,omitempty"`

	ExpectedKpi *float64 `json:"expected_kpi,omitempty"`
	ActualKpi   *float64 `json:"actual_kpi,omitempty"`

	Recurring          bool       `json:"recurring"`
	RecurringFrequency []string   `json:"recurring_frequency,omitempty"`
	RecurringStartDate *time.Time `json:"recurring_start_date,omitempty"`
	RecurringEndDate   *time.Time `json:"recurring_end_date,omitempty"`
	ParentTaskID       *uuid.UUID `json:"parent_task_id,omitempty"`

	Images   []Attachment `json:"images,omitempty"`
	Files    []Attachment `json:"files,omitempty"`
	Subtasks []Subtask    `json:"subtasks,omitempty"`

	// Order is the dense per-column position; tasks without one sort after
	// ordered tasks by CreatedAt descending.
	Order *int `json:"order,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
}

// IsAssigned reports whether the user is one of the task's assigned members.
func (t *Task) IsAssigned(userID uuid.UUID) bool {
	for _, m := range t.AssignedMembers {
		if m == userID {
			return true
		}
	}
	return false
}

// HasCompleted reports whether the user already appears in the ledger.
func (t *Task) HasCompleted(userID uuid.UUID) bool {
	for _, c := range t.CompletedBy {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// AllMembersCompleted reports whether every assigned member has a ledger entry.
func (t *Task) AllMembersCompleted() bool {
	for _, m := range t.AssignedMembers {
		if !t.HasCompleted(m) {
			return false
		}
	}
	return true
}

// Validate checks creation-time invariants.
func (t *Task) Validate() error {
	if t.Name == "" {
		return ErrInvalidInput
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	if len(t.AssignedMembers) == 0 {
		return ErrInvalidInput
	}
	if t.CreatedBy == uuid.Nil {
		return ErrInvalidInput
	}
	if t.Recurring {
		if t.RecurringStartDate == nil || t.RecurringEndDate == nil {
			return ErrInvalidInput
		}
		if !validFrequency(t.RecurringFrequency) {
			return ErrInvalidInput
		}
	}
	return nil
}

// validFrequency accepts ["all"] or a non-empty set of weekday names.
func validFrequency(freq []string) bool {
	if len(freq) == 0 {
		return false
	}
	if len(freq) == 1 && freq[0] == FrequencyAll {
		return true
	}
	for _, day := range freq {
		if !weekdayNames[day] {
			return false
		}
	}
	return true
}
