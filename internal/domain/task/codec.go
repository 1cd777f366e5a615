package task

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/docstore"
	"github.com/google/uuid"
)

// Storage mapping between Task and the document-store record shape. Decoding
// tolerates records written by older clients: missing fields default, KPI
// values arrive as numbers or numeric strings, dates as RFC3339 strings or
// epoch milliseconds, and attachments as bare URLs or structured objects.
// Encoding omits empty optional fields; the store rejects explicit nulls.

// storeTime accepts the store's RFC3339 timestamp form and legacy epoch
// milliseconds, and always re-encodes as RFC3339.
type storeTime struct {
	time.Time
}

func (t storeTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *storeTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", s, err)
			}
		}
		t.Time = parsed
		return nil
	}
	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f flexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid numeric value %s", data)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type statusEntryRecord struct {
	Status        string    `json:"status"`
	Timestamp     storeTime `json:"timestamp"`
	ChangedBy     string    `json:"changedBy,omitempty"`
	ChangedByName string    `json:"changedByName,omitempty"`
	Note          string    `json:"note,omitempty"`
}

type completionRecord struct {
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	CompletedAt storeTime `json:"completedAt"`
}

type subtaskRecord struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	AddedAt     *storeTime   `json:"addedAt,omitempty"`
	Completed   bool         `json:"completed"`
	CompletedAt *storeTime   `json:"completedAt,omitempty"`
	Images      []Attachment `json:"images,omitempty"`
	Files       []Attachment `json:"files,omitempty"`
}

type taskRecord struct {
	TaskID              string              `json:"taskId,omitempty"`
	Name                string              `json:"name,omitempty"`
	Description         string              `json:"description,omitempty"`
	Date                *storeTime          `json:"date,omitempty"`
	Eta                 *storeTime          `json:"eta,omitempty"`
	Time                string              `json:"time,omitempty"`
	AssignedMembers     []string            `json:"assignedMembers,omitempty"`
	AssignedMemberNames []string            `json:"assignedMemberNames,omitempty"`
	Status              string              `json:"status,omitempty"`
	StatusHistory       []statusEntryRecord `json:"statusHistory,omitempty"`
	Collaborative       bool                `json:"collaborative,omitempty"`
	CompletedBy         []completionRecord  `json:"completedBy,omitempty"`
	ExpectedKpi         *flexFloat          `json:"expectedKpi,omitempty"`
	ActualKpi           *flexFloat          `json:"actualKpi,omitempty"`
	Recurring           bool                `json:"recurring,omitempty"`
	RecurringFrequency  []string            `json:"recurringFrequency,omitempty"`
	RecurringStartDate  *storeTime          `json:"recurringStartDate,omitempty"`
	RecurringEndDate    *storeTime          `json:"recurringEndDate,omitempty"`
	ParentTaskID        string              `json:"parentTaskId,omitempty"`
	Images              []Attachment        `json:"images,omitempty"`
	Files               []Attachment        `json:"files,omitempty"`
	Subtasks            []subtaskRecord     `json:"subtasks,omitempty"`
	Order               *int                `json:"order,omitempty"`
	CreatedAt           *storeTime          `json:"createdAt,omitempty"`
	UpdatedAt           *storeTime          `json:"updatedAt,omitempty"`
	CreatedBy           string              `json:"createdBy,omitempty"`
	CreatedByName       string              `json:"createdByName,omitempty"`
}

// FromStorageRecord decodes a stored record into a Task, applying defaults
// for fields absent from older records. Pure mapping, no side effects.
func FromStorageRecord(rec docstore.Record, id uuid.UUID) (*Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var tr taskRecord
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode task record: %w", err)
	}

	t := &Task{
		ID:                  id,
		TaskID:              tr.TaskID,
		Name:                tr.Name,
		Description:         tr.Description,
		Time:                tr.Time,
		AssignedMemberNames: append([]string{}, tr.AssignedMemberNames...),
		Collaborative:       tr.Collaborative,
		Recurring:           tr.Recurring,
		RecurringFrequency:  append([]string{}, tr.RecurringFrequency...),
		Images:              append([]Attachment{}, tr.Images...),
		Files:               append([]Attachment{}, tr.Files...),
		CreatedByName:       tr.CreatedByName,
	}

	t.Status = Status(tr.Status)
	if !t.Status.IsValid() {
		t.Status = StatusNew
	}

	if tr.Date != nil {
		t.Date = tr.Date.Time
	}
	if tr.Eta != nil {
		eta := tr.Eta.Time
		t.Eta = &eta
	}
	if tr.RecurringStartDate != nil {
		v := tr.RecurringStartDate.Time
		t.RecurringStartDate = &v
	}
	if tr.RecurringEndDate != nil {
		v := tr.RecurringEndDate.Time
		t.RecurringEndDate = &v
	}
	if tr.CreatedAt != nil {
		t.CreatedAt = tr.CreatedAt.Time
	}
	if tr.UpdatedAt != nil {
		t.UpdatedAt = tr.UpdatedAt.Time
	}

	if tr.ExpectedKpi != nil {
		v := float64(*tr.ExpectedKpi)
		t.ExpectedKpi = &v
	}
	if tr.ActualKpi != nil {
		v := float64(*tr.ActualKpi)
		t.ActualKpi = &v
	}
	t.Order = tr.Order

	t.AssignedMembers = make([]uuid.UUID, 0, len(tr.AssignedMembers))
	for _, raw := range tr.AssignedMembers {
		member, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid assigned member id %q: %w", raw, err)
		}
		t.AssignedMembers = append(t.AssignedMembers, member)
	}

	if tr.ParentTaskID != "" {
		parent, err := uuid.Parse(tr.ParentTaskID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent task id %q: %w", tr.ParentTaskID, err)
		}
		t.ParentTaskID = &parent
	}

	if tr.CreatedBy != "" {
		creator, err := uuid.Parse(tr.CreatedBy)
		if err != nil {
			return nil, fmt.Errorf("invalid creator id %q: %w", tr.CreatedBy, err)
		}
		t.CreatedBy = creator
	}

	t.StatusHistory = make([]StatusEntry, 0, len(tr.StatusHistory))
	for _, e := range tr.StatusHistory {
		entry := StatusEntry{
			Status:        Status(e.Status),
			Timestamp:     e.Timestamp.Time,
			ChangedByName: e.ChangedByName,
			Note:          e.Note,
		}
		if e.ChangedBy != "" {
			by, err := uuid.Parse(e.ChangedBy)
			if err != nil {
				return nil, fmt.Errorf("invalid status history actor %q: %w", e.ChangedBy, err)
			}
			entry.ChangedBy = by
		}
		t.StatusHistory = append(t.StatusHistory, entry)
	}

	t.CompletedBy = make([]Completion, 0, len(tr.CompletedBy))
	for _, c := range tr.CompletedBy {
		member, err := uuid.Parse(c.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid completion ledger user %q: %w", c.UserID, err)
		}
		t.CompletedBy = append(t.CompletedBy, Completion{
			UserID:      member,
			UserName:    c.UserName,
			CompletedAt: c.CompletedAt.Time,
		})
	}

	t.Subtasks = make([]Subtask, 0, len(tr.Subtasks))
	for _, s := range tr.Subtasks {
		sub := Subtask{
			ID:          s.ID,
			Description: s.Description,
			Completed:   s.Completed,
		}
		if len(s.Images) > 0 {
			sub.Images = append([]Attachment{}, s.Images...)
		}
		if len(s.Files) > 0 {
			sub.Files = append([]Attachment{}, s.Files...)
		}
		if s.AddedAt != nil {
			sub.AddedAt = s.AddedAt.Time
		}
		if s.CompletedAt != nil {
			v := s.CompletedAt.Time
			sub.CompletedAt = &v
		}
		t.Subtasks = append(t.Subtasks, sub)
	}

	return t, nil
}

// ToStorageRecord encodes a Task for the store, omitting empty optional
// fields. Pure mapping, no side effects.
func ToStorageRecord(t *Task) (docstore.Record, error) {
	tr := taskRecord{
		TaskID:              t.TaskID,
		Name:                t.Name,
		Description:         t.Description,
		Time:                t.Time,
		AssignedMemberNames: t.AssignedMemberNames,
		Status:              string(t.Status),
		Collaborative:       t.Collaborative,
		Recurring:           t.Recurring,
		RecurringFrequency:  t.RecurringFrequency,
		Images:              t.Images,
		Files:               t.Files,
		Order:               t.Order,
		CreatedByName:       t.CreatedByName,
	}

	if !t.Date.IsZero() {
		tr.Date = &storeTime{t.Date}
	}
	if t.Eta != nil {
		tr.Eta = &storeTime{*t.Eta}
	}
	if t.RecurringStartDate != nil {
		tr.RecurringStartDate = &storeTime{*t.RecurringStartDate}
	}
	if t.RecurringEndDate != nil {
		tr.RecurringEndDate = &storeTime{*t.RecurringEndDate}
	}
	if !t.CreatedAt.IsZero() {
		tr.CreatedAt = &storeTime{t.CreatedAt}
	}
	if !t.UpdatedAt.IsZero() {
		tr.UpdatedAt = &storeTime{t.UpdatedAt}
	}

	if t.ExpectedKpi != nil {
		v := flexFloat(*t.ExpectedKpi)
		tr.ExpectedKpi = &v
	}
	if t.ActualKpi != nil {
		v := flexFloat(*t.ActualKpi)
		tr.ActualKpi = &v
	}

	tr.AssignedMembers = make([]string, 0, len(t.AssignedMembers))
	for _, m := range t.AssignedMembers {
		tr.AssignedMembers = append(tr.AssignedMembers, m.String())
	}

	if t.ParentTaskID != nil {
		tr.ParentTaskID = t.ParentTaskID.String()
	}
	if t.CreatedBy != uuid.Nil {
		tr.CreatedBy = t.CreatedBy.String()
	}

	for _, e := range t.StatusHistory {
		rec := statusEntryRecord{
			Status:        string(e.Status),
			Timestamp:     storeTime{e.Timestamp},
			ChangedByName: e.ChangedByName,
			Note:          e.Note,
		}
		if e.ChangedBy != uuid.Nil {
			rec.ChangedBy = e.ChangedBy.String()
		}
		tr.StatusHistory = append(tr.StatusHistory, rec)
	}

	for _, c := range t.CompletedBy {
		tr.CompletedBy = append(tr.CompletedBy, completionRecord{
			UserID:      c.UserID.String(),
			UserName:    c.UserName,
			CompletedAt: storeTime{c.CompletedAt},
		})
	}

	for _, s := range t.Subtasks {
		rec := subtaskRecord{
			ID:          s.ID,
			Description: s.Description,
			Completed:   s.Completed,
			Images:      s.Images,
			Files:       s.Files,
		}
		if !s.AddedAt.IsZero() {
			rec.AddedAt = &storeTime{s.AddedAt}
		}
		if s.CompletedAt != nil {
			rec.CompletedAt = &storeTime{*s.CompletedAt}
		}
		tr.Subtasks = append(tr.Subtasks, rec)
	}

	data, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task record: %w", err)
	}
	var rec docstore.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to build storage record: %w", err)
	}
	return rec, nil
}

// CompletionLedgerFields encodes only the fields the completion-ledger
// protocol touches, for a field-merge write that leaves the rest of the
// stored record alone.
func CompletionLedgerFields(t *Task) (docstore.Record, error) {
	rec, err := ToStorageRecord(t)
	if err != nil {
		return nil, err
	}
	fields := docstore.Record{
		"status":    rec["status"],
		"updatedAt": rec["updatedAt"],
	}
	if v, ok := rec["completedBy"]; ok {
		fields["completedBy"] = v
	}
	if v, ok := rec["statusHistory"]; ok {
		fields["statusHistory"] = v
	}
	return fields, nil
}
