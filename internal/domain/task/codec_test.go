package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentJSON(t *testing.T) {
	t.Run("legacy bare URL round-trips as a string", func(t *testing.T) {
		var a Attachment
		require.NoError(t, json.Unmarshal([]byte(`"https://cdn.example.com/old.png"`), &a))
		assert.True(t, a.IsLegacy())
		assert.Equal(t, "https://cdn.example.com/old.png", a.URL)

		out, err := json.Marshal(a)
		require.NoError(t, err)
		assert.JSONEq(t, `"https://cdn.example.com/old.png"`, string(out))
	})

	t.Run("structured attachment round-trips as an object", func(t *testing.T) {
		var a Attachment
		require.NoError(t, json.Unmarshal([]byte(`{"url":"https://cdn.example.com/new.pdf","name":"report.pdf","description":"Q2"}`), &a))
		assert.False(t, a.IsLegacy())
		assert.Equal(t, "report.pdf", a.Name)

		out, err := json.Marshal(a)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"name":"report.pdf"`)
	})
}

func TestFromStorageRecord_LegacyShapes(t *testing.T) {
	id := uuid.New()
	member := uuid.New()

	rec := docstore.Record{
		"taskId":          "OPS-3",
		"name":            "Import legacy record",
		"assignedMembers": []interface{}{member.String()},
		// KPI stored as a numeric string by older clients.
		"expectedKpi": "100",
		"actualKpi":   float64(90),
		// Timestamp stored as epoch milliseconds.
		"createdAt": float64(1700000000000),
		"images": []interface{}{
			"https://cdn.example.com/bare.png",
			map[string]interface{}{"url": "https://cdn.example.com/shaped.png", "name": "shaped.png"},
		},
	}

	task, err := FromStorageRecord(rec, id)
	require.NoError(t, err)

	assert.Equal(t, id, task.ID)
	assert.Equal(t, StatusNew, task.Status, "missing status defaults to New")
	require.NotNil(t, task.ExpectedKpi)
	assert.Equal(t, 100.0, *task.ExpectedKpi)
	require.NotNil(t, task.ActualKpi)
	assert.Equal(t, 90.0, *task.ActualKpi)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), task.CreatedAt)
	require.Len(t, task.AssignedMembers, 1)
	assert.Equal(t, member, task.AssignedMembers[0])

	require.Len(t, task.Images, 2)
	assert.True(t, task.Images[0].IsLegacy())
	assert.False(t, task.Images[1].IsLegacy())
}

func TestFromStorageRecord_InvalidStatusDefaults(t *testing.T) {
	rec := docstore.Record{"name": "Odd record", "status": "Archived"}
	task, err := FromStorageRecord(rec, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusNew, task.Status)
}

func TestFromStorageRecord_BadMemberID(t *testing.T) {
	rec := docstore.Record{
		"name":            "Corrupt record",
		"assignedMembers": []interface{}{"not-a-uuid"},
	}
	_, err := FromStorageRecord(rec, uuid.New())
	assert.Error(t, err)
}

func TestStorageRecordRoundTrip(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	parent := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	eta := now.Add(48 * time.Hour)
	completedAt := now.Add(-time.Hour)

	original := &Task{
		ID:                  uuid.New(),
		TaskID:              "OPS-11",
		Name:                "Full round trip",
		Description:         "Everything set",
		Date:                now,
		Eta:                 &eta,
		Time:                "14:30",
		AssignedMembers:     []uuid.UUID{alice, bob},
		AssignedMemberNames: []string{"Alice", "Bob"},
		Status:              StatusProgress,
		StatusHistory: []StatusEntry{
			{Status: StatusNew, Timestamp: now.Add(-2 * time.Hour), ChangedBy: alice, ChangedByName: "Alice"},
			{Status: StatusProgress, Timestamp: now.Add(-time.Hour), ChangedBy: bob, ChangedByName: "Bob", Note: "picked up"},
		},
		Collaborative: true,
		CompletedBy: []Completion{
			{UserID: alice, UserName: "Alice", CompletedAt: completedAt},
		},
		ExpectedKpi:        floatPtr(100),
		ActualKpi:          floatPtr(100),
		Recurring:          true,
		RecurringFrequency: []string{"monday", "thursday"},
		RecurringStartDate: timePtr(now.AddDate(0, -1, 0)),
		RecurringEndDate:   timePtr(now.AddDate(0, 1, 0)),
		ParentTaskID:       &parent,
		Images:             []Attachment{NewLegacyAttachment("https://cdn.example.com/a.png")},
		Files:              []Attachment{NewAttachment("https://cdn.example.com/b.pdf", "b.pdf", "handover")},
		Subtasks: []Subtask{{
			ID:          "sub-9",
			Description: "Check totals",
			AddedAt:     now.Add(-3 * time.Hour),
			Completed:   true,
			CompletedAt: &completedAt,
		}},
		Order:         intPtr(3),
		CreatedAt:     now.Add(-4 * time.Hour),
		UpdatedAt:     now,
		CreatedBy:     alice,
		CreatedByName: "Alice",
	}

	rec, err := ToStorageRecord(original)
	require.NoError(t, err)

	// Stored shape uses the store's field names.
	assert.Contains(t, rec, "taskId")
	assert.Contains(t, rec, "assignedMembers")
	assert.Contains(t, rec, "statusHistory")
	assert.NotContains(t, rec, "id", "document id lives outside the record")

	decoded, err := FromStorageRecord(rec, original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.TaskID, decoded.TaskID)
	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.AssignedMembers, decoded.AssignedMembers)
	assert.Equal(t, original.StatusHistory, decoded.StatusHistory)
	assert.Equal(t, original.CompletedBy, decoded.CompletedBy)
	assert.Equal(t, original.ExpectedKpi, decoded.ExpectedKpi)
	assert.Equal(t, original.ParentTaskID, decoded.ParentTaskID)
	assert.Equal(t, original.Images, decoded.Images)
	assert.Equal(t, original.Files, decoded.Files)
	assert.Equal(t, original.Subtasks, decoded.Subtasks)
	assert.Nil(t, decoded.Subtasks[0].Images, "absent subtask attachments stay nil")
	assert.Nil(t, decoded.Subtasks[0].Files)
	assert.Equal(t, original.Order, decoded.Order)
	require.NotNil(t, decoded.Eta)
	assert.True(t, original.Eta.Equal(*decoded.Eta))
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
}

func TestCompletionLedgerFields(t *testing.T) {
	alice := uuid.New()
	now := time.Now().UTC()
	task := &Task{
		ID:              uuid.New(),
		Name:            "Quarterly stock count",
		AssignedMembers: []uuid.UUID{alice},
		Status:          StatusProgress,
		StatusHistory: []StatusEntry{
			{Status: StatusProgress, Timestamp: now, ChangedBy: alice, ChangedByName: "Alice", Note: "Alice completed their part"},
		},
		CompletedBy: []Completion{{UserID: alice, UserName: "Alice", CompletedAt: now}},
		UpdatedAt:   now,
	}

	fields, err := CompletionLedgerFields(task)
	require.NoError(t, err)

	// Only the ledger fields are merged; the rest of the record is left to
	// the stored copy.
	assert.Len(t, fields, 4)
	assert.Equal(t, string(StatusProgress), fields["status"])
	assert.Contains(t, fields, "completedBy")
	assert.Contains(t, fields, "statusHistory")
	assert.Contains(t, fields, "updatedAt")
	assert.NotContains(t, fields, "name")
}

func TestToStorageRecord_OmitsEmptyOptionals(t *testing.T) {
	task := &Task{
		ID:              uuid.New(),
		Name:            "Sparse task",
		AssignedMembers: []uuid.UUID{uuid.New()},
		Status:          StatusNew,
	}

	rec, err := ToStorageRecord(task)
	require.NoError(t, err)

	for _, absent := range []string{"eta", "expectedKpi", "actualKpi", "parentTaskId", "order", "completedBy", "createdAt"} {
		assert.NotContains(t, rec, absent)
	}
}
