package handlers

import (
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/dto"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/task"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/user"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.NewLogger()

func toAttachmentPayloads(attachments []task.Attachment) []dto.AttachmentPayload {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]dto.AttachmentPayload, len(attachments))
	for i, a := range attachments {
		out[i] = dto.AttachmentPayload{URL: a.URL, Name: a.Name, Description: a.Description}
	}
	return out
}

func fromAttachmentPayloads(payloads []dto.AttachmentPayload) []task.Attachment {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]task.Attachment, len(payloads))
	for i, p := range payloads {
		if p.Name == "" && p.Description == "" {
			out[i] = task.NewLegacyAttachment(p.URL)
			continue
		}
		out[i] = task.NewAttachment(p.URL, p.Name, p.Description)
	}
	return out
}

func toTaskResponse(t *task.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:                  t.ID,
		TaskID:              t.TaskID,
		Name:                t.Name,
		Description:         t.Description,
		Date:                t.Date,
		Eta:                 t.Eta,
		Time:                t.Time,
		AssignedMembers:     t.AssignedMembers,
		AssignedMemberNames: t.AssignedMemberNames,
		Status:              string(t.Status),
		Collaborative:       t.Collaborative,
		ExpectedKpi:         t.ExpectedKpi,
		ActualKpi:           t.ActualKpi,
		Recurring:           t.Recurring,
		RecurringFrequency:  t.RecurringFrequency,
		RecurringStartDate:  t.RecurringStartDate,
		RecurringEndDate:    t.RecurringEndDate,
		ParentTaskID:        t.ParentTaskID,
		Images:              toAttachmentPayloads(t.Images),
		Files:               toAttachmentPayloads(t.Files),
		Order:               t.Order,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		CreatedByName:       t.CreatedByName,
	}
	if t.CreatedBy != uuid.Nil {
		resp.CreatedBy = t.CreatedBy.String()
	}

	for _, e := range t.StatusHistory {
		entry := dto.StatusEntryResponse{
			Status:        string(e.Status),
			Timestamp:     e.Timestamp,
			ChangedByName: e.ChangedByName,
			Note:          e.Note,
		}
		if e.ChangedBy != uuid.Nil {
			entry.ChangedBy = e.ChangedBy.String()
		}
		resp.StatusHistory = append(resp.StatusHistory, entry)
	}

	for _, c := range t.CompletedBy {
		resp.CompletedBy = append(resp.CompletedBy, dto.CompletionResponse{
			UserID:      c.UserID,
			UserName:    c.UserName,
			CompletedAt: c.CompletedAt,
		})
	}

	for _, s := range t.Subtasks {
		resp.Subtasks = append(resp.Subtasks, dto.SubtaskResponse{
			ID:          s.ID,
			Description: s.Description,
			AddedAt:     s.AddedAt,
			Completed:   s.Completed,
			CompletedAt: s.CompletedAt,
			Images:      toAttachmentPayloads(s.Images),
			Files:       toAttachmentPayloads(s.Files),
		})
	}

	return resp
}

func toTaskResponses(tasks []task.Task) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(&tasks[i])
	}
	return out
}

func toUserResponse(u *user.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Status:    string(u.Status),
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
