package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/dto"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/task"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskHandler handles HTTP requests for task operations
type TaskHandler struct {
	service task.Service
}

func NewTaskHandler(service task.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

func actorFromContext(c *gin.Context) (task.Actor, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		return task.Actor{}, false
	}
	return task.Actor{
		ID:         userID,
		Name:       middleware.GetUserName(c),
		Privileged: middleware.IsPrivileged(c),
	}, true
}

// CreateTask creates a new task assigned to one or more members
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if validatedModel, exists := c.Get("validated_model"); exists {
		validatedPtr, ok := validatedModel.(*dto.CreateTaskRequest)
		if !ok {
			log.Error("Unexpected validated model type")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req = *validatedPtr
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	input := task.CreateTaskInput{
		TaskID:             req.TaskID,
		Name:               req.Name,
		Description:        req.Description,
		Eta:                req.Eta,
		Time:               req.Time,
		AssignedMembers:    req.AssignedMembers,
		Collaborative:      req.Collaborative,
		ExpectedKpi:        req.ExpectedKpi,
		Recurring:          req.Recurring,
		RecurringFrequency: req.RecurringFrequency,
		RecurringStartDate: req.RecurringStartDate,
		RecurringEndDate:   req.RecurringEndDate,
		Images:             fromAttachmentPayloads(req.Images),
		Files:              fromAttachmentPayloads(req.Files),
		CreatorID:          actor.ID,
		CreatorName:        actor.Name,
	}
	if req.Date != nil {
		input.Date = *req.Date
	} else {
		input.Date = time.Now().UTC()
	}
	for _, sub := range req.Subtasks {
		input.Subtasks = append(input.Subtasks, task.SubtaskInput{
			Description: sub.Description,
			Images:      fromAttachmentPayloads(sub.Images),
			Files:       fromAttachmentPayloads(sub.Files),
		})
	}

	created, err := h.service.CreateTask(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, task.ErrInvalidInput) || errors.Is(err, task.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("Failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(created))
}

// GetTask returns a single task by id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	found, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.Error("Failed to load task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(found))
}

// ListMyTasks returns every task assigned to the caller
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	tasks, err := h.service.ListAssignedTasks(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": toTaskResponses(tasks)})
}

// UpdateTask updates a task's content fields
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req dto.UpdateTaskRequest
	if validatedModel, exists := c.Get("validated_model"); exists {
		validatedPtr, ok := validatedModel.(*dto.UpdateTaskRequest)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req = *validatedPtr
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	updated, err := h.service.UpdateTask(c.Request.Context(), id, task.UpdateTaskInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Eta:         req.Eta,
		Time:        req.Time,
		ExpectedKpi: req.ExpectedKpi,
		ActualKpi:   req.ActualKpi,
		Images:      fromAttachmentPayloads(req.Images),
		Files:       fromAttachmentPayloads(req.Files),
	}, actor)
	if err != nil {
		h.writeTaskError(c, err, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(updated))
}

// UpdateTaskStatus runs a status transition for the calling user
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req dto.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	updated, err := h.service.ChangeStatus(c.Request.Context(), id, task.Status(req.Status), actor)
	if err != nil {
		h.writeTaskError(c, err, "failed to change task status")
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(updated))
}

func (h *TaskHandler) writeTaskError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, task.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, task.ErrInvalidStatus), errors.Is(err, task.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, task.ErrKpiMissing), errors.Is(err, task.ErrKpiNotMet):
		// The KPI gate rejects the completion; the client surfaces the
		// message and keeps the task where it is.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
