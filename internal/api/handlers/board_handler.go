package handlers

import (
	"errors"
	"net/http"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/dto"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/task"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BoardHandler handles the kanban board views and drag operations
type BoardHandler struct {
	service task.Service
}

func NewBoardHandler(service task.Service) *BoardHandler {
	return &BoardHandler{service: service}
}

// GetBoard returns every column sorted for display
func (h *BoardHandler) GetBoard(c *gin.Context) {
	board, err := h.service.BoardColumns(c.Request.Context())
	if err != nil {
		log.Error("Failed to load board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load board"})
		return
	}

	resp := dto.BoardResponse{Columns: make(map[string][]dto.TaskResponse, len(board))}
	for status, tasks := range board {
		resp.Columns[string(status)] = toTaskResponses(tasks)
	}
	c.JSON(http.StatusOK, resp)
}

// ReorderTask moves a task within its column. A failure means the client's
// board view went stale mid-drag, so the response tells it to reload.
func (h *BoardHandler) ReorderTask(c *gin.Context) {
	var req dto.ReorderTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := task.Status(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
		return
	}

	if err := h.service.ReorderWithinColumn(c.Request.Context(), status, req.TaskID, req.ToIndex); err != nil {
		log.Error("Failed to reorder column", zap.Error(err))
		c.JSON(http.StatusConflict, dto.ReorderConflictResponse{
			Error:  "board changed during reorder",
			Reload: true,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// MoveTask moves a task to another column, appending it at the end
func (h *BoardHandler) MoveTask(c *gin.Context) {
	var req dto.MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	status := task.Status(req.Status)
	moved, err := h.service.MoveToColumn(c.Request.Context(), req.TaskID, status, actor)
	if err != nil {
		switch {
		case errors.Is(err, task.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, task.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, task.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, task.ErrKpiMissing), errors.Is(err, task.ErrKpiNotMet):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			log.Error("Failed to move task", zap.Error(err))
			c.JSON(http.StatusConflict, dto.ReorderConflictResponse{
				Error:  "board changed during move",
				Reload: true,
			})
		}
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(moved))
}
