package routes

import (
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/dto"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/handlers"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// TaskRoutes handles the setup of task-related routes
type TaskRoutes struct {
	handler   *handlers.TaskHandler
	jwtSecret string
}

func NewTaskRoutes(handler *handlers.TaskHandler, jwtSecret string) *TaskRoutes {
	return &TaskRoutes{handler: handler, jwtSecret: jwtSecret}
}

// RegisterRoutes registers all task-related routes
func (r *TaskRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	validation := middleware.NewValidationMiddleware()
	metrics := middleware.NewMetricsMiddleware()

	tasks := router.Group("/api/tasks")
	tasks.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	tasks.Use(metrics.CollectMetrics())

	tasks.GET("", cache.CacheResponse(), r.handler.ListMyTasks)
	tasks.GET("/:id", cache.CacheResponse(), r.handler.GetTask)

	tasks.POST("", validation.ValidateRequest(&dto.CreateTaskRequest{}), cache.CacheInvalidate("*"), r.handler.CreateTask)
	tasks.PUT("/:id", validation.ValidateRequest(&dto.UpdateTaskRequest{}), cache.CacheInvalidate("*"), r.handler.UpdateTask)

	// Status transitions run through the transition engine only.
	tasks.PATCH("/:id/status", cache.CacheInvalidate("*"), r.handler.UpdateTaskStatus)
}
