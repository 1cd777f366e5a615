package routes

import (
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/handlers"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// BoardRoutes handles the setup of kanban board routes
type BoardRoutes struct {
	handler   *handlers.BoardHandler
	stream    *handlers.StreamHandler
	jwtSecret string
}

func NewBoardRoutes(handler *handlers.BoardHandler, stream *handlers.StreamHandler, jwtSecret string) *BoardRoutes {
	return &BoardRoutes{handler: handler, stream: stream, jwtSecret: jwtSecret}
}

// RegisterRoutes registers all board-related routes
func (r *BoardRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	metrics := middleware.NewMetricsMiddleware()

	board := router.Group("/api/board")
	board.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	board.Use(metrics.CollectMetrics())

	// The board itself is never cached; order changes must be visible on the
	// next read. Writes still flush the task list caches.
	board.GET("", r.handler.GetBoard)
	board.POST("/reorder", cache.CacheInvalidate("*"), r.handler.ReorderTask)
	board.POST("/move", cache.CacheInvalidate("*"), r.handler.MoveTask)

	// Live snapshot stream; clients authenticate with ?token= since browsers
	// cannot set headers on websocket upgrades.
	board.GET("/stream", r.stream.StreamAssignedTasks)
}
