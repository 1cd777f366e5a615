package routes

import (
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/handlers"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// UploadRoutes handles the setup of attachment upload routes
type UploadRoutes struct {
	handler   *handlers.UploadHandler
	jwtSecret string
}

func NewUploadRoutes(handler *handlers.UploadHandler, jwtSecret string) *UploadRoutes {
	return &UploadRoutes{handler: handler, jwtSecret: jwtSecret}
}

// RegisterRoutes registers all upload routes
func (r *UploadRoutes) RegisterRoutes(router *gin.Engine) {
	uploads := router.Group("/api/uploads")
	uploads.Use(middleware.NewAuthMiddleware(r.jwtSecret))

	uploads.POST("", r.handler.UploadFiles)
}
