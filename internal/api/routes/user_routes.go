package routes

import (
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/handlers"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// UserRoutes handles the setup of directory routes
type UserRoutes struct {
	handler   *handlers.UserHandler
	jwtSecret string
}

func NewUserRoutes(handler *handlers.UserHandler, jwtSecret string) *UserRoutes {
	return &UserRoutes{handler: handler, jwtSecret: jwtSecret}
}

// RegisterRoutes registers all directory routes
func (r *UserRoutes) RegisterRoutes(router *gin.Engine) {
	users := router.Group("/api/users")
	users.Use(middleware.NewAuthMiddleware(r.jwtSecret))

	users.GET("", r.handler.ListUsers)
	users.GET("/:id", r.handler.GetUser)
}
