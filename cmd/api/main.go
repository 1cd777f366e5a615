package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/handlers"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/routes"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/task"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/user"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/cache"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/docstore"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/uploads"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/config"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Configuration loaded", zap.String("mode", cfg.Server.Mode))

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: append(cfg.CORS.AllowedHeaders,
			"Accept-Encoding",
			"Content-Type",
			"Authorization",
		),
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Connect to postgres and redis
	db, err := docstore.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(cache.NewConfigFromEnv(cfg))
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := docstore.NewPostgresStore(db, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize document store", zap.Error(err))
	}

	if err := db.AutoMigrate(&user.User{}); err != nil {
		log.Fatal("Failed to migrate users table", zap.Error(err))
	}

	// Logrus logger for the uploads client
	uploadsLogger := logrus.New()
	uploadsLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		uploadsLogger.SetLevel(logrus.InfoLevel)
	} else {
		uploadsLogger.SetLevel(logrus.DebugLevel)
	}

	// Initialize repositories and services
	taskRepo := task.NewRepository(store)
	userRepo := user.NewRepository(db)

	userService := user.NewService(userRepo, log.Logger)
	taskService := task.NewService(taskRepo, userService, redisClient, log.Logger)
	uploadsClient := uploads.NewClient(cfg.Uploads, uploadsLogger)

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskService)
	boardHandler := handlers.NewBoardHandler(taskService)
	streamHandler := handlers.NewStreamHandler(taskService)
	userHandler := handlers.NewUserHandler(userService)
	uploadHandler := handlers.NewUploadHandler(uploadsClient)

	// Register routes
	cacheMiddleware := middleware.NewCacheMiddleware(redisClient, "opsdash", 5*time.Minute)
	routes.NewTaskRoutes(taskHandler, cfg.Auth.JWTSecret).RegisterRoutes(router, cacheMiddleware)
	routes.NewBoardRoutes(boardHandler, streamHandler, cfg.Auth.JWTSecret).RegisterRoutes(router, cacheMiddleware)
	routes.NewUserRoutes(userHandler, cfg.Auth.JWTSecret).RegisterRoutes(router)
	routes.NewUploadRoutes(uploadHandler, cfg.Auth.JWTSecret).RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
