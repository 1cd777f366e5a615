package handlers

import (
	"net/http"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/middleware"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/domain/task"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients connect from the dashboard origin; auth happens via
	// the token query parameter before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes live task snapshots over a websocket. Every change to
// the caller's assigned tasks delivers the full current set, not a delta, so
// the client just replaces its local state.
type StreamHandler struct {
	service task.Service
}

func NewStreamHandler(service task.Service) *StreamHandler {
	return &StreamHandler{service: service}
}

// StreamAssignedTasks upgrades the connection and streams snapshots until the
// client disconnects
func (h *StreamHandler) StreamAssignedTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	snapshots := make(chan []task.Task, 8)
	cancel, err := h.service.WatchAssigned(c.Request.Context(), userID, func(tasks []task.Task) {
		select {
		case snapshots <- tasks:
		default:
			// A slow consumer skips intermediate snapshots; the next delivery
			// carries the full current state anyway.
		}
	})
	if err != nil {
		log.Error("Failed to open task subscription", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer cancel()

	// Read pump: we never expect client messages, but reading surfaces the
	// close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case tasks := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(gin.H{"tasks": toTaskResponses(tasks)}); err != nil {
				log.Warn("Failed to push task snapshot", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
