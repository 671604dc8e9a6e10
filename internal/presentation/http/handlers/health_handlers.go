package handlers

import (
	"net/http"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/feed"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/performance"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// HealthHandlers contains the service health and status handlers
type HealthHandlers struct {
	db           *database.DB
	eventService *services.EventService
	rate         *ratecontrol.Controller
	feedHub      *feed.Hub
	perfTracker  *performance.Tracker
	startedAt    time.Time
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(db *database.DB, eventService *services.EventService, rate *ratecontrol.Controller, feedHub *feed.Hub, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		db:           db,
		eventService: eventService,
		rate:         rate,
		feedHub:      feedHub,
		perfTracker:  perfTracker,
		startedAt:    time.Now(),
	}
}

// Health handles GET /health - liveness plus a small status snapshot
func (h *HealthHandlers) Health(c *gin.Context) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := h.db.Ping(); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	eventCount, err := h.eventService.CurrentEventCount()
	if err != nil {
		eventCount = -1
	}

	c.JSON(httpStatus, gin.H{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"rate":           h.rate.Stats(),
		"events":         eventCount,
		"feed_clients":   h.feedHub.ClientCount(),
		"operations":     h.perfTracker.Snapshot(),
	})
}
