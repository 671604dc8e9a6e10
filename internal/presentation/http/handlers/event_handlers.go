package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/feed"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/performance"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// EventHandlers contains the event ledger HTTP handlers
type EventHandlers struct {
	eventService *services.EventService
	feedHub      *feed.Hub
	rate         *ratecontrol.Controller
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// PostEventRequest is the body of an event post. Data is passed through
// uninterpreted.
type PostEventRequest struct {
	Username string          `json:"username"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
}

// GetEventsRequest identifies the polling user.
type GetEventsRequest struct {
	Username string `json:"username"`
}

// NewEventHandlers creates event handlers with injected dependencies
func NewEventHandlers(eventService *services.EventService, feedHub *feed.Hub, rate *ratecontrol.Controller, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EventHandlers {
	return &EventHandlers{
		eventService: eventService,
		feedHub:      feedHub,
		rate:         rate,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// PostEvent handles POST /rooms/:room_id/events/post
func (h *EventHandlers) PostEvent(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_event")
	defer marker.Complete()

	roomID, err := roomIDParam(c)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	var req PostEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError()
		c.JSON(http.StatusBadRequest, gin.H{"tick_rate": h.rate.TickRate(), "error": "invalid request format"})
		return
	}

	if _, err := h.eventService.PostEvent(req.Username, req.Type, req.Data, roomID); err != nil {
		marker.SetError()
		h.logger.HTTP().Error("Event post failed", "roomId", roomID, "username", req.Username, "type", req.Type, "error", err.Error())
		respondError(c, h.rate, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tick_rate": h.rate.TickRate()})
}

// GetEventsSince handles POST /rooms/:room_id/events/get - events newer than
// the caller's delivery cursor
func (h *EventHandlers) GetEventsSince(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_events_since")
	defer marker.Complete()

	roomID, err := roomIDParam(c)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	var req GetEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError()
		c.JSON(http.StatusBadRequest, gin.H{"tick_rate": h.rate.TickRate(), "error": "invalid request format"})
		return
	}

	selected, err := h.eventService.EventsSince(req.Username, roomID)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, gin.H{"events": selected})
}

// StreamEvents handles GET /rooms/:room_id/events/stream - websocket feed of
// newly posted events
func (h *EventHandlers) StreamEvents(c *gin.Context) {
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, h.rate, err)
		return
	}

	if err := h.feedHub.Serve(c.Writer, c.Request, roomID); err != nil {
		h.logger.Feed().Error("Feed upgrade failed", "roomId", roomID, "error", err.Error())
	}
}
