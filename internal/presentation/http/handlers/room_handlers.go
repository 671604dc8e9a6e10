package handlers

import (
	"net/http"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/performance"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// RoomHandlers contains the room presence HTTP handlers
type RoomHandlers struct {
	presenceService *services.PresenceService
	rate            *ratecontrol.Controller
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// UpdateRoomUserRequest is the body of a position report. Absent fields are
// left untouched on the stored state.
type UpdateRoomUserRequest struct {
	Name string `json:"name"`
	presence.PartialState
}

// NewRoomHandlers creates room handlers with injected dependencies
func NewRoomHandlers(presenceService *services.PresenceService, rate *ratecontrol.Controller, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *RoomHandlers {
	return &RoomHandlers{
		presenceService: presenceService,
		rate:            rate,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// PostRoomUser handles POST /rooms/:room_id/users - join or update presence
func (h *RoomHandlers) PostRoomUser(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_room_user")
	defer marker.Complete()

	roomID, err := roomIDParam(c)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	var req UpdateRoomUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError()
		c.JSON(http.StatusBadRequest, gin.H{"tick_rate": h.rate.TickRate(), "error": "invalid request format"})
		return
	}

	needsMoreInfo, err := h.presenceService.UpsertUser(req.Name, roomID, req.PartialState)
	if err != nil {
		marker.SetError()
		h.logger.HTTP().Error("Room user upsert failed", "roomId", roomID, "username", req.Name, "error", err.Error())
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, gin.H{"request_for_more_info": needsMoreInfo})
}

// GetRoom handles GET /rooms/:room_id - room info plus live users
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_room")
	defer marker.Complete()

	roomID, err := roomIDParam(c)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	room, err := h.presenceService.GetRoom(roomID)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, room)
}

// GetRoomUsers handles GET /rooms/:room_id/users - live users only
func (h *RoomHandlers) GetRoomUsers(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_room_users")
	defer marker.Complete()

	roomID, err := roomIDParam(c)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	users, err := h.presenceService.GetRoomUsers(roomID)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, users)
}

// GetRooms handles GET /rooms - every configured room with its live users
func (h *RoomHandlers) GetRooms(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_rooms")
	defer marker.Complete()

	rooms, err := h.presenceService.ListRooms()
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, rooms)
}

// GetPlayers handles GET /players - every live user across rooms
func (h *RoomHandlers) GetPlayers(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_players")
	defer marker.Complete()

	users, err := h.presenceService.ListUsers()
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	respond(c, h.rate, users)
}

// GetUser handles GET /users/:username - single user lookup, null when
// unknown
func (h *RoomHandlers) GetUser(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_user")
	defer marker.Complete()

	user, err := h.presenceService.GetUser(c.Param("username"))
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}

	// Unknown usernames degrade to a null payload, not a hard failure.
	respond(c, h.rate, user)
}
