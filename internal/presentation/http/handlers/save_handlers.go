package handlers

import (
	"net/http"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/performance"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// SaveHandlers contains the save blob HTTP handlers
type SaveHandlers struct {
	saveService *services.SaveService
	rate        *ratecontrol.Controller
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// SaveRequest carries a save blob operation. Data is the uninterpreted blob.
type SaveRequest struct {
	Username string `json:"username"`
	Data     string `json:"data"`
}

// NewSaveHandlers creates save handlers with injected dependencies
func NewSaveHandlers(saveService *services.SaveService, rate *ratecontrol.Controller, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SaveHandlers {
	return &SaveHandlers{
		saveService: saveService,
		rate:        rate,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostSaveGet handles POST /saves/get - fetch a user's save blob
func (h *SaveHandlers) PostSaveGet(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_save")
	defer marker.Complete()

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError()
		c.JSON(http.StatusBadRequest, gin.H{"tick_rate": h.rate.TickRate(), "error": "invalid request format"})
		return
	}

	data, found, err := h.saveService.LoadSave(req.Username)
	if err != nil {
		marker.SetError()
		respondError(c, h.rate, err)
		return
	}
	if !found {
		respond(c, h.rate, nil)
		return
	}

	respond(c, h.rate, data)
}

// PostSavePost handles POST /saves/post - store a user's save blob
func (h *SaveHandlers) PostSavePost(c *gin.Context) {
	marker := h.perfTracker.StartOperation("store_save")
	defer marker.Complete()

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError()
		c.JSON(http.StatusBadRequest, gin.H{"tick_rate": h.rate.TickRate(), "error": "invalid request format"})
		return
	}

	if err := h.saveService.StoreSave(req.Username, req.Data); err != nil {
		marker.SetError()
		h.logger.HTTP().Error("Save store failed", "username", req.Username, "error", err.Error())
		respondError(c, h.rate, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tick_rate": h.rate.TickRate()})
}
