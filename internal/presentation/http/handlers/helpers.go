// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// respond writes the {tick_rate, data} envelope every player endpoint uses.
// The tick rate rides along on every response so clients can adjust their
// poll cadence without a dedicated endpoint.
func respond(c *gin.Context, rate *ratecontrol.Controller, data any) {
	c.JSON(http.StatusOK, gin.H{
		"tick_rate": rate.TickRate(),
		"data":      data,
	})
}

// respondError maps the error taxonomy onto explicit status codes: validation
// failures before touching state are 400, unknown rooms are 404, store
// failures are 500 with the detail kept out of the response.
func respondError(c *gin.Context, rate *ratecontrol.Controller, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case services.IsValidation(err):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrRoomNotFound):
		status = http.StatusNotFound
		message = "room not found"
	}

	c.JSON(status, gin.H{
		"tick_rate": rate.TickRate(),
		"data":      nil,
		"error":     message,
	})
}

// roomIDParam parses the :room_id path segment. Non-numeric ids are treated
// as unknown rooms.
func roomIDParam(c *gin.Context) (int, error) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		return 0, fmt.Errorf("room %q: %w", c.Param("room_id"), services.ErrRoomNotFound)
	}
	return roomID, nil
}
