package middleware

import (
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/gin-gonic/gin"
)

// RateHit records one rate-controller hit per request. Every player-surface
// request contributes to the epoch's load measurement.
func RateHit(rate *ratecontrol.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		rate.Hit()
		c.Next()
	}
}
