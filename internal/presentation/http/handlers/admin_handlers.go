package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/events"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/background"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/feed"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// AdminHandlers contains the administrative HTTP handlers
type AdminHandlers struct {
	authService     *services.AuthService
	presenceService *services.PresenceService
	eventService    *services.EventService
	feedHub         *feed.Hub
	worker          *background.Worker
	logger          *logging.ChanneledLogger
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(
	authService *services.AuthService,
	presenceService *services.PresenceService,
	eventService *services.EventService,
	feedHub *feed.Hub,
	worker *background.Worker,
	logger *logging.ChanneledLogger,
) *AdminHandlers {
	return &AdminHandlers{
		authService:     authService,
		presenceService: presenceService,
		eventService:    eventService,
		feedHub:         feedHub,
		worker:          worker,
		logger:          logger,
	}
}

// AuthMiddleware validates the admin bearer token on protected routes
func (h *AdminHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !h.authService.ValidateAdminToken(token) {
			h.logger.Auth().Warn("Rejected admin request", "path", c.Request.URL.Path, "clientIP", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Login handles POST /admin/login - exchange the admin password for a token
func (h *AdminHandlers) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	token, err := h.authService.AuthenticateAdmin(req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListUsers handles GET /admin/users - every active user across all rooms
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	users, err := h.presenceService.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Kick handles POST /admin/kick - remove a user from presence
func (h *AdminHandlers) Kick(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	removed, err := h.presenceService.RemoveUser(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.eventService.DropCursors(req.Username)
	h.logger.Auth().Info("Admin kicked user", "username", req.Username, "removed", removed)

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Broadcast handles POST /admin/broadcast - push a notification to all feed clients
func (h *AdminHandlers) Broadcast(c *gin.Context) {
	var req struct {
		Text       string `json:"text"`
		Persistent bool   `json:"persistent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	h.feedHub.Broadcast(events.Notification{Text: req.Text, Persistent: req.Persistent})
	h.logger.Auth().Info("Admin broadcast sent", "text", req.Text, "clients", h.feedHub.ClientCount())

	c.JSON(http.StatusOK, gin.H{"clients": h.feedHub.ClientCount()})
}

// Backup handles POST /admin/backup - snapshot the database immediately
func (h *AdminHandlers) Backup(c *gin.Context) {
	path, err := h.worker.BackupNow()
	if err != nil {
		h.logger.Auth().Error("Admin backup failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}
