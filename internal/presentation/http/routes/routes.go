// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/chosencharacters/Tankmas2024-Server/internal/application/container"
	"github.com/chosencharacters/Tankmas2024-Server/internal/presentation/http/handlers"
	"github.com/chosencharacters/Tankmas2024-Server/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	roomHandlers := handlers.NewRoomHandlers(container.PresenceService, container.RateController, container.Logger, container.PerfTracker)
	eventHandlers := handlers.NewEventHandlers(container.EventService, container.FeedHub, container.RateController, container.Logger, container.PerfTracker)
	saveHandlers := handlers.NewSaveHandlers(container.SaveService, container.RateController, container.Logger, container.PerfTracker)
	adminHandlers := handlers.NewAdminHandlers(container.AuthService, container.PresenceService, container.EventService, container.FeedHub, container.Worker, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.DB, container.EventService, container.RateController, container.FeedHub, container.PerfTracker)

	r.GET("/health", healthHandlers.Health)

	// Player-facing routes. Every call here counts toward the adaptive
	// tick rate, so the hit middleware wraps only this group.
	player := r.Group("/")
	player.Use(middleware.RateHit(container.RateController))
	{
		player.GET("/rooms", roomHandlers.GetRooms)
		player.GET("/rooms/:room_id", roomHandlers.GetRoom)
		player.GET("/rooms/:room_id/users", roomHandlers.GetRoomUsers)
		player.POST("/rooms/:room_id/users", roomHandlers.PostRoomUser)
		player.GET("/players", roomHandlers.GetPlayers)
		player.GET("/users/:username", roomHandlers.GetUser)

		player.POST("/rooms/:room_id/events/post", eventHandlers.PostEvent)
		player.POST("/rooms/:room_id/events/get", eventHandlers.GetEventsSince)

		player.POST("/saves/get", saveHandlers.PostSaveGet)
		player.POST("/saves/post", saveHandlers.PostSavePost)
	}

	// The websocket feed is long-lived and must not inflate the poll
	// hit counter.
	r.GET("/rooms/:room_id/events/stream", eventHandlers.StreamEvents)

	admin := r.Group("/admin")
	{
		admin.POST("/login", adminHandlers.Login)

		admin.Use(adminHandlers.AuthMiddleware())
		{
			admin.GET("/users", adminHandlers.ListUsers)
			admin.POST("/kick", adminHandlers.Kick)
			admin.POST("/broadcast", adminHandlers.Broadcast)
			admin.POST("/backup", adminHandlers.Backup)
		}
	}

	return r
}
