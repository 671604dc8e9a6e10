// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/background"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/feed"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/performance"
	eventstore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/events"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
	savestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/saves"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/chosencharacters/Tankmas2024-Server/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services
	PresenceService *services.PresenceService
	EventService    *services.EventService
	SaveService     *services.SaveService
	AuthService     *services.AuthService

	// Infrastructure dependencies
	DB             *database.DB
	RoomRegistry   *presencestore.RoomRegistry
	RateController *ratecontrol.Controller
	FeedHub        *feed.Hub
	Worker         *background.Worker
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, registry *presencestore.RoomRegistry, jwtSecret string, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker(database.SlowQueryThreshold, logger)
	rateController := ratecontrol.NewController(config.BaseTickRate, config.AttritionDivisor, config.RateRecomputeInterval)
	feedHub := feed.NewHub(logger)

	userRepo := presencestore.NewUserRepository(db)
	eventRepo := eventstore.NewEventRepository(db)
	saveRepo := savestore.NewSaveRepository(db)

	presenceService := services.NewPresenceService(
		userRepo, registry, config.MaxIdleTime, config.UserRequiredFields, logger)
	eventService := services.NewEventService(eventRepo, registry, feedHub, logger)
	saveService := services.NewSaveService(saveRepo, logger)
	authService := services.NewAuthService(
		config.AdminPassword, jwtSecret, config.AdminTokenTTL, logger)

	worker := background.NewWorker(
		presenceService, rateController, db, background.NewConfig(), logger)

	return &Container{
		PresenceService: presenceService,
		EventService:    eventService,
		SaveService:     saveService,
		AuthService:     authService,

		DB:             db,
		RoomRegistry:   registry,
		RateController: rateController,
		FeedHub:        feedHub,
		Worker:         worker,
		Logger:         logger,
		PerfTracker:    perfTracker,
	}
}
