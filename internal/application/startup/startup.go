// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/container"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/security"
	"github.com/chosencharacters/Tankmas2024-Server/internal/presentation/http/server"
	"github.com/chosencharacters/Tankmas2024-Server/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Create the channeled logger
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Initializing...")

	// Step 2: Open the database and ensure the schema exists
	if dir := filepath.Dir(config.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := database.NewConnectionWithLogger(config.DBDriver, config.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.EnsureSchema(); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Startup().Info("Database ready", "driver", config.DBDriver, "path", config.DBPath)

	// Step 3: Load the room catalog and sync it into the store
	roomsConfig, err := presencestore.LoadRoomsConfig(config.RoomsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load rooms config: %w", err)
	}
	registry := presencestore.NewRoomRegistry(roomsConfig.Rooms)
	if err := registry.Sync(db); err != nil {
		return fmt.Errorf("failed to sync rooms: %w", err)
	}
	logger.Startup().Info("Room catalog loaded", "rooms", len(roomsConfig.Rooms))

	// Step 4: Resolve the JWT secret. An ephemeral secret means admin
	// tokens do not survive a restart, which is fine for dev.
	jwtSecret := config.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = security.GenerateSecureKey(32)
		if err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		logger.Startup().Warn("JWT_SECRET not set, using ephemeral secret")
	}

	// Step 5: Create dependency injection container
	appContainer := container.NewContainer(db, registry, jwtSecret, logger)
	if roomsConfig.InitialPlayerState != nil {
		appContainer.PresenceService.SetInitialState(roomsConfig.InitialPlayerState)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 6: Start the background worker
	go appContainer.Worker.Start(ctx)
	logger.Startup().Info("Background worker started",
		"tickInterval", config.TickInterval,
		"backupInterval", config.BackupInterval)

	// Step 7: Start HTTP server
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing database...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	} else {
		logger.Shutdown().Info("Database closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
