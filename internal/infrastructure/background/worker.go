// Package background provides the periodic worker that owns rate recompute,
// idle reaping and timed database backups.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/services"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/ratecontrol"
	"github.com/chosencharacters/Tankmas2024-Server/pkg/config"
)

// Config controls the worker cadence.
type Config struct {
	TickInterval   time.Duration
	BackupInterval time.Duration
	BackupDir      string
}

// NewConfig creates a worker configuration from the application defaults.
func NewConfig() *Config {
	return &Config{
		TickInterval:   config.TickInterval,
		BackupInterval: config.BackupInterval,
		BackupDir:      config.BackupDir,
	}
}

// Worker runs the fixed-cadence maintenance loop. It tolerates running while
// requests are in flight; each tick isolates its own failures so one bad
// sweep never halts the loop.
type Worker struct {
	presence *services.PresenceService
	rate     *ratecontrol.Controller
	db       *database.DB
	config   *Config
	logger   *logging.ChanneledLogger

	mu         sync.Mutex
	lastBackup time.Time
}

// NewWorker creates a worker with injected configuration.
func NewWorker(
	presence *services.PresenceService,
	rate *ratecontrol.Controller,
	db *database.DB,
	cfg *Config,
	logger *logging.ChanneledLogger,
) *Worker {
	return &Worker{
		presence:   presence,
		rate:       rate,
		db:         db,
		config:     cfg,
		logger:     logger,
		lastBackup: time.Now(),
	}
}

// Start begins the worker loop, returning when the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.TickInterval)
	defer ticker.Stop()

	w.logger.Background().Info("Background worker started",
		"tickInterval", w.config.TickInterval,
		"backupInterval", w.config.BackupInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Background().Info("Background worker stopping...")
			return
		case <-ticker.C:
			w.performTick()
		}
	}
}

// performTick runs one maintenance pass. Panics are contained here so the
// ticker loop survives any single failure.
func (w *Worker) performTick() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Background().Error("Background tick panicked", "panic", r)
		}
	}()

	if _, err := w.presence.ReapIdle(); err != nil {
		w.logger.Background().Error("Idle reap failed", "error", err.Error())
	}

	if w.rate.MaybeRecompute(time.Now()) {
		stats := w.rate.Stats()
		w.logger.Background().Debug("Tick rate recomputed",
			"attritionRate", stats.AttritionRate, "tickRate", stats.TickRate)
	}

	w.maybeBackup()
}

func (w *Worker) maybeBackup() {
	if w.config.BackupInterval <= 0 {
		return
	}

	w.mu.Lock()
	due := time.Since(w.lastBackup) >= w.config.BackupInterval
	w.mu.Unlock()

	if !due {
		return
	}
	if _, err := w.BackupNow(); err != nil {
		w.logger.Background().Error("Timed backup failed", "error", err.Error())
	}
}

// BackupNow writes a database backup immediately and resets the timer. Also
// used by the admin surface.
func (w *Worker) BackupNow() (string, error) {
	start := time.Now()

	path, err := w.db.Backup(w.config.BackupDir)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.lastBackup = time.Now()
	w.mu.Unlock()

	w.logger.Background().Info("Database backed up",
		"path", path, "duration", time.Since(start))
	return path, nil
}
