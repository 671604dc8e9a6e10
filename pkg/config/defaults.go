// Package config provides centralized default values for the Tankmas server
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Configuration
	DBDriver  string
	DBPath    string
	BackupDir string

	// Room Configuration
	RoomsConfigPath string

	// Presence Configuration
	MaxIdleTime        time.Duration
	UserRequiredFields []string

	// Rate Controller Configuration
	BaseTickRate     int
	AttritionDivisor int

	// Background Worker Intervals
	TickInterval          time.Duration
	RateRecomputeInterval time.Duration
	BackupInterval        time.Duration

	// Admin Configuration
	AdminPassword string
	JWTSecret     string
	AdminTokenTTL time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("SERVER_PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Configuration
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "data/tankmas.db")
	BackupDir = getEnvString("BACKUP_DIR", "backups")

	// Room Configuration
	RoomsConfigPath = getEnvString("ROOMS_CONFIG_PATH", "config/rooms.json")

	// Presence Configuration
	MaxIdleTime = getEnvDuration("USER_MAX_IDLE_TIME", 60*time.Second)
	UserRequiredFields = []string{"x", "y", "costume", "sx"}

	// Rate Controller Configuration
	BaseTickRate = getEnvInt("BASE_TICK_RATE", 500)
	AttritionDivisor = getEnvInt("ATTRITION_DIVISOR", 5)

	// Background Worker Intervals
	TickInterval = getEnvDuration("BACKGROUND_TICK_INTERVAL", time.Second)
	RateRecomputeInterval = getEnvDuration("RATE_RECOMPUTE_INTERVAL", time.Second)
	BackupInterval = getEnvDuration("BACKUP_INTERVAL", 30*time.Minute)

	// Admin Configuration
	AdminPassword = getEnvString("ADMIN_PASSWORD", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour)
}
