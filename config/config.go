package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Environment   string
	LogLevel      string
	StorageDriver string // "postgres" or "memory"
	DBUrl         string
	// Applications preloaded into the memory store
	MemorySeedFile string
	JWTSecret      string
	FrontendURL    string
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Notification queue
	NotificationQueueKey string
	NotificationBuffer   int
	// Scheduling
	SchedulingTimeout    time.Duration
	SchedulingPolicyFile string
	// Reminder sweeper
	ReminderEnabled       bool
	ReminderSweepInterval time.Duration
	ReminderLockFile      string
	// Rate Limiting Configuration
	RateLimitWindowSeconds  int
	RateLimitWriteThreshold int
	// Loaded from SchedulingPolicyFile, or defaults
	Policy Policy
}

func LoadConfig() (*Config, error) {
	// Only effective locally; production injects real env vars
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("APP_ENV", "development"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		DBUrl:         getEnv("DATABASE_URL", ""),
		// Memory store seed (STORAGE_DRIVER=memory only)
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),
		JWTSecret:      getEnv("JWT_SECRET", getEnv("SUPABASE_JWT_SECRET", "")),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Notification queue
		NotificationQueueKey: getEnv("NOTIFICATION_QUEUE_KEY", "notifications:queue"),
		NotificationBuffer:   getEnvInt("NOTIFICATION_BUFFER", 1024),
		// Scheduling
		SchedulingTimeout:    getEnvDuration("SCHEDULING_TIMEOUT", 5*time.Second),
		SchedulingPolicyFile: getEnv("SCHEDULING_POLICY_FILE", ""),
		// Reminder sweeper
		ReminderEnabled:       getEnvBool("REMINDER_ENABLED", true),
		ReminderSweepInterval: getEnvDuration("REMINDER_SWEEP_INTERVAL", 5*time.Minute),
		ReminderLockFile:      getEnv("REMINDER_LOCK_FILE", ""),
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitWindowSeconds:  getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),  // 1 minute window
		RateLimitWriteThreshold: getEnvInt("RATE_LIMIT_WRITE_THRESHOLD", 30), // 30 booking writes per window
	}

	policy, err := LoadPolicy(cfg.SchedulingPolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if cfg.StorageDriver == "postgres" && cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is missing. All authenticated requests will be rejected.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Notifications will only be logged and rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "5m") and falls back when unset or invalid
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
