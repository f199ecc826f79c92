package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	RunnerLocal  = "local"
	RunnerRemote = "remote"
)

// Config is the service configuration, read from the environment
type Config struct {
	Port     string
	Provider string

	Runner            string
	RunnerURL         string
	EventKey          string
	SigningKey        string
	Workers           int
	QueueSize         int
	MaxPromptBytes    int
	JobTimeout        time.Duration
	PollInterval      time.Duration
	ChatAttempts      int
	InterviewAttempts int
	ReportAttempts    int
	RecentTurns       int

	Database DatabaseConfig

	RedisAddr       string
	RedisPassword   string
	HistoryCacheTTL time.Duration
	LockTTL         time.Duration

	JobRetention        time.Duration
	MaintenanceSchedule string
	RatingExportEnabled bool
	RatingExportDir     string
	RatingCacheTTL      time.Duration

	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// LoadConfig reads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Provider: getEnvOrDefault("AI_PROVIDER", "gemini"),

		Runner:            getEnvOrDefault("AGENT_RUNNER", RunnerLocal),
		RunnerURL:         os.Getenv("AGENT_RUNNER_URL"),
		EventKey:          os.Getenv("AGENT_EVENT_KEY"),
		SigningKey:        os.Getenv("AGENT_SIGNING_KEY"),
		Workers:           getEnvInt("AGENT_WORKERS", 4),
		QueueSize:         getEnvInt("AGENT_QUEUE_SIZE", 64),
		MaxPromptBytes:    getEnvInt("AGENT_MAX_PROMPT_BYTES", 64*1024),
		JobTimeout:        getEnvDuration("AGENT_JOB_TIMEOUT", 2*time.Minute),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 500*time.Millisecond),
		ChatAttempts:      getEnvInt("POLL_CHAT_ATTEMPTS", 60),
		InterviewAttempts: getEnvInt("POLL_INTERVIEW_ATTEMPTS", 120),
		ReportAttempts:    getEnvInt("POLL_REPORT_ATTEMPTS", 240),
		RecentTurns:       getEnvInt("INTERVIEW_RECENT_TURNS", 4),

		Database: DatabaseConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		HistoryCacheTTL: getEnvDuration("HISTORY_CACHE_TTL", 10*time.Minute),
		LockTTL:         getEnvDuration("HISTORY_LOCK_TTL", 3*time.Minute),

		JobRetention:        getEnvDuration("JOB_RETENTION", 24*time.Hour),
		MaintenanceSchedule: getEnvOrDefault("MAINTENANCE_SCHEDULE", "@every 1h"),
		RatingExportEnabled: getEnvOrDefault("RATING_EXPORT_ENABLED", "false") == "true",
		RatingExportDir:     getEnvOrDefault("RATING_EXPORT_DIR", "./exports"),
		RatingCacheTTL:      getEnvDuration("RATING_CACHE_TTL", 30*time.Minute),

		AllowedOrigins: []string{getEnvOrDefault("CORS_ORIGIN", "http://localhost:3000")},
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	// Gemini validation is handled by gemini.NewConfig()

	switch config.Runner {
	case RunnerLocal:
		if config.Workers <= 0 || config.QueueSize <= 0 {
			return errors.New("AGENT_WORKERS and AGENT_QUEUE_SIZE must be positive")
		}
	case RunnerRemote:
		if config.RunnerURL == "" || config.EventKey == "" {
			return errors.New("AGENT_RUNNER_URL and AGENT_EVENT_KEY are required for the remote runner")
		}
	default:
		return fmt.Errorf("unsupported AGENT_RUNNER %q: use local or remote", config.Runner)
	}

	if config.PollInterval < 0 {
		return errors.New("POLL_INTERVAL must not be negative")
	}
	if config.ChatAttempts <= 0 || config.InterviewAttempts <= 0 || config.ReportAttempts <= 0 {
		return errors.New("poll attempt ceilings must be positive")
	}
	if config.RecentTurns <= 0 {
		return errors.New("INTERVIEW_RECENT_TURNS must be positive")
	}
	if _, err := cron.ParseStandard(config.MaintenanceSchedule); err != nil {
		return fmt.Errorf("invalid MAINTENANCE_SCHEDULE: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// accepts Go durations ("500ms") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
