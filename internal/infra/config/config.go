package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"originality_sync/internal/domain/remote"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string `validate:"required"`
	LogLevel    string
	Environment string
	HTTPAddr    string `validate:"required"`

	// Checking service. Missing values do not fail Load; jobs refuse to run instead.
	AntiplagiatEndpoint string `validate:"omitempty,url"`
	AntiplagiatLogin    string
	AntiplagiatPassword string
	AntiplagiatCompany  string
	RemoteTimeout       time.Duration `validate:"gt=0"`
	RemoteRateLimit     float64       `validate:"gt=0"` // requests per second

	UploadBatchSize          int `validate:"gte=1"`
	CheckBatchSize           int `validate:"gte=1"`
	MinWordCount             int `validate:"gte=0"`
	ActionLogRetentionMonths int `validate:"gte=0,lte=1200"` // 0 keeps the log forever
	FileStorageRoot          string
	RefreshLeaseTTL          time.Duration `validate:"gt=0"`
	JobTimeout               time.Duration `validate:"gt=0"`
	CronSpecUploadAndCheck   string        `validate:"required"`
	CronSpecControlCheck     string        `validate:"required"`
	CronSpecClearActionLog   string        `validate:"required"`

	TelegramToken   string // Bot is disabled when empty
	AdminTelegramID int64
}

// Credentials returns the checking service credentials.
func (c *AppConfig) Credentials() remote.Credentials {
	return remote.Credentials{
		Endpoint: c.AntiplagiatEndpoint,
		Login:    c.AntiplagiatLogin,
		Password: c.AntiplagiatPassword,
		Company:  c.AntiplagiatCompany,
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.AntiplagiatEndpoint = strings.TrimRight(os.Getenv("ANTIPLAGIAT_ENDPOINT"), "/")
	cfg.AntiplagiatLogin = os.Getenv("ANTIPLAGIAT_LOGIN")
	cfg.AntiplagiatPassword = os.Getenv("ANTIPLAGIAT_PASSWORD")
	cfg.AntiplagiatCompany = os.Getenv("ANTIPLAGIAT_COMPANY")

	if cfg.RemoteTimeout, err = getDuration("REMOTE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RemoteRateLimit, err = getFloat("REMOTE_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.UploadBatchSize, err = getInt("UPLOAD_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.CheckBatchSize, err = getInt("CHECK_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.MinWordCount, err = getInt("MIN_WORD_COUNT", 50); err != nil {
		return nil, err
	}
	if cfg.ActionLogRetentionMonths, err = getInt("ACTION_LOG_RETENTION_MONTHS", 6); err != nil {
		return nil, err
	}
	cfg.FileStorageRoot = getEnv("FILE_STORAGE_ROOT", "./data/files")
	if cfg.RefreshLeaseTTL, err = getDuration("REFRESH_LEASE_TTL", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = getDuration("JOB_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.CronSpecUploadAndCheck = getEnv("CRON_SPEC_UPLOAD_AND_CHECK", "*/5 * * * *")   // Default: every 5 minutes
	cfg.CronSpecControlCheck = getEnv("CRON_SPEC_CONTROL_CHECK_STATUS", "*/2 * * * *") // Default: every 2 minutes
	cfg.CronSpecClearActionLog = getEnv("CRON_SPEC_CLEAR_ACTION_LOG", "30 3 * * *")    // Default: 03:30 daily

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
