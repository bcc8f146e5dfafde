package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings. DatabaseURL selects postgres; otherwise the sqlite
	// file at DatabasePath is used.
	DatabasePath string
	DatabaseURL  string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Law-code cache settings
	CacheSize int
	CacheTTL  time.Duration

	// Judge settings
	JudgeBaseURL string
	JudgeAPIKey  string
	JudgeModel   string
	JudgeTimeout time.Duration

	// Storage settings
	UploadDir   string
	LawBookPath string

	// Case settings
	SummonsTTL time.Duration
	JuryMax    int

	// Notification fan-out. Empty RedisAddr disables publishing.
	RedisAddr    string
	RedisChannel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/gosomi.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		JudgeBaseURL: getEnv("JUDGE_BASE_URL", "https://api.openai.com/v1"),
		JudgeAPIKey:  getEnv("JUDGE_API_KEY", ""),
		JudgeModel:   getEnv("JUDGE_MODEL", "gpt-4o-mini"),
		UploadDir:    getEnv("UPLOAD_DIR", "./data/uploads"),
		LawBookPath:  getEnv("LAW_BOOK_PATH", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "gosomi:notifications"),
	}

	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	judgeTimeout, err := strconv.Atoi(getEnv("JUDGE_TIMEOUT", "45"))
	if err != nil {
		return nil, fmt.Errorf("invalid JUDGE_TIMEOUT: %w", err)
	}
	cfg.JudgeTimeout = time.Duration(judgeTimeout) * time.Second

	summonsTTL, err := strconv.Atoi(getEnv("SUMMONS_TTL", "72"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMONS_TTL: %w", err)
	}
	cfg.SummonsTTL = time.Duration(summonsTTL) * time.Hour

	cfg.JuryMax, err = strconv.Atoi(getEnv("JURY_MAX", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid JURY_MAX: %w", err)
	}
	if cfg.JuryMax < 1 {
		return nil, fmt.Errorf("invalid JURY_MAX: must be positive")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
