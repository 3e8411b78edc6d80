package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, scan export only)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data
	Yahoo YahooConfig
	Fetch FetchConfig

	// Scan inputs
	Scan ScanConfig

	// Notifications
	Telegram TelegramConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds Yahoo Finance endpoint configuration
type YahooConfig struct {
	ChartURL  string
	QuoteURL  string
	CrumbURL  string
	CookieURL string
	RateLimit float64 // requests per second, 0 disables
	Timeout   time.Duration
}

// FetchConfig controls batch fetching and evaluation fan-out
type FetchConfig struct {
	Period      string // history range, e.g. 1y
	Interval    string // bar interval, e.g. 1d
	BatchSize   int
	Workers     int
	EvalWorkers int
}

// ScanConfig holds scan inputs that do not belong to a strategy preset
type ScanConfig struct {
	UniverseFile string
	StrategyFile string
	Preset       string
	Cron         string
	Timezone     string
	TotalBudget  float64
	RiskPct      float64
}

// TelegramConfig holds Telegram bot credentials
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Yahoo: YahooConfig{
			ChartURL:  getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			QuoteURL:  getEnv("YAHOO_QUOTE_URL", "https://query1.finance.yahoo.com/v7/finance/quote"),
			CrumbURL:  getEnv("YAHOO_CRUMB_URL", "https://query1.finance.yahoo.com/v1/test/getcrumb"),
			CookieURL: getEnv("YAHOO_COOKIE_URL", "https://fc.yahoo.com"),
			RateLimit: getEnvAsFloat("YAHOO_RATE_LIMIT", 5),
			Timeout:   getEnvAsDuration("YAHOO_TIMEOUT", "15s"),
		},

		Fetch: FetchConfig{
			Period:      getEnv("HISTORY_PERIOD", "1y"),
			Interval:    getEnv("HISTORY_INTERVAL", "1d"),
			BatchSize:   getEnvAsInt("FETCH_BATCH_SIZE", 50),
			Workers:     getEnvAsInt("FETCH_WORKERS", 8),
			EvalWorkers: getEnvAsInt("EVAL_WORKERS", 8),
		},

		Scan: ScanConfig{
			UniverseFile: getEnv("UNIVERSE_FILE", ""),
			StrategyFile: getEnv("STRATEGY_FILE", ""),
			Preset:       getEnv("STRATEGY_PRESET", "default"),
			Cron:         getEnv("SCAN_CRON", "0 0 19 * * 1-5"),
			Timezone:     getEnv("SCAN_TIMEZONE", "Asia/Jakarta"),
			TotalBudget:  getEnvAsFloat("TOTAL_BUDGET", 10_000_000),
			RiskPct:      getEnvAsFloat("RISK_PER_TRADE_PCT", 2),
		},

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Fetch.BatchSize <= 0 {
		return fmt.Errorf("FETCH_BATCH_SIZE must be positive")
	}
	if c.Fetch.Workers <= 0 || c.Fetch.EvalWorkers <= 0 {
		return fmt.Errorf("FETCH_WORKERS and EVAL_WORKERS must be positive")
	}
	if c.Scan.TotalBudget <= 0 {
		return fmt.Errorf("TOTAL_BUDGET must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
