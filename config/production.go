// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the service
type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Reminder ReminderConfig `json:"reminder"`
	Sheets   SheetsConfig   `json:"sheets"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Cache    CacheConfig    `json:"cache"`
}

type DatabaseConfig struct {
	Host            string        `json:"host" validate:"required"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	Name            string        `json:"name" validate:"required"`
	User            string        `json:"user" validate:"required"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `json:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type TelegramConfig struct {
	Token string `json:"-" validate:"required"`
	// AdminID may edit the reminder template from the dashboard
	AdminID int64 `json:"admin_id"`
	// PollTimeout is the long-poll timeout in seconds
	PollTimeout int64 `json:"poll_timeout" validate:"min=1"`
	// PacingDelay separates the two messages of an answer acknowledgement
	PacingDelay time.Duration `json:"pacing_delay"`
	// ManagerContact is the deep link offered by the contact button
	ManagerContact string `json:"manager_contact" validate:"omitempty,url"`
	DropPending    bool   `json:"drop_pending"`
}

type ReminderConfig struct {
	// Delay between funnel entry and the nudge
	Delay time.Duration `json:"delay" validate:"min=1s"`
}

type SheetsConfig struct {
	Enabled         bool          `json:"enabled"`
	SpreadsheetID   string        `json:"spreadsheet_id"`
	CredentialsFile string        `json:"credentials_file"`
	Timeout         time.Duration `json:"timeout"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

type LoggingConfig struct {
	Level      string `json:"level" validate:"oneof=debug info warn error"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	// Enabled switches the session store from in-memory to Redis
	Enabled    bool          `json:"enabled"`
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	Password   string        `json:"-"`
	DB         int           `json:"db"`
	KeyPrefix  string        `json:"key_prefix"`
	SessionTTL time.Duration `json:"session_ttl"`
}

// Load reads the configuration from the environment, with an optional .env
// file for local development.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "leadfunnel"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Telegram: TelegramConfig{
			Token:          getEnvString("TELEGRAM_API_TOKEN", ""),
			AdminID:        getEnvInt64("TELEGRAM_ADMIN_ID", 0),
			PollTimeout:    int64(getEnvInt("TELEGRAM_POLL_TIMEOUT", 9)),
			PacingDelay:    getEnvDuration("TELEGRAM_PACING_DELAY", 600*time.Millisecond),
			ManagerContact: getEnvString("TELEGRAM_MANAGER_CONTACT", "https://t.me/hr_volodymyr?text=%2B"),
			DropPending:    getEnvBool("TELEGRAM_DROP_PENDING", true),
		},
		Reminder: ReminderConfig{
			Delay: getEnvDuration("REMINDER_DELAY", 10*time.Minute),
		},
		Sheets: SheetsConfig{
			Enabled:         getEnvBool("SHEETS_ENABLED", false),
			SpreadsheetID:   getEnvString("SHEETS_SPREADSHEET_ID", ""),
			CredentialsFile: getEnvString("SHEETS_CREDENTIALS_FILE", ""),
			Timeout:         getEnvDuration("SHEETS_TIMEOUT", 5*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			File:       getEnvString("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", false),
			Host:       getEnvString("CACHE_HOST", "localhost"),
			Port:       getEnvInt("CACHE_PORT", 6379),
			Password:   getEnvString("CACHE_PASSWORD", ""),
			DB:         getEnvInt("CACHE_DB", 0),
			KeyPrefix:  getEnvString("CACHE_KEY_PREFIX", "leadfunnel:"),
			SessionTTL: getEnvDuration("CACHE_SESSION_TTL", 30*time.Minute),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration, including the cross-field rules
// the struct tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Sheets.Enabled && (cfg.Sheets.SpreadsheetID == "" || cfg.Sheets.CredentialsFile == "") {
		// Not fatal: the mirror degrades to a logged no-op, matching the
		// runtime behavior of the sheets logger.
		fmt.Fprintln(os.Stderr, "warning: sheets mirror enabled without SHEETS_SPREADSHEET_ID or SHEETS_CREDENTIALS_FILE")
	}
	return nil
}

// DSN renders the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Addr renders the Redis address.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
			(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
			value = value[1 : len(value)-1]
		}
		// Real environment variables win over the .env file
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
