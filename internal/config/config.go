package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config конфигурация сервиса
// Значения вида ${VAR} разворачиваются из окружения, .env подхватывается
// автоматически, если присутствует
type Config struct {
	Service      ServiceConfig      `toml:"service"`
	Server       ServerConfig       `toml:"server"`
	Logs         LogsConfig         `toml:"logs"`
	Database     DatabaseConfig     `toml:"database"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Telegram     TelegramConfig     `toml:"telegram"`
	Anthropic    AnthropicConfig    `toml:"anthropic"`
	Availability AvailabilityConfig `toml:"availability"`
	Guard        GuardConfig        `toml:"guard"`
	Reminders    RemindersConfig    `toml:"reminders"`
	Calendar     CalendarConfig     `toml:"calendar"`
}

type ServiceConfig struct {
	OwnerName     string            `toml:"owner_name"`
	OwnerTimezone string            `toml:"owner_timezone"`
	BookingLinks  map[string]string `toml:"booking_links"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN собирает строку подключения для lib/pq
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type TelegramConfig struct {
	Enabled     bool   `toml:"enabled"`
	Token       string `toml:"token"`
	OwnerChatID int64  `toml:"owner_chat_id"`
}

type AnthropicConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout int    `toml:"timeout"` // seconds
}

type AvailabilityConfig struct {
	DurationMinutes int `toml:"duration_minutes"`
	BufferMinutes   int `toml:"buffer_minutes"`
	MinNoticeHours  int `toml:"min_notice_hours"`
	MaxDaysAhead    int `toml:"max_days_ahead"`
}

type GuardConfig struct {
	MaxSenders int `toml:"max_senders"`
}

type RemindersConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// CalendarConfig внешние календари: один book и сколько угодно watch
type CalendarConfig struct {
	// Provider "google" либо "static" (in-memory, для локальной разработки)
	Provider string                  `toml:"provider"`
	Book     CalendarAccountConfig   `toml:"book"`
	Watch    []CalendarAccountConfig `toml:"watch"`
}

type CalendarAccountConfig struct {
	CalendarID      string `toml:"calendar_id"`
	DisplayName     string `toml:"display_name"`
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
}

// Load читает конфигурацию из toml-файла
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if _, err := toml.Decode(os.ExpandEnv(string(raw)), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			OwnerName:     "the owner",
			OwnerTimezone: "UTC",
		},
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    30,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "schedulebot",
		},
		Anthropic: AnthropicConfig{
			Model:   "claude-sonnet-4-20250514",
			Timeout: 60,
		},
		Guard: GuardConfig{
			MaxSenders: 10000,
		},
		Reminders: RemindersConfig{
			IntervalMinutes: 15,
		},
		Calendar: CalendarConfig{
			Provider: "static",
		},
	}
}

func (c *Config) validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("config: anthropic.api_key is required")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("config: telegram.token is required when telegram is enabled")
	}
	if c.Calendar.Provider != "google" && c.Calendar.Provider != "static" {
		return fmt.Errorf("config: calendar.provider must be google or static, got %q", c.Calendar.Provider)
	}
	if c.Calendar.Provider == "google" && c.Calendar.Book.CalendarID == "" {
		return fmt.Errorf("config: calendar.book.calendar_id is required for the google provider")
	}
	return nil
}
