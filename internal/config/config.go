package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"portal/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Backend    BackendConfig    `yaml:"backend"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Calendar   CalendarConfig   `yaml:"calendar"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port              int             `yaml:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration   `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration   `yaml:"write_timeout"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	// CookieSecure marks the flash session cookie as Secure.
	CookieSecure bool `yaml:"cookie_secure"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" validate:"min=0"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	APIKey         string        `yaml:"api_key"`
	APIExtra       string        `yaml:"api_extra"`
	Timeout        time.Duration `yaml:"timeout"`
	HealthPath     string        `yaml:"health_path"`
	MaxOptionPages int           `yaml:"max_option_pages" validate:"min=1"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" validate:"min=1"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	FlashTTL time.Duration `yaml:"flash_ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output   string `yaml:"output" validate:"omitempty,oneof=stdout stderr file"`
	FilePath string `yaml:"file_path" validate:"required_if=Output file"`
}

type CalendarConfig struct {
	DayStart    string `yaml:"day_start" validate:"datetime=15:04"`
	DayEnd      string `yaml:"day_end" validate:"datetime=15:04"`
	SlotMinutes int    `yaml:"slot_minutes" validate:"min=5,max=240"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves the calendar timezone, falling back to local time.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a malformed one is not
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	if c.Calendar.DayEnd <= c.Calendar.DayStart {
		return errors.New("calendar.day_end must be after calendar.day_start")
	}

	if c.Calendar.Timezone != "" {
		if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
			return fmt.Errorf("calendar.timezone: %w", err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "portal"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 5
	}

	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = "/up"
	}
	if c.Backend.MaxOptionPages == 0 {
		c.Backend.MaxOptionPages = models.DefaultMaxOptionPages
	}
	if c.Backend.Breaker.MaxRequests == 0 {
		c.Backend.Breaker.MaxRequests = 3
	}
	if c.Backend.Breaker.Interval == 0 {
		c.Backend.Breaker.Interval = 10 * time.Second
	}
	if c.Backend.Breaker.Timeout == 0 {
		c.Backend.Breaker.Timeout = 30 * time.Second
	}
	if c.Backend.Breaker.ConsecutiveFailures == 0 {
		c.Backend.Breaker.ConsecutiveFailures = 3
	}

	if c.Redis.FlashTTL == 0 {
		c.Redis.FlashTTL = models.FlashTTL * time.Second
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Calendar.DayStart == "" {
		c.Calendar.DayStart = "07:00"
	}
	if c.Calendar.DayEnd == "" {
		c.Calendar.DayEnd = "21:00"
	}
	if c.Calendar.SlotMinutes == 0 {
		c.Calendar.SlotMinutes = 30
	}
}
