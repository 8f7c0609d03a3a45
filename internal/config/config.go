package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Holiday source names
const (
	SourceTimor     = "timor"
	SourceHolidayCN = "holiday-cn"
	SourceFile      = "file"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultRefreshInterval = 24 * time.Hour
	defaultRetryAfter      = time.Hour
	defaultMaxSpanDays     = 1095
	defaultWorkers         = 4
)

// Config represents application configuration
type Config struct {
	Calendar CalendarConfig `mapstructure:"calendar"`
	Store    StoreConfig    `mapstructure:"store"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// CalendarConfig represents holiday source configuration
type CalendarConfig struct {
	Source          string `mapstructure:"source"`        // "timor", "holiday-cn" or "file"
	APIURL          string `mapstructure:"api_url"`       // template with {year}
	FallbackURL     string `mapstructure:"fallback_url"`  // holiday-cn template, optional
	FallbackFile    string `mapstructure:"fallback_file"` // local facts file, optional
	Timeout         string `mapstructure:"timeout"`
	RefreshInterval string `mapstructure:"refresh_interval"`
	RetryAfter      string `mapstructure:"retry_after"` // quiet period for years that failed or came back empty
}

// StoreConfig represents SQLite storage configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ScheduleConfig represents allocation settings
type ScheduleConfig struct {
	MaxSpanDays     int  `mapstructure:"max_span_days"`
	IncludeOvertime bool `mapstructure:"include_overtime"`
	Workers         int  `mapstructure:"workers"` // team fan-out limit
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar.source", SourceTimor)
	v.SetDefault("calendar.api_url", "https://timor.tech/api/holiday/year/{year}")
	v.SetDefault("calendar.fallback_url", "")
	v.SetDefault("calendar.fallback_file", "")
	v.SetDefault("calendar.timeout", defaultTimeout.String())
	v.SetDefault("calendar.refresh_interval", defaultRefreshInterval.String())
	v.SetDefault("calendar.retry_after", defaultRetryAfter.String())
	v.SetDefault("store.path", "workload.db")
	v.SetDefault("schedule.max_span_days", defaultMaxSpanDays)
	v.SetDefault("schedule.include_overtime", false)
	v.SetDefault("schedule.workers", defaultWorkers)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
}

// Load loads configuration from file and WP_* environment variables.
// A missing config file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.workload-planner")
		v.AddConfigPath("/etc/workload-planner")
	}

	// Read environment variables: calendar.source -> WP_CALENDAR_SOURCE
	v.SetEnvPrefix("WP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Calendar.Source {
	case SourceTimor:
		if c.Calendar.APIURL == "" {
			return fmt.Errorf("calendar.api_url is required for timor source")
		}
	case SourceHolidayCN:
	case SourceFile:
		if c.Calendar.FallbackFile == "" {
			return fmt.Errorf("calendar.fallback_file is required for file source")
		}
	default:
		return fmt.Errorf("calendar.source must be 'timor', 'holiday-cn' or 'file', got '%s'", c.Calendar.Source)
	}

	if err := positiveDuration("calendar.timeout", c.Calendar.Timeout); err != nil {
		return err
	}
	if err := positiveDuration("calendar.refresh_interval", c.Calendar.RefreshInterval); err != nil {
		return err
	}

	if err := positiveDuration("calendar.retry_after", c.Calendar.RetryAfter); err != nil {
		return err
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if c.Schedule.MaxSpanDays <= 0 {
		return fmt.Errorf("schedule.max_span_days must be positive")
	}
	if c.Schedule.Workers <= 0 {
		return fmt.Errorf("schedule.workers must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got '%s'", c.Log.Level)
	}

	return nil
}

func positiveDuration(key, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return nil
}

// GetTimeout returns the holiday source HTTP timeout
func (c *CalendarConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, defaultTimeout)
}

// GetRefreshInterval returns how often the holiday cache is re-synced
func (c *CalendarConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, defaultRefreshInterval)
}

// GetRetryAfter returns how long a failed or empty year is not re-fetched
func (c *CalendarConfig) GetRetryAfter() time.Duration {
	return parseDuration(c.RetryAfter, defaultRetryAfter)
}

// GetMaxSpanDays returns the simulation span limit
func (c *ScheduleConfig) GetMaxSpanDays() int {
	if c.MaxSpanDays <= 0 {
		return defaultMaxSpanDays
	}
	return c.MaxSpanDays
}

// GetWorkers returns the team fan-out limit
func (c *ScheduleConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return defaultWorkers
	}
	return c.Workers
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
