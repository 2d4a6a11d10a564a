package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robalyx/rollcall/internal/attendance"
)

var (
	// ErrInvalidConfig wraps every configuration failure and is fatal at startup.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrConfigVersionMissing is returned when rollcall.toml has no version field.
	ErrConfigVersionMissing = errors.New("config file is missing version field")
	// ErrConfigVersionMismatch is returned when rollcall.toml targets another config version.
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// CurrentVersion is the expected version of rollcall.toml.
const CurrentVersion = 1

// FileName is the optional configuration file looked up in the search paths.
const FileName = "rollcall.toml"

// envKeys maps the supported environment variables to config keys.
var envKeys = map[string]string{
	"DISCORD_TOKEN":        "discord.token",
	"REPORT_CHANNEL_ID":    "discord.report_channel_id",
	"TARGET_MEMBER_IDS":    "discord.target_member_ids",
	"ROLLCALL_TIMEZONE":    "schedule.timezone",
	"ROLLCALL_LOCALE":      "locale",
	"ROLLCALL_LOG_LEVEL":   "debug.log_level",
	"ROLLCALL_UPTRACE_DSN": "uptrace.dsn",
}

// defaults are applied before the config file and the environment.
var defaults = map[string]any{
	"locale":                  "ko",
	"schedule.timezone":       "Asia/Seoul",
	"schedule.window_start":   "18:00:00",
	"schedule.window_end":     "23:59:59",
	"schedule.rollover_hour":  6,
	"schedule.run_at":         "00:05",
	"debug.log_level":         "info",
	"debug.max_logs_to_keep":  10,
	"debug.max_log_lines":     10000,
	"loki.batch_max_size":     100,
	"loki.batch_max_wait_ms":  5000,
	"uptrace.service_name":    "rollcall",
	"uptrace.service_version": RepositoryVersion,
}

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file. Zero when no file was loaded.
	Version  int      `koanf:"version"`
	Locale   string   `koanf:"locale"   validate:"oneof=ko en"`
	Discord  Discord  `koanf:"discord"`
	Schedule Schedule `koanf:"schedule"`
	Debug    Debug    `koanf:"debug"`
	Loki     Loki     `koanf:"loki"`
	Uptrace  Uptrace  `koanf:"uptrace"`

	location  *time.Location
	schedule  attendance.Schedule
	runAt     attendance.TimeOfDay
	allowList attendance.AllowList
}

// Discord contains the bot credentials and the watched channel.
type Discord struct {
	// Bot token for authentication.
	Token string `koanf:"token" validate:"required"`
	// Channel where reports are posted.
	ReportChannelID uint64 `koanf:"report_channel_id" validate:"required"`
	// Comma-separated member IDs to check. Empty checks every eligible member.
	TargetMemberIDs string `koanf:"target_member_ids"`
}

// Schedule contains the daily window and trigger time.
type Schedule struct {
	// IANA timezone name.
	Timezone string `koanf:"timezone" validate:"required"`
	// Window start as HH:MM[:SS].
	WindowStart string `koanf:"window_start" validate:"required"`
	// Window end as HH:MM[:SS], inclusive.
	WindowEnd string `koanf:"window_end" validate:"required"`
	// Checks before this hour evaluate the previous day.
	RolloverHour int `koanf:"rollover_hour" validate:"gte=0,lte=23"`
	// Daily trigger time as HH:MM[:SS].
	RunAt string `koanf:"run_at" validate:"required"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep" validate:"gte=1"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines" validate:"gte=1"`
}

// Loki contains Grafana Loki logging configuration.
type Loki struct {
	// Enable Loki integration
	Enabled bool `koanf:"enabled"`
	// Loki server URL (without /loki/api/v1/push suffix)
	URL string `koanf:"url" validate:"required_if=Enabled true"`
	// Maximum number of log entries per batch
	BatchMaxSize int `koanf:"batch_max_size" validate:"gte=1"`
	// Maximum time to wait before sending a batch (in milliseconds)
	BatchMaxWaitMS int `koanf:"batch_max_wait_ms" validate:"gte=1"`
	// Labels added to all log streams
	Labels map[string]string `koanf:"labels"`
	// Basic authentication username (optional)
	Username string `koanf:"username"`
	// Basic authentication password (optional)
	Password string `koanf:"password"`
}

// Uptrace contains the tracing exporter configuration.
type Uptrace struct {
	// Tracing is disabled when empty.
	DSN            string `koanf:"dsn"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	return c.location
}

// AttendanceSchedule returns the daily window definition.
func (c *Config) AttendanceSchedule() attendance.Schedule {
	return c.schedule
}

// RunAt returns the daily trigger time.
func (c *Config) RunAt() attendance.TimeOfDay {
	return c.runAt
}

// AllowList returns the parsed target member IDs.
func (c *Config) AllowList() attendance.AllowList {
	return c.allowList
}

// LoadConfig loads the configuration from the default search paths and the environment.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Variables already set in the environment take precedence over .env
	_ = godotenv.Load()

	return Load([]string{
		".rollcall",
		homeDir + "/.rollcall/config",
		"/etc/rollcall/config",
		"/app/config",
		"config",
		".",
	})
}

// Load layers the defaults, the first rollcall.toml found in configPaths and
// the environment, then validates the result.
func Load(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/%s", path, FileName)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, configPath, err)
		}

		if err := checkConfigVersion(k.Int("version")); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		usedConfigPath = path

		break
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		mapped, ok := envKeys[key]
		if !ok || value == "" {
			return "", nil
		}

		return mapped, strings.TrimSpace(value)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := config.validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// validate checks the struct tags and derives the attendance settings.
func (c *Config) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	location, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q: %w", ErrInvalidConfig, c.Schedule.Timezone, err)
	}

	start, err := attendance.ParseTimeOfDay(c.Schedule.WindowStart)
	if err != nil {
		return fmt.Errorf("%w: window_start: %w", ErrInvalidConfig, err)
	}

	end, err := attendance.ParseTimeOfDay(c.Schedule.WindowEnd)
	if err != nil {
		return fmt.Errorf("%w: window_end: %w", ErrInvalidConfig, err)
	}

	runAt, err := attendance.ParseTimeOfDay(c.Schedule.RunAt)
	if err != nil {
		return fmt.Errorf("%w: run_at: %w", ErrInvalidConfig, err)
	}

	schedule := attendance.Schedule{
		Location:     location,
		Start:        start,
		End:          end,
		RolloverHour: c.Schedule.RolloverHour,
	}
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.location = location
	c.schedule = schedule
	c.runAt = runAt
	c.allowList = attendance.ParseAllowList(c.Discord.TargetMemberIDs)

	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, FileName)
	}

	if current != CurrentVersion {
		return fmt.Errorf(
			"%w: %s (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/rollcall/tree/%s/config/%s",
			ErrConfigVersionMismatch,
			FileName,
			current,
			CurrentVersion,
			RepositoryVersion,
			FileName,
		)
	}

	return nil
}
