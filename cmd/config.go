package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/recruiter/internal/calendar"
	"github.com/spigell/recruiter/internal/googleauth"
	"github.com/spigell/recruiter/internal/scheduling"
)

type Config struct {
	DataDir  string         `mapstructure:"data-dir"`
	Dirs     DirsConfig     `mapstructure:"dirs"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	AI       AIConfig       `mapstructure:"ai"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// DirsConfig holds stage directories. Relative paths are resolved against data-dir.
type DirsConfig struct {
	Resumes    string `mapstructure:"resumes"`
	Text       string `mapstructure:"text"`
	Parsed     string `mapstructure:"parsed"`
	Enriched   string `mapstructure:"enriched"`
	Interviews string `mapstructure:"interviews"`
}

type StorageConfig struct {
	// Backend is one of file, sqlite, redis.
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite-path"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	PasswordFile string        `mapstructure:"password-file"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	LockTTL      time.Duration `mapstructure:"lock-ttl"`
}

type GmailConfig struct {
	googleauth.Config `mapstructure:",squash"`
	Query             string   `mapstructure:"query"`
	Keywords          []string `mapstructure:"keywords"`
}

type ExtractConfig struct {
	Workers int `mapstructure:"workers"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CalendarConfig struct {
	googleauth.Config `mapstructure:",squash"`
	CalendarID        string                 `mapstructure:"calendar-id"`
	SendUpdates       string                 `mapstructure:"send-updates"`
	RequestTimeout    time.Duration          `mapstructure:"request-timeout"`
	Breaker           calendar.BreakerConfig `mapstructure:"breaker"`
}

type ScheduleConfig struct {
	DurationMinutes int  `mapstructure:"duration"`
	BufferMinutes   int  `mapstructure:"buffer"`
	OpenHour        int  `mapstructure:"open-hour"`
	CloseHour       int  `mapstructure:"close-hour"`
	SkipWeekends    bool `mapstructure:"skip-weekends"`
	// StartDate is YYYY-MM-DD; empty means tomorrow.
	StartDate string `mapstructure:"start-date"`
}

func setDefaults() {
	viper.SetDefault("data-dir", ".")

	viper.SetDefault("dirs.resumes", "resumes")
	viper.SetDefault("dirs.text", "parsed_text")
	viper.SetDefault("dirs.parsed", "parsed_json")
	viper.SetDefault("dirs.enriched", "enriched_json")
	viper.SetDefault("dirs.interviews", "scheduled_interviews")

	viper.SetDefault("storage.backend", "file")

	viper.SetDefault("redis.prefix", "recruiter")
	viper.SetDefault("redis.lock-ttl", "1m")

	viper.SetDefault("gmail.credentials-file", "credentials.json")
	viper.SetDefault("gmail.token-file", "gmail_token.json")

	viper.SetDefault("ai.provider", "gemini")

	viper.SetDefault("calendar.credentials-file", "credentials.json")
	viper.SetDefault("calendar.token-file", "calendar_token.json")
	viper.SetDefault("calendar.calendar-id", "primary")
	viper.SetDefault("calendar.send-updates", "all")

	defaults := scheduling.DefaultParams()
	viper.SetDefault("schedule.duration", defaults.DurationMinutes)
	viper.SetDefault("schedule.buffer", defaults.BufferMinutes)
	viper.SetDefault("schedule.open-hour", defaults.OpenHour)
	viper.SetDefault("schedule.close-hour", defaults.CloseHour)
	viper.SetDefault("schedule.skip-weekends", defaults.SkipWeekends)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// path resolves a configured path against the data directory.
func (c *Config) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func (c *Config) ResumesDir() string    { return c.path(c.Dirs.Resumes) }
func (c *Config) TextDir() string       { return c.path(c.Dirs.Text) }
func (c *Config) ParsedDir() string     { return c.path(c.Dirs.Parsed) }
func (c *Config) EnrichedDir() string   { return c.path(c.Dirs.Enriched) }
func (c *Config) InterviewsDir() string { return c.path(c.Dirs.Interviews) }

// Params converts the schedule section into scheduling parameters.
func (s ScheduleConfig) Params() (scheduling.Params, error) {
	params := scheduling.Params{
		DurationMinutes: s.DurationMinutes,
		BufferMinutes:   s.BufferMinutes,
		OpenHour:        s.OpenHour,
		CloseHour:       s.CloseHour,
		SkipWeekends:    s.SkipWeekends,
	}

	if start := strings.TrimSpace(s.StartDate); start != "" {
		date, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return params, fmt.Errorf("parsing schedule.start-date: %w", err)
		}
		params.StartDate = &date
	}

	return params, params.Validate()
}
