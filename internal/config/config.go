package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "REQUISITE_GRAPH_CONFIG"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	catalogBaseURLEnv  = "CATALOG_BASE_URL"
	logLevelEnv        = "LOG_LEVEL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	departmentsEnv     = "DEPARTMENTS"
	defaultCatalogURL  = "https://catalog.uta.edu/coursedescriptions/{dept}/"
	defaultUserAgent   = "RequisiteGraph/1.0"
	defaultMaxCourseNo = 5000
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Catalog       CatalogConfig      `yaml:"catalog"`
	Resolver      ResolverConfig     `yaml:"resolver"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Departments   []string           `yaml:"departments"`
}

// LoggingConfig selects slog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the course store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CatalogConfig controls how department catalog pages are fetched and segmented.
type CatalogConfig struct {
	// BaseURL is a template; "{dept}" is replaced with the lowercased department code.
	BaseURL         string        `yaml:"baseUrl"`
	Layout          string        `yaml:"layout"`
	UserAgent       string        `yaml:"userAgent"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	RetryBackoff    time.Duration `yaml:"retryBackoff"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	RequestsPerSec  float64       `yaml:"requestsPerSecond"`
	Burst           int           `yaml:"burst"`
	RespectRobots   *bool         `yaml:"respectRobots"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	MaxCourseNumber int           `yaml:"maxCourseNumber"`
}

// Robots reports whether robots.txt should be honoured (default true).
func (c CatalogConfig) Robots() bool {
	return c.RespectRobots == nil || *c.RespectRobots
}

// ResolverConfig tunes graph resolution.
type ResolverConfig struct {
	FollowSameDepartment bool `yaml:"followSameDepartment"`
}

// SchedulerConfig defines when repopulation should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration from path (or the env var when path is empty)
// and applies environment overrides. A missing or broken file falls back to defaults.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.Departments = normalizeDepartments(cfg.Departments)

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	envOverride(&c.Database.Driver, databaseDriverEnv)
	envOverride(&c.Database.DSN, databaseDSNEnv)
	envOverride(&c.Catalog.BaseURL, catalogBaseURLEnv)
	envOverride(&c.Logging.Level, logLevelEnv)
	envOverride(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	envOverride(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	if v := os.Getenv(departmentsEnv); v != "" {
		c.Departments = strings.Split(v, ",")
	}
	if v := os.Getenv("CATALOG_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Catalog.MaxRetries = n
		} else {
			log.Printf("config: invalid CATALOG_MAX_RETRIES %q: %v", v, err)
		}
	}
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	base.Catalog = mergeCatalog(base.Catalog, override.Catalog)

	if override.Resolver.FollowSameDepartment {
		base.Resolver.FollowSameDepartment = true
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Departments) > 0 {
		base.Departments = override.Departments
	}

	return base
}

func mergeCatalog(base, override CatalogConfig) CatalogConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Layout != "" {
		base.Layout = override.Layout
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.MaxRetries > 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.RetryBackoff > 0 {
		base.RetryBackoff = override.RetryBackoff
	}
	if override.MaxBodyBytes > 0 {
		base.MaxBodyBytes = override.MaxBodyBytes
	}
	if override.RequestsPerSec > 0 {
		base.RequestsPerSec = override.RequestsPerSec
	}
	if override.Burst > 0 {
		base.Burst = override.Burst
	}
	if override.RespectRobots != nil {
		base.RespectRobots = override.RespectRobots
	}
	if override.CacheTTL != 0 {
		base.CacheTTL = override.CacheTTL
	}
	if override.MaxCourseNumber > 0 {
		base.MaxCourseNumber = override.MaxCourseNumber
	}
	return base
}

func normalizeDepartments(depts []string) []string {
	out := make([]string, 0, len(depts))
	seen := map[string]struct{}{}
	for _, d := range depts {
		d = strings.ToUpper(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/classes.db"},
		Catalog: CatalogConfig{
			BaseURL:         defaultCatalogURL,
			Layout:          "courseleaf",
			UserAgent:       defaultUserAgent,
			Timeout:         20 * time.Second,
			MaxRetries:      3,
			RetryBackoff:    time.Second,
			MaxBodyBytes:    8 << 20,
			RequestsPerSec:  1,
			Burst:           2,
			CacheTTL:        30 * time.Minute,
			MaxCourseNumber: defaultMaxCourseNo,
		},
		Scheduler:   SchedulerConfig{CronExpression: "0 3 * * 0", Timezone: defaultTimezone, location: tz},
		Departments: []string{"CE"},
	}
}
