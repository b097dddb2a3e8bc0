package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, databaseDriverEnv, databaseDSNEnv, catalogBaseURLEnv,
		logLevelEnv, telegramTokenEnv, telegramChatIDEnv, departmentsEnv, "CATALOG_MAX_RETRIES",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load("")
	if cfg.Database.Driver != "sqlite3" || cfg.Database.DSN != "data/classes.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Catalog.BaseURL != defaultCatalogURL || cfg.Catalog.MaxCourseNumber != 5000 {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if !cfg.Catalog.Robots() {
		t.Fatal("robots.txt must be respected by default")
	}
	if !reflect.DeepEqual(cfg.Departments, []string{"CE"}) {
		t.Fatalf("unexpected departments: %v", cfg.Departments)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
	if cfg.Notifications.Telegram.Enabled() {
		t.Fatal("telegram must be disabled without credentials")
	}
}

func TestLoadMergesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
logging:
  level: warn
  format: json
database:
  driver: postgres
  dsn: postgres://localhost/courses?sslmode=disable
catalog:
  layout: courseleaf-legacy
  timeout: 5s
  maxRetries: 1
  respectRobots: false
  maxCourseNumber: 6000
resolver:
  followSameDepartment: true
scheduler:
  cronExpression: "30 2 * * 1"
  timezone: America/Chicago
departments: [cse, " math ", CSE]
`)

	cfg := Load(path)
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Catalog.Layout != "courseleaf-legacy" || cfg.Catalog.Timeout != 5*time.Second || cfg.Catalog.MaxRetries != 1 {
		t.Fatalf("unexpected catalog: %+v", cfg.Catalog)
	}
	if cfg.Catalog.Robots() {
		t.Fatal("respectRobots: false was ignored")
	}
	if cfg.Catalog.UserAgent != defaultUserAgent {
		t.Fatalf("unset field lost its default: %q", cfg.Catalog.UserAgent)
	}
	if cfg.Catalog.MaxCourseNumber != 6000 || !cfg.Resolver.FollowSameDepartment {
		t.Fatalf("unexpected catalog/resolver: %+v %+v", cfg.Catalog, cfg.Resolver)
	}
	if cfg.Scheduler.Location().String() != "America/Chicago" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
	if !reflect.DeepEqual(cfg.Departments, []string{"CSE", "MATH"}) {
		t.Fatalf("departments not normalized: %v", cfg.Departments)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "database:\n  dsn: from-file.db\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "from-env.db")
	t.Setenv(telegramTokenEnv, "token")
	t.Setenv(telegramChatIDEnv, "chat")
	t.Setenv(departmentsEnv, "ie,me")
	t.Setenv("CATALOG_MAX_RETRIES", "7")

	cfg := Load("")
	if cfg.Database.DSN != "from-env.db" {
		t.Fatalf("env must win over file, got %s", cfg.Database.DSN)
	}
	if !cfg.Notifications.Telegram.Enabled() {
		t.Fatal("telegram should be enabled from env")
	}
	if !reflect.DeepEqual(cfg.Departments, []string{"IE", "ME"}) {
		t.Fatalf("unexpected departments: %v", cfg.Departments)
	}
	if cfg.Catalog.MaxRetries != 7 {
		t.Fatalf("unexpected retries: %d", cfg.Catalog.MaxRetries)
	}
}

func TestLoadBrokenFileFallsBack(t *testing.T) {
	clearEnv(t)

	cfg := Load(writeConfig(t, "database: [unterminated"))
	if cfg.Database.DSN != "data/classes.db" {
		t.Fatalf("expected defaults after parse failure, got %+v", cfg.Database)
	}

	cfg = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Database.Driver != "sqlite3" {
		t.Fatalf("expected defaults for missing file, got %+v", cfg.Database)
	}
}

func TestLoadUnknownTimezone(t *testing.T) {
	clearEnv(t)

	cfg := Load(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}
