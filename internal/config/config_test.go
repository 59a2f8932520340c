package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want sqlite", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL != "task_tracker.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.ReportInterval != 5*time.Hour {
		t.Errorf("ReportInterval = %v", cfg.ReportInterval)
	}
	if want := []string{"Work", "Personal", "Health", "Learning", "Shopping"}; !reflect.DeepEqual(cfg.DefaultCategories, want) {
		t.Errorf("DefaultCategories = %v", cfg.DefaultCategories)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("REPORT_INTERVAL_HOURS", "0")
	t.Setenv("DEFAULT_CATEGORIES", " Inbox, Errands ,,Inbox")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("DatabaseDriver = %q", cfg.DatabaseDriver)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.ReportInterval != 0 {
		t.Errorf("ReportInterval = %v, want disabled", cfg.ReportInterval)
	}
	if want := []string{"Inbox", "Errands"}; !reflect.DeepEqual(cfg.DefaultCategories, want) {
		t.Errorf("DefaultCategories = %v, want %v", cfg.DefaultCategories, want)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "mysql")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("JWT_SECRET", "secret")

	path := filepath.Join(dir, "tracker.yaml")
	if err := os.WriteFile(path, []byte("HTTP_ADDR: \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Hour},
		{"-1", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseInterval(tt.raw); got != tt.want {
			t.Errorf("parseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLoadReportTime(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("REPORT_TIME", "08:30")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReportTime != "08:30" {
		t.Errorf("ReportTime = %q, want 08:30", cfg.ReportTime)
	}

	t.Setenv("REPORT_TIME", "25:00")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid REPORT_TIME")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("JWT_SECRET", "secret")

	dotenv := "HTTP_ADDR=:7000\nDB_LOG_LEVEL=info\nTOKEN_TTL=2h\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	path := filepath.Join(dir, "tracker.yaml")
	if err := os.WriteFile(path, []byte("HTTP_ADDR: \":9090\"\nDB_LOG_LEVEL: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DB_LOG_LEVEL", "silent")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h from .env", cfg.TokenTTL)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090 from the config file", cfg.HTTPAddr)
	}
	if cfg.DBLogLevel != "silent" {
		t.Errorf("DBLogLevel = %q, want silent from the environment", cfg.DBLogLevel)
	}
	if _, set := os.LookupEnv("TOKEN_TTL"); set {
		t.Error(".env values must not leak into the process environment")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
