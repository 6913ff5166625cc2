package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := defaults()
	if cfg.Server.Port != 8080 {
		t.Fatalf("Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.ResultsRetention != 1000 {
		t.Fatalf("ResultsRetention = %d", cfg.Storage.ResultsRetention)
	}
	if cfg.Scheduler.MaxConcurrentChecks != 32 {
		t.Fatalf("MaxConcurrentChecks = %d", cfg.Scheduler.MaxConcurrentChecks)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9000
database:
  url: postgres://localhost/uptimer
storage:
  results_retention: 50
scheduler:
  max_concurrent_checks: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Database.URL != "postgres://localhost/uptimer" {
		t.Fatalf("database url = %q", cfg.Database.URL)
	}
	if cfg.Storage.ResultsRetention != 50 {
		t.Fatalf("retention = %d", cfg.Storage.ResultsRetention)
	}
	if cfg.Scheduler.MaxConcurrentChecks != 8 {
		t.Fatalf("max checks = %d", cfg.Scheduler.MaxConcurrentChecks)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://db/override")
	t.Setenv("RESULTS_RETENTION", "25")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := defaults()
	cfg.applyEnv()

	if cfg.Server.Port != 3000 {
		t.Fatalf("Port = %d", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://db/override" {
		t.Fatalf("URL = %q", cfg.Database.URL)
	}
	if cfg.Storage.ResultsRetention != 25 {
		t.Fatalf("retention = %d", cfg.Storage.ResultsRetention)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadMissingFileError(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
