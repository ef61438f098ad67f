package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.General.MaxParallel != 3 {
		t.Errorf("max_parallel: got %d", cfg.General.MaxParallel)
	}
	if cfg.General.Timeout != 300 {
		t.Errorf("timeout: got %d", cfg.General.Timeout)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver: got %q", cfg.Database.Driver)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.General.MaxParallel != 3 || cfg.Reporting.Format != "markdown" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strix.toml")
	data := `
[general]
max_parallel = 5
stealth = true

[scope]
include = ["example.com", "*.example.org"]
exclude = ["admin.example.com"]

[database]
driver = "postgres"
postgres_url = "postgres://localhost/strix"

[tools.nmap]
enabled = true
timeout = 900
custom_args = ["-p-"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.General.MaxParallel != 5 {
		t.Errorf("max_parallel: got %d", cfg.General.MaxParallel)
	}
	if !cfg.General.Stealth {
		t.Error("stealth: expected true")
	}
	if len(cfg.Scope.Include) != 2 || cfg.Scope.Include[1] != "*.example.org" {
		t.Errorf("scope include: got %v", cfg.Scope.Include)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver: got %q", cfg.Database.Driver)
	}
	nmap, ok := cfg.Tools["nmap"]
	if !ok {
		t.Fatal("tools.nmap missing")
	}
	if nmap.Timeout != 900 || len(nmap.CustomArgs) != 1 {
		t.Errorf("tools.nmap: got %+v", nmap)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STRIX_MAX_PARALLEL", "8")
	t.Setenv("STRIX_STEALTH", "1")
	t.Setenv("STRIX_DB_PATH", "/var/lib/strix.db")

	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.General.MaxParallel != 8 {
		t.Errorf("max_parallel: got %d", cfg.General.MaxParallel)
	}
	if !cfg.General.Stealth {
		t.Error("stealth: expected true")
	}
	if cfg.Database.Path != "/var/lib/strix.db" {
		t.Errorf("db path: got %q", cfg.Database.Path)
	}
}

func TestPostgresWithoutURLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strix.toml")
	if err := os.WriteFile(path, []byte("[database]\ndriver = \"postgres\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load(path)
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite fallback, got %q", cfg.Database.Driver)
	}
}
