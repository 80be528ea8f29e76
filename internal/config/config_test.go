package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pricewatch/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "pricewatch" {
		t.Fatalf("unexpected app name %q", cfg.App.Name)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Dir != ".pricewatch" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Analysis.Window != 12 || cfg.Analysis.ZThreshold != 2 {
		t.Fatalf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if cfg.Alerts.Key != "userAlerts" || cfg.Alerts.DateFormat != "1/2/2006" {
		t.Fatalf("unexpected alerts defaults %+v", cfg.Alerts)
	}
	if cfg.Watch.Interval != time.Hour || cfg.API.Timeout != 10*time.Second {
		t.Fatalf("durations not decoded: watch=%s api=%s", cfg.Watch.Interval, cfg.API.Timeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := strings.Join([]string{
		"api:",
		"  base_url: http://prices.internal/api",
		"storage:",
		"  driver: redis",
		"  redis:",
		"    addr: redis:6379",
		"analysis:",
		"  window: 6",
		"watch:",
		"  interval: 15m",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRICEWATCH_ANALYSIS_Z_THRESHOLD", "3.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://prices.internal/api" || cfg.Storage.Redis.Addr != "redis:6379" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Analysis.Window != 6 || cfg.Analysis.ZThreshold != 3.5 {
		t.Fatalf("unexpected analysis %+v", cfg.Analysis)
	}
	if cfg.Watch.Interval != 15*time.Minute {
		t.Fatalf("unexpected interval %s", cfg.Watch.Interval)
	}
}

func storageFile() storage.Config {
	return storage.Config{Driver: storage.DriverFile, Dir: ".pricewatch"}
}

func validConfig() Config {
	return Config{
		API:      APIConfig{Timeout: time.Second},
		Storage:  storageFile(),
		Alerts:   AlertsConfig{Key: "userAlerts"},
		Analysis: AnalysisConfig{Window: 12, ZThreshold: 2},
		Watch:    WatchConfig{Interval: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"window too small":    func(c *Config) { c.Analysis.Window = 2 },
		"window too large":    func(c *Config) { c.Analysis.Window = 25 },
		"z too small":         func(c *Config) { c.Analysis.ZThreshold = 0.5 },
		"unknown driver":      func(c *Config) { c.Storage.Driver = "sqlite" },
		"postgres no dsn":     func(c *Config) { c.Storage.Driver = "postgres" },
		"telegram no token":   func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"empty alerts key":    func(c *Config) { c.Alerts.Key = " " },
		"zero watch interval": func(c *Config) { c.Watch.Interval = 0 },
	}

	base := validConfig()
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveExportDir(t *testing.T) {
	cfg := validConfig()
	cfg.Export.Dir = "exports"
	if got := cfg.ResolveExportDir(""); got != "exports" {
		t.Fatalf("expected config dir, got %q", got)
	}
	if got := cfg.ResolveExportDir("/tmp/out"); got != "/tmp/out" {
		t.Fatalf("expected override, got %q", got)
	}
}
