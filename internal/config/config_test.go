package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
project: proj-42
log_mode: prod

remote:
  base_url: http://api.example.test:9000/
  timeout: 5s

cache:
  backend: redis
  redis_addr: 10.0.0.5:6380
  ttl: 12h
  refresh_schedule: "*/30 * * * *"
  catalogs: [materials, frames]

database:
  driver: mysql
  host: db.internal
  port: 3307
  name: stratum_prod

server:
  port: 9000

seed: catalog.yaml

notify:
  slack:
    bot_token: xoxb-1
    channel_id: C123

defaults:
  segment_width_mm: 25
`

const minimalYAML = `
project: proj-1
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Project != "proj-42" {
		t.Errorf("Project = %q, want %q", cfg.Project, "proj-42")
	}
	if cfg.Remote.BaseURL != "http://api.example.test:9000" {
		t.Errorf("Remote.BaseURL = %q, want trailing slash trimmed", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("Remote.Timeout = %v, want 5s", cfg.Remote.Timeout)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "10.0.0.5:6380" {
		t.Errorf("Cache = %+v, want redis at 10.0.0.5:6380", cfg.Cache)
	}
	if cfg.Cache.TTL != 12*time.Hour {
		t.Errorf("Cache.TTL = %v, want 12h", cfg.Cache.TTL)
	}
	if len(cfg.Cache.Catalogs) != 2 {
		t.Errorf("Cache.Catalogs = %v, want 2 entries", cfg.Cache.Catalogs)
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.Port != 3307 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if !cfg.Notify.Slack.Enabled() {
		t.Error("Notify.Slack should be enabled")
	}
	if cfg.Notify.Discord.Enabled() {
		t.Error("Notify.Discord should be disabled")
	}
	if cfg.Defaults.SegmentWidthMM != 25 {
		t.Errorf("Defaults.SegmentWidthMM = %v, want 25", cfg.Defaults.SegmentWidthMM)
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"LogMode", cfg.LogMode, "dev"},
		{"Server.Port", cfg.Server.Port, 8080},
		{"Remote.BaseURL", cfg.Remote.BaseURL, "http://127.0.0.1:8080"},
		{"Remote.Timeout", cfg.Remote.Timeout, 15 * time.Second},
		{"Cache.Backend", cfg.Cache.Backend, "badger"},
		{"Cache.TTL", cfg.Cache.TTL, 24 * time.Hour},
		{"Cache.RefreshSchedule", cfg.Cache.RefreshSchedule, "0 3 * * *"},
		{"Database.Driver", cfg.Database.Driver, "sqlite"},
		{"Database.Path", cfg.Database.Path, "stratum.db"},
		{"Database.User", cfg.Database.User, "root"},
		{"Defaults.SegmentWidthMM", cfg.Defaults.SegmentWidthMM, 50.0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if strings.Join(cfg.Cache.Catalogs, ",") != "materials,frames,glazing" {
		t.Errorf("Cache.Catalogs = %v", cfg.Cache.Catalogs)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing project", "log_mode: dev\n", "project is required"},
		{"bad backend", "project: p\ncache:\n  backend: disk\n", "cache.backend"},
		{"bad driver", "project: p\ndatabase:\n  driver: postgres\n", "database.driver"},
		{"half slack", "project: p\nnotify:\n  slack:\n    bot_token: x\n", "notify.slack"},
		{"half discord", "project: p\nnotify:\n  discord:\n    channel_id: c\n", "notify.discord"},
		{"negative width", "project: p\ndefaults:\n  segment_width_mm: -1\n", "segment_width_mm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("project: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stratum.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project != "proj-1" {
		t.Errorf("Project = %q", cfg.Project)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config: read") {
		t.Fatalf("err = %v, want read error", err)
	}
}
