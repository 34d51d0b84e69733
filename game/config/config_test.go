package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Port)
	}
	if cfg.StaticDir != "./static" {
		t.Errorf("Expected ./static, got %s", cfg.StaticDir)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("Expected 5m sweep interval, got %s", cfg.SweepInterval)
	}
	if cfg.RoomRetention != time.Hour {
		t.Errorf("Expected 1h retention, got %s", cfg.RoomRetention)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("Expected no origin restriction, got %v", cfg.AllowedOrigins)
	}
	if cfg.MCPAllowClose {
		t.Error("close_room should be off by default")
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("Expected :3000, got %s", cfg.Addr())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("ROOM_RETENTION", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NGROK_ENABLED", "true")
	t.Setenv("NGROK_AUTHTOKEN", "tok")
	t.Setenv("NGROK_DOMAIN", "relay.ngrok.app")
	t.Setenv("MCP_ALLOW_CLOSE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Expected 127.0.0.1:9090, got %s", cfg.Addr())
	}
	if cfg.SweepInterval != 30*time.Second || cfg.RoomRetention != 2*time.Hour {
		t.Errorf("Unexpected durations: %s / %s", cfg.SweepInterval, cfg.RoomRetention)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if !cfg.Ngrok.Enabled || cfg.Ngrok.AuthToken != "tok" || cfg.Ngrok.Domain != "relay.ngrok.app" {
		t.Errorf("Unexpected ngrok config: %+v", cfg.Ngrok)
	}
	if !cfg.MCPAllowClose {
		t.Error("Expected MCP_ALLOW_CLOSE to enable close_room")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		invalid bool
	}{
		{name: "bad port", env: map[string]string{"PORT": "abc"}},
		{name: "bad duration", env: map[string]string{"SWEEP_INTERVAL": "soon"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}, invalid: true},
		{name: "zero retention", env: map[string]string{"ROOM_RETENTION": "0s"}, invalid: true},
		{name: "ngrok without token", env: map[string]string{"NGROK_ENABLED": "true"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.invalid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !tt.invalid && !strings.Contains(err.Error(), "parse env") {
				t.Errorf("Expected parse env error, got %v", err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file ignored", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	})

	t.Run("values loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("RELAY_TEST_STATIC=/srv/www\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("RELAY_TEST_STATIC", "")
		os.Unsetenv("RELAY_TEST_STATIC")

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile failed: %v", err)
		}
		if got := os.Getenv("RELAY_TEST_STATIC"); got != "/srv/www" {
			t.Errorf("Expected /srv/www, got %q", got)
		}
	})
}
