package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Filter.Locale != language.English {
			t.Errorf("expected locale en, got %v", cfg.Filter.Locale)
		}
		if !cfg.Filter.Validation {
			t.Error("expected validation enabled by default")
		}
		if cfg.Filter.CaseSensitive {
			t.Error("expected case insensitive comparison by default")
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.Server.Port)
		}
		if cfg.Server.ShutdownTimeout != 30*time.Second {
			t.Errorf("expected shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("FK_SERVER_PORT", "9999")
		t.Setenv("FK_FILTER_LOCALE", "sv")
		t.Setenv("FK_FILTER_VALIDATION", "false")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Filter.Locale != language.Swedish {
			t.Errorf("expected locale sv, got %v", cfg.Filter.Locale)
		}
		if cfg.Filter.Validation {
			t.Error("expected validation disabled")
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `filter:
  case_sensitive: true
database:
  url: "sqlite::memory:"
server:
  shutdown_timeout: 5s
`)
		cfg, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if !cfg.Filter.CaseSensitive {
			t.Error("expected case sensitive comparison from file")
		}
		if cfg.Database.URL != "sqlite::memory:" {
			t.Errorf("expected database url from file, got %q", cfg.Database.URL)
		}
		if cfg.Server.ShutdownTimeout != 5*time.Second {
			t.Errorf("expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
		}
	})

	t.Run("precedence", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 9090\n  host: filehost\n")
		t.Setenv("FK_SERVER_PORT", "8080")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("host", "0.0.0.0", "")
		flags.Int("port", 50051, "")
		if err := flags.Parse([]string{"--host", "flaghost"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path, flags)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Host != "flaghost" {
			t.Errorf("expected flag to win, got host %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected environment to beat file and unset flag, got port %d", cfg.Server.Port)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid port range", map[string]string{"FK_SERVER_PORT": "70000"}},
		{"non-positive shutdown timeout", map[string]string{"FK_SERVER_SHUTDOWN_TIMEOUT": "0s"}},
		{"invalid locale", map[string]string{"FK_FILTER_LOCALE": "not a locale!"}},
		{"invalid log level", map[string]string{"FK_LOG_LEVEL": "chatty"}},
		{"invalid log format", map[string]string{"FK_LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig("", nil); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 50051}
	if got := c.Addr(); got != "127.0.0.1:50051" {
		t.Errorf("Addr() = %q, want 127.0.0.1:50051", got)
	}
}
