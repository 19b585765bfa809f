package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/solatis/filterkeeper/internal/core/logging"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"db-url":         "database.url",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"locale":         "filter.locale",
	"validation":     "filter.validation",
	"case-sensitive": "filter.case_sensitive",
	"host":           "server.host",
	"port":           "server.port",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence. Flags of
// flags that map to a configuration key are bound; flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("filter.locale", d.Filter.Locale.String())
	v.SetDefault("filter.validation", d.Filter.Validation)
	v.SetDefault("filter.case_sensitive", d.Filter.CaseSensitive)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	// Bind environment variables with FK_ prefix
	v.SetEnvPrefix("FK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	locale, err := language.Parse(v.GetString("filter.locale"))
	if err != nil {
		return nil, fmt.Errorf("invalid filter.locale %q: %w", v.GetString("filter.locale"), err)
	}

	cfg := &Config{
		Filter: FilterConfig{
			Locale:        locale,
			Validation:    v.GetBool("filter.validation"),
			CaseSensitive: v.GetBool("filter.case_sensitive"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive timeouts and the log settings.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", cfg.Server.ShutdownTimeout)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(cfg.Log.Format); err != nil {
		return err
	}
	return nil
}
