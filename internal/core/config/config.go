// Package config provides configuration management for filterkeeper.
package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/solatis/filterkeeper/internal/types"
)

// Config is the complete filterkeeper configuration.
type Config struct {
	Filter   FilterConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
}

// FilterConfig tunes condition trees and the filter engine.
type FilterConfig struct {
	// Locale selects the collation of text comparisons.
	Locale language.Tag
	// Validation enables validation of condition trees.
	Validation bool
	// CaseSensitive is the default text comparison of easy filters and sorts.
	CaseSensitive bool
}

// CompareOptions returns the text comparison options of the filter engine.
func (c FilterConfig) CompareOptions() types.CompareOptions {
	return types.CompareOptions{CaseSensitive: c.CaseSensitive}
}

// DatabaseConfig holds the condition store connection.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds configuration for the gRPC condition sync service.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Filter: FilterConfig{
			Locale:     language.English,
			Validation: true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
