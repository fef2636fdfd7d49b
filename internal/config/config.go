// Package config provides configuration management for Reef projects
// using Viper for flexible loading from files, environment variables,
// and command-line flags.
//
// Configuration is read from .reef.yml with REEF_ prefixed environment
// variable overrides (REEF_SERVER_PORT, REEF_LIMITS_MAX_ISLANDS, ...).
// It carries compiler limits, template discovery paths, the preview
// server settings, and development options like live reload and the
// error overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/coralpages/reef/internal/limits"
)

// Config is the root configuration for a Reef project.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Templates   TemplatesConfig   `yaml:"templates" mapstructure:"templates"`
	Limits      limits.Limits     `yaml:"limits" mapstructure:"limits"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Development DevelopmentConfig `yaml:"development" mapstructure:"development"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`

	// TargetFiles are template paths given as CLI arguments, never
	// read from the config file.
	TargetFiles []string `yaml:"-" mapstructure:"-"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// TemplatesConfig configures template discovery.
type TemplatesConfig struct {
	ScanPaths       []string `yaml:"scan_paths" mapstructure:"scan_paths"`
	Extensions      []string `yaml:"extensions" mapstructure:"extensions"`
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

// OutputConfig configures artifact emission.
type OutputConfig struct {
	// Dir receives compiled artifacts.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Format is "json" or "msgpack".
	Format string `yaml:"format" mapstructure:"format"`
}

// DevelopmentConfig holds development-only behavior.
type DevelopmentConfig struct {
	LiveReload   bool `yaml:"live_reload" mapstructure:"live_reload"`
	ErrorOverlay bool `yaml:"error_overlay" mapstructure:"error_overlay"`
	// DebounceMs groups rapid file changes into one recompile.
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	// DisableCache bypasses the compiler's artifact cache.
	DisableCache bool `yaml:"disable_cache" mapstructure:"disable_cache"`
}

// LoggingConfig configures diagnostics output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8120,
		},
		Templates: TemplatesConfig{
			ScanPaths:  []string{"./templates"},
			Extensions: []string{".reef"},
		},
		Limits: limits.DefaultLimits(),
		Output: OutputConfig{
			Dir:    "./dist",
			Format: "json",
		},
		Development: DevelopmentConfig{
			LiveReload:   true,
			ErrorOverlay: true,
			DebounceMs:   300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from the already-initialized viper instance,
// filling unset fields with defaults and validating the result.
func Load() (*Config, error) {
	config := Default()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Viper leaves slice fields alone when the key is absent, but
	// zeroes them when set through env vars. Re-read explicitly.
	if viper.IsSet("templates.scan_paths") {
		if paths := viper.GetStringSlice("templates.scan_paths"); len(paths) > 0 {
			config.Templates.ScanPaths = paths
		}
	}
	if viper.IsSet("templates.extensions") {
		if exts := viper.GetStringSlice("templates.extensions"); len(exts) > 0 {
			config.Templates.Extensions = exts
		}
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyDefaults(config *Config) {
	def := Default()
	if config.Server.Host == "" {
		config.Server.Host = def.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}
	if len(config.Templates.ScanPaths) == 0 {
		config.Templates.ScanPaths = def.Templates.ScanPaths
	}
	if len(config.Templates.Extensions) == 0 {
		config.Templates.Extensions = def.Templates.Extensions
	}
	if config.Output.Dir == "" {
		config.Output.Dir = def.Output.Dir
	}
	if config.Output.Format == "" {
		config.Output.Format = def.Output.Format
	}
	if config.Development.DebounceMs == 0 {
		config.Development.DebounceMs = def.Development.DebounceMs
	}
	if config.Logging.Level == "" {
		config.Logging.Level = def.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = def.Logging.Format
	}
	config.Limits = config.Limits.WithDefaults()
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Output.Format != "json" && c.Output.Format != "msgpack" {
		return fmt.Errorf("output.format must be \"json\" or \"msgpack\", got %q", c.Output.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	for _, ext := range c.Templates.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("templates.extensions entries must start with a dot, got %q", ext)
		}
	}
	if c.Development.DebounceMs < 0 {
		return fmt.Errorf("development.debounce_ms cannot be negative, got %d", c.Development.DebounceMs)
	}
	return nil
}

// IsTemplateFile reports whether path has one of the configured
// template extensions.
func (c *Config) IsTemplateFile(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range c.Templates.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// WriteStarter writes a commented starter .reef.yml at path. It fails
// if the file already exists.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	out, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to render starter config: %w", err)
	}

	header := "# Reef project configuration.\n" +
		"# Every value can be overridden with a REEF_ environment variable,\n" +
		"# e.g. REEF_SERVER_PORT=9000 or REEF_LIMITS_MAX_ISLANDS=50.\n"

	return os.WriteFile(path, append([]byte(header), out...), 0o644)
}
