// Package config loads oxy-gltf loader configuration.
//
// Configuration is YAML by default. Files ending in .json or .jsonc are read
// as JSON, with comments and trailing commas allowed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
)

// EnvConfigPath names the environment variable Load reads the config path from.
const EnvConfigPath = "OXY_GLTF_CONFIG"

// Config is the loader configuration.
type Config struct {
	Fetch  FetchConfig  `yaml:"fetch" json:"fetch"`
	Decode DecodeConfig `yaml:"decode" json:"decode"`
	Scene  SceneConfig  `yaml:"scene" json:"scene"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// FetchConfig controls remote buffer fetches.
type FetchConfig struct {
	// Timeout bounds each remote fetch, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`
}

// DecodeConfig sizes the accessor prefetch worker pool.
type DecodeConfig struct {
	// Workers is the number of decode workers. Zero means one per CPU.
	Workers int `yaml:"workers" json:"workers"`

	// QueueSize is the depth of the task queue.
	// Default: 256
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// SceneConfig controls graph assembly.
type SceneConfig struct {
	// Strict makes an out-of-range default scene index an error. When false
	// the document is loaded with no main scene and a warning is logged.
	// Default: true
	Strict bool `yaml:"strict" json:"strict"`
}

// LogConfig controls the command-line logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text, json or auto. Auto picks text on a terminal.
	// Default: auto
	Format string `yaml:"format" json:"format"`
}

// Default returns the default configuration. Files are merged over it.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout: loader.DefaultFetchTimeout.String(),
		},
		Decode: DecodeConfig{
			QueueSize: 256,
		},
		Scene: SceneConfig{
			Strict: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by OXY_GLTF_CONFIG, or
// returns Default when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads and validates configuration from a specific file path.
//
// Parameters:
//   - path: a .yaml, .yml, .json or .jsonc file
//
// Returns:
//   - *Config: the merged configuration
//   - error: error if the file cannot be read, parsed or validated
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Fetch.Timeout != "" {
		if d, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("fetch.timeout: %w", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("fetch.timeout: must be positive, got %s", d))
		}
	}
	if c.Decode.Workers < 0 {
		errs = append(errs, fmt.Errorf("decode.workers: must not be negative, got %d", c.Decode.Workers))
	}
	if c.Decode.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("decode.queue_size: must not be negative, got %d", c.Decode.QueueSize))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// FetchTimeout returns the parsed fetch timeout, falling back to the default.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(common.Coalesce(c.Fetch.Timeout, loader.DefaultFetchTimeout.String()))
	if err != nil || d <= 0 {
		return loader.DefaultFetchTimeout
	}
	return d
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(common.Coalesce(c.Log.Level, "info"))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// LoaderOptions converts the configuration into loader options.
//
// Parameters:
//   - logger: the logger handed to the loader; nil keeps the loader default
//
// Returns:
//   - []loader.LoaderBuilderOption: options for loader.NewLoader
func (c *Config) LoaderOptions(logger *slog.Logger) []loader.LoaderBuilderOption {
	return []loader.LoaderBuilderOption{
		loader.WithLogger(logger),
		loader.WithFetchTimeout(c.FetchTimeout()),
		loader.WithStrictScene(c.Scene.Strict),
		loader.WithDecodeWorkers(common.Coalesce(c.Decode.Workers, runtime.NumCPU()), c.Decode.QueueSize),
	}
}
