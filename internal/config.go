package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/rm-hull/png-scrubber/internal/png"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "png-scrubber.yml"

type Config struct {
	OutputDir string `yaml:"output-dir"`
	Workers   int    `yaml:"workers"`
	KeepNames *bool  `yaml:"keep-names"`
	Lenient   bool   `yaml:"lenient"`
	Watch     struct {
		Inbox    string        `yaml:"inbox"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"watch"`
	Server struct {
		Port         int   `yaml:"port"`
		MaxBodyBytes int64 `yaml:"max-body-bytes"`
	} `yaml:"server"`
}

// LoadConfig reads the YAML config at path, then applies environment
// overrides and defaults. A missing file is only an error when required.
func LoadConfig(path string, required bool) (Config, error) {
	var c Config

	if path != "" {
		buf, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(buf, &c); err != nil {
				return c, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			slog.Debug("Loaded config", "path", path)
		case errors.Is(err, os.ErrNotExist) && !required:
			// defaults only
		default:
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return c, err
	}
	c.setDefaults()
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PNG_SCRUBBER_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("PNG_SCRUBBER_INBOX"); v != "" {
		c.Watch.Inbox = v
	}
	if v := os.Getenv("PNG_SCRUBBER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to convert PNG_SCRUBBER_WORKERS=%s to integer: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to convert PORT=%s to integer: %w", v, err)
		}
		c.Server.Port = n
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "./scrubbed"
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	// Original file names are kept unless explicitly disabled.
	if c.KeepNames == nil {
		keep := true
		c.KeepNames = &keep
	}
	if c.Watch.Inbox == "" {
		c.Watch.Inbox = "./inbox"
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = 30 * time.Second
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 << 20
	}
}

// DefaultConfig is the configuration used when neither a file nor the
// environment says otherwise.
func DefaultConfig() Config {
	var c Config
	c.setDefaults()
	return c
}

// FilterOptions returns the chunk filter options described by the config.
func (c Config) FilterOptions() []png.Option {
	if c.Lenient {
		return []png.Option{png.WithLenientEOF()}
	}
	return nil
}

// Options returns the batch options described by the config.
func (c Config) Options() Options {
	return Options{
		OutputDir: c.OutputDir,
		Workers:   c.Workers,
		KeepNames: c.KeepNames != nil && *c.KeepNames,
		Lenient:   c.Lenient,
	}
}
