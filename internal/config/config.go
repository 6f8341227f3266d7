// Package config loads overlaywin settings: built-in defaults, then an optional
// YAML file, then OVERLAYWIN_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mj1618/overlaywin/internal/logging"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. OVERLAYWIN_TARGET_TITLE.
const EnvPrefix = "OVERLAYWIN"

// Config holds all application configuration.
type Config struct {
	Target  TargetConfig   `yaml:"target"  envconfig:"TARGET"`
	Overlay OverlayConfig  `yaml:"overlay" envconfig:"OVERLAY"`
	Logging logging.Config `yaml:"logging" envconfig:"LOG"`
	Journal JournalConfig  `yaml:"journal" envconfig:"JOURNAL"`
	Metrics MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`
}

// TargetConfig selects the target window.
type TargetConfig struct {
	Title string `yaml:"title" envconfig:"TITLE"`
	// Titles switches to multi-title mode: the first candidate that appears wins.
	Titles      []string `yaml:"titles"        envconfig:"TITLES"`
	HasTitleBar bool     `yaml:"has_title_bar" envconfig:"HAS_TITLE_BAR"`
}

// OverlayConfig tunes the overlay window and the platform policy. Empty
// strings keep the running platform's default.
type OverlayConfig struct {
	Window           string        `yaml:"window"            envconfig:"WINDOW"`
	CoalesceInterval time.Duration `yaml:"coalesce_interval" envconfig:"COALESCE_INTERVAL"`
	BlurPolicy       string        `yaml:"blur_policy"       envconfig:"BLUR_POLICY"`
	Fullscreen       string        `yaml:"fullscreen"        envconfig:"FULLSCREEN"`
	Coords           string        `yaml:"coords"            envconfig:"COORDS"`
	InsetTitleBar    *bool         `yaml:"inset_title_bar"   envconfig:"INSET_TITLE_BAR"`
	TitleBarHeight   int           `yaml:"title_bar_height"  envconfig:"TITLE_BAR_HEIGHT"`
}

// JournalConfig controls the sqlite event journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path"    envconfig:"PATH"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// Dir returns the per-user configuration directory (~/.overlaywin).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overlaywin"
	}
	return filepath.Join(home, ".overlaywin")
}

// DefaultPath returns the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Overlay: OverlayConfig{
			Window:           "ebiten",
			CoalesceInterval: overlay.DefaultCoalesceInterval,
		},
		Logging: logging.DefaultConfig(),
		Journal: JournalConfig{
			Path: filepath.Join(Dir(), "journal.db"),
		},
	}
}

// Load reads the YAML file at path, then applies environment overrides.
// An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects unknown enum values and negative durations.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Overlay.CoalesceInterval < 0 {
		return fmt.Errorf("overlay.coalesce_interval must not be negative, got %s", c.Overlay.CoalesceInterval)
	}
	if c.Overlay.TitleBarHeight < 0 {
		return fmt.Errorf("overlay.title_bar_height must not be negative, got %d", c.Overlay.TitleBarHeight)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

// Policy returns the running platform's policy with configured overrides applied.
func (c *Config) Policy() (platform.Policy, error) {
	return c.PolicyFor(platform.CurrentPolicy())
}

// PolicyFor applies the configured overrides to base.
func (c *Config) PolicyFor(base platform.Policy) (platform.Policy, error) {
	p := base
	o := c.Overlay
	if o.BlurPolicy != "" {
		b, err := platform.ParseBlurPolicy(o.BlurPolicy)
		if err != nil {
			return p, fmt.Errorf("overlay.blur_policy: %w", err)
		}
		p.Blur = b
	}
	if o.Fullscreen != "" {
		f, err := platform.ParseFullscreenStrategy(o.Fullscreen)
		if err != nil {
			return p, fmt.Errorf("overlay.fullscreen: %w", err)
		}
		p.Fullscreen = f
	}
	if o.Coords != "" {
		cs, err := platform.ParseCoordSpace(o.Coords)
		if err != nil {
			return p, fmt.Errorf("overlay.coords: %w", err)
		}
		p.Coords = cs
	}
	if o.InsetTitleBar != nil {
		p.InsetTitleBar = *o.InsetTitleBar
	}
	if o.TitleBarHeight > 0 {
		p.TitleBarHeight = o.TitleBarHeight
	}
	return p, nil
}

// Selector returns the configured target selector. Titles take precedence
// over Title.
func (t TargetConfig) Selector() model.TargetSelector {
	if len(t.Titles) > 0 {
		return model.AnyTitle(t.Titles...)
	}
	if t.Title != "" {
		return model.SingleTitle(t.Title)
	}
	return model.TargetSelector{}
}

// AttachOptions returns the per-attach options derived from the target config.
func (t TargetConfig) AttachOptions() overlay.AttachOptions {
	return overlay.AttachOptions{HasTitleBar: t.HasTitleBar}
}
