package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tempo/internal/lifecycle"
	"github.com/starford/tempo/internal/preview"
	"github.com/starford/tempo/internal/summary"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Tracking TrackingConfig    `yaml:"tracking"`
	Preview  PreviewConfig     `yaml:"preview"`
	Ledger   LedgerConfig      `yaml:"ledger"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Tracking.Validate(); err != nil {
		return err
	}
	if err := c.Preview.Validate(); err != nil {
		return err
	}
	return c.Ledger.Validate()
}

// ApplicationConfig holds application-level configuration.
//
// LogFile receives the JSON log; when empty logs go to stderr. Stdout is
// reserved for the editor RPC channel.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	LogFile  string     `yaml:"log_file"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// TrackingConfig describes where day files live and how they are summarised.
type TrackingConfig struct {
	Root      string `yaml:"root"`
	Prefix    string `yaml:"prefix"`
	Suffix    string `yaml:"suffix"`
	Formatter string `yaml:"formatter"`
}

// Validate validates the tracking configuration.
func (c *TrackingConfig) Validate() error {
	if c.Formatter == "" {
		c.Formatter = summary.FormatterDefault
	}
	names := make([]any, 0, len(summary.Names()))
	for _, n := range summary.Names() {
		names = append(names, n)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Formatter, validation.Required, validation.In(names...)),
	)
}

// PreviewConfig holds the preview split geometry and settle delays.
type PreviewConfig struct {
	OpenDelay    time.Duration `yaml:"open_delay"`
	CloseDelay   time.Duration `yaml:"close_delay"`
	MinWidth     int           `yaml:"min_width"`
	WidthDivisor int           `yaml:"width_divisor"`
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenDelay, validation.Min(time.Duration(0)), validation.Max(5*time.Second)),
		validation.Field(&c.CloseDelay, validation.Min(time.Duration(0)), validation.Max(5*time.Second)),
		validation.Field(&c.MinWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.WidthDivisor, validation.Required, validation.Min(1)),
	)
}

// LedgerConfig holds the optional day-totals database. An empty Path
// disables the ledger.
type LedgerConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Enabled returns true when a ledger database is configured.
func (c *LedgerConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	if !c.Enabled() && c.Watch {
		return fmt.Errorf("ledger: watch is enabled but path is empty")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	root := "time-tracking"
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, "time-tracking")
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Tracking: TrackingConfig{
			Root:      root,
			Formatter: summary.FormatterDefault,
		},
		Preview: PreviewConfig{
			OpenDelay:    lifecycle.DefaultOpenDelay,
			CloseDelay:   lifecycle.DefaultCloseDelay,
			MinWidth:     preview.DefaultMinWidth,
			WidthDivisor: preview.DefaultWidthDivisor,
		},
	}
}

// settings adapts TrackingConfig to lifecycle.Settings.
type settings struct {
	cfg       TrackingConfig
	formatter summary.Formatter
}

var _ lifecycle.Settings = (*settings)(nil)

func newSettings(cfg TrackingConfig) (*settings, error) {
	f, err := summary.Lookup(cfg.Formatter)
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, formatter: f}, nil
}

func (s *settings) TrackingRoot() string         { return s.cfg.Root }
func (s *settings) Prefix() string               { return s.cfg.Prefix }
func (s *settings) Suffix() string               { return s.cfg.Suffix }
func (s *settings) Formatter() summary.Formatter { return s.formatter }
