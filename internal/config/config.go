package config

import (
	"fmt"
	"strings"

	"github.com/Automaat/shader-buster/pkg/size"
)

// CurrentSchemaVersion is the settings layout this build reads and writes.
const CurrentSchemaVersion = 2

type Config struct {
	SchemaVersion int                 `mapstructure:"schema_version" yaml:"schema_version" json:"schema_version"`
	Providers     map[string]Provider `mapstructure:"providers" yaml:"providers" json:"providers,omitempty" jsonschema:"description=Per-provider settings keyed by provider name. Providers not listed are enabled with their built-in priority"`
	CustomPaths   []string            `mapstructure:"custom_paths" yaml:"custom_paths" json:"custom_paths,omitempty" jsonschema:"description=Extra cache directories; supports ~ and globs"`
	Backup        Backup              `mapstructure:"backup" yaml:"backup" json:"backup"`
	History       History             `mapstructure:"history" yaml:"history" json:"history"`
	Notify        Notify              `mapstructure:"notify" yaml:"notify" json:"notify"`
	Log           Log                 `mapstructure:"log" yaml:"log" json:"log"`
}

type Provider struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Priority int  `mapstructure:"priority" yaml:"priority,omitempty" json:"priority,omitempty" jsonschema:"minimum=0,description=Overrides the built-in priority; lower runs first. 0 keeps the default"`
}

type Backup struct {
	Auto     bool   `mapstructure:"auto" yaml:"auto" json:"auto" jsonschema:"description=Snapshot every location before deleting"`
	Root     string `mapstructure:"root" yaml:"root" json:"root"`
	Headroom string `mapstructure:"headroom" yaml:"headroom" json:"headroom" jsonschema:"description=Free space to keep on the backup volume, e.g. 1G"`
	KeepFor  string `mapstructure:"keep_for" yaml:"keep_for,omitempty" json:"keep_for,omitempty" jsonschema:"description=Age after which backup prune removes snapshots, e.g. 30d"`
}

type History struct {
	Path       string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`
	MaxEntries int    `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries" jsonschema:"minimum=0"`
}

type Notify struct {
	Command string `mapstructure:"command" yaml:"command,omitempty" json:"command,omitempty" jsonschema:"description=Command run after each cleanup; the summary is appended as the last argument"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,enum=off"`
	Format string `mapstructure:"format" yaml:"format" json:"format" jsonschema:"enum=console,enum=json"`
}

func (c *Config) Validate() error {
	if c.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("schema_version %d, want %d", c.SchemaVersion, CurrentSchemaVersion)
	}

	for name, p := range c.Providers {
		if p.Priority < 0 {
			return fmt.Errorf("provider %q: priority must not be negative", name)
		}
	}

	for _, p := range c.CustomPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("custom_paths: empty path")
		}
	}

	if c.Backup.Root == "" {
		return fmt.Errorf("backup.root is required")
	}
	if _, err := c.HeadroomBytes(); err != nil {
		return fmt.Errorf("backup.headroom: %w", err)
	}
	if _, err := ParseDuration(c.Backup.KeepFor); err != nil {
		return fmt.Errorf("backup.keep_for: %w", err)
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format %q: want console or json", c.Log.Format)
	}

	return nil
}

// ProviderSettings returns the settings for name. Unlisted providers are enabled.
func (c *Config) ProviderSettings(name string) Provider {
	if p, ok := c.Providers[name]; ok {
		return p
	}
	return Provider{Enabled: true}
}

// HeadroomBytes parses Backup.Headroom. Empty means no headroom.
func (c *Config) HeadroomBytes() (int64, error) {
	if strings.TrimSpace(c.Backup.Headroom) == "" {
		return 0, nil
	}
	return size.Parse(c.Backup.Headroom)
}
