package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CorruptError reports a settings file that exists but cannot be used.
type CorruptError struct {
	Err  error
	Path string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("config %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Loader handles config file operations.
type Loader struct {
	v          *viper.Viper
	configPath string // override for testing, empty uses Path()
	migrated   int
}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigPath overrides config path (for testing).
func (l *Loader) SetConfigPath(path string) {
	l.configPath = path
}

// ConfigPath returns the file the loader reads and writes.
func (l *Loader) ConfigPath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	return Path()
}

// MigratedFrom returns the schema version the last Load upgraded from, or 0.
func (l *Loader) MigratedFrom() int {
	return l.migrated
}

// Load reads, migrates and validates config from disk.
// A file that exists but cannot be parsed or validated yields *CorruptError.
// Files written by an older schema are upgraded and rewritten; the original is
// kept next to it with a .v<N>.bak suffix.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.ConfigPath()
	if err != nil {
		return nil, err
	}

	l.v.SetConfigFile(configPath)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return nil, &CorruptError{Path: configPath, Err: err}
	}

	raw := l.v.AllSettings()
	from, err := Migrate(raw)
	if err != nil {
		return nil, &CorruptError{Path: configPath, Err: err}
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, &CorruptError{Path: configPath, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &CorruptError{Path: configPath, Err: fmt.Errorf("validate: %w", err)}
	}

	l.migrated = 0
	if from < CurrentSchemaVersion {
		if err := copyFile(configPath, fmt.Sprintf("%s.v%d.bak", configPath, from)); err != nil {
			return nil, fmt.Errorf("keep pre-migration config: %w", err)
		}
		if err := l.Save(cfg); err != nil {
			return nil, fmt.Errorf("write migrated config: %w", err)
		}
		l.migrated = from
	}

	return cfg, nil
}

func decode(raw map[string]any) (*Config, error) {
	v := viper.New()
	if err := v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("merge settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadOrCreate loads config or creates default. Returns (config, created, error).
func (l *Loader) LoadOrCreate() (*Config, bool, error) {
	exists, err := l.Exists()
	if err != nil {
		return nil, false, err
	}

	if exists {
		cfg, err := l.Load()
		return cfg, false, err
	}

	cfg := DefaultConfig()
	if err := l.Save(cfg); err != nil {
		return nil, false, fmt.Errorf("create default config: %w", err)
	}

	return cfg, true, nil
}

// Save writes config to disk.
func (l *Loader) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	configPath, err := l.ConfigPath()
	if err != nil {
		return err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// A fresh instance so keys dropped by migration are not written back.
	w := viper.New()
	for key, value := range map[string]any{
		"schema_version": cfg.SchemaVersion,
		"providers":      cfg.Providers,
		"custom_paths":   cfg.CustomPaths,
		"backup":         cfg.Backup,
		"history":        cfg.History,
		"notify":         cfg.Notify,
		"log":            cfg.Log,
	} {
		w.Set(key, value)
	}

	return w.WriteConfigAs(configPath)
}

// InitDefault creates default config if missing. Returns true if created.
func (l *Loader) InitDefault() (bool, error) {
	exists, err := l.Exists()
	if err != nil {
		return false, err
	}

	if exists {
		return false, nil
	}

	if err := l.Save(DefaultConfig()); err != nil {
		return false, err
	}

	return true, nil
}

// Exists checks if config file exists.
func (l *Loader) Exists() (bool, error) {
	configPath, err := l.ConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
