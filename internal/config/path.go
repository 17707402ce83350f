package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configDir  = ".config/shader-buster"
	dataDir    = ".local/share/shader-buster"
	configFile = "config.yaml"
	historyDB  = "history.db"
)

func ExpandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}

	if path == "~" {
		return home, nil
	}

	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

func ExpandPaths(patterns []string) ([]string, error) {
	var result []string

	for _, pattern := range patterns {
		expanded, err := ExpandTilde(os.ExpandEnv(pattern))
		if err != nil {
			return nil, err
		}

		if strings.ContainsAny(expanded, "*?[") {
			matches, err := filepath.Glob(expanded)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", pattern, err)
			}
			result = append(result, matches...)
		} else {
			result = append(result, expanded)
		}
	}

	return result, nil
}

func DirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func Path() (string, error) {
	dir, err := DirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func DataDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, dataDir), nil
}

// HistoryPath returns the configured history database, defaulting to the data dir.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return ExpandTilde(c.History.Path)
	}
	dir, err := DataDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyDB), nil
}

// BackupRoot returns the expanded backup root.
func (c *Config) BackupRoot() (string, error) {
	return ExpandTilde(c.Backup.Root)
}
