package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Automaat/shader-buster/internal/fsys"
)

// Env describes the machine a provider probes. Tests build one by hand to
// exercise other platforms' layouts.
type Env struct {
	FS     fsys.FS
	GOOS   string
	Home   string
	Getenv func(string) string

	// Drives lists fixed drive roots ("D:\") scanned for launcher libraries.
	Drives []string

	// Hints carries extra roots per provider name, supplied by platform
	// probes such as registry lookups.
	Hints map[string][]string
}

// HostEnv describes the running machine.
func HostEnv(f fsys.FS) (Env, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("get home dir: %w", err)
	}

	env := Env{
		FS:     f,
		GOOS:   runtime.GOOS,
		Home:   home,
		Getenv: os.Getenv,
		Hints:  map[string][]string{},
	}
	if env.GOOS == "windows" {
		env.Drives = fixedDrives(f)
	}
	return env, nil
}

func fixedDrives(f fsys.FS) []string {
	var drives []string
	for letter := 'A'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if info, err := f.Stat(root); err == nil && info.IsDir() {
			drives = append(drives, root)
		}
	}
	return drives
}

func (e Env) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// under joins elem onto base, or returns "" when base is unknown.
func under(base string, elem ...string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(append([]string{base}, elem...)...)
}

func (e Env) localAppData() string {
	if v := e.getenv("LOCALAPPDATA"); v != "" {
		return v
	}
	return under(e.Home, "AppData", "Local")
}

func (e Env) localLow() string {
	local := e.localAppData()
	if local == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(local), "LocalLow")
}

func (e Env) roamingAppData() string {
	if v := e.getenv("APPDATA"); v != "" {
		return v
	}
	return under(e.Home, "AppData", "Roaming")
}

func (e Env) programData() string {
	return e.getenv("PROGRAMDATA")
}

func (e Env) temp() string {
	if v := e.getenv("TEMP"); v != "" {
		return v
	}
	return under(e.localAppData(), "Temp")
}

func (e Env) xdgCache() string {
	if v := e.getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return under(e.Home, ".cache")
}

func (e Env) xdgConfig() string {
	if v := e.getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return under(e.Home, ".config")
}

func (e Env) xdgData() string {
	if v := e.getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	return under(e.Home, ".local", "share")
}

func (e Env) macSupport() string {
	return under(e.Home, "Library", "Application Support")
}
