package gate

import (
	"path/filepath"
)

// DefaultProtected returns the platform's system, application, volume and
// profile roots.
func DefaultProtected(goos, home string, getenv func(string) string) Protected {
	if goos == "windows" {
		systemDrive := getenv("SystemDrive")
		if systemDrive == "" {
			systemDrive = "C:"
		}
		windir := getenv("SystemRoot")
		if windir == "" {
			windir = filepath.Join(systemDrive+`\`, "Windows")
		}
		programFiles := getenv("ProgramFiles")
		if programFiles == "" {
			programFiles = filepath.Join(systemDrive+`\`, "Program Files")
		}
		return Protected{
			Trees: []string{windir, programFiles},
			Exact: []string{systemDrive + `\`, home, getenv("USERPROFILE")},
		}
	}

	trees := []string{"/bin", "/sbin", "/usr", "/etc", "/lib", "/lib32", "/lib64", "/boot", "/dev", "/proc", "/sys"}
	switch goos {
	case "darwin":
		trees = append(trees, "/System", "/Applications", "/Library")
	default:
		trees = append(trees, "/var", "/opt", "/snap")
	}

	return Protected{
		Trees: trees,
		Exact: []string{"/", home},
	}
}
