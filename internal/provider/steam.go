package provider

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/spf13/afero"
)

// libraryPathRegex matches `"path"  "D:\\SteamLibrary"` lines in libraryfolders.vdf.
var libraryPathRegex = regexp.MustCompile(`(?m)^\s*"path"\s+"((?:[^"\\]|\\.)*)"`)

// SteamProvider finds shader caches of every Steam library on the machine.
type SteamProvider struct {
	*BaseProvider
}

// NewSteamProvider creates the Steam provider.
func NewSteamProvider(env Env, _ *config.Config) (Provider, error) {
	return &SteamProvider{
		BaseProvider: NewBaseProvider("steam", "Steam", KindLauncher, 50, env, windows, linux),
	}, nil
}

// Discover implements Provider.
func (p *SteamProvider) Discover(ctx context.Context) ([]Location, error) {
	if !p.Available() {
		return nil, nil
	}

	var cands []candidate
	for _, root := range p.roots() {
		cands = append(cands, at(root.label, root.path, "steamapps", "shadercache"))
		for _, lib := range p.libraries(root.path) {
			cands = append(cands, at("Library "+lib, lib, "steamapps", "shadercache"))
		}
	}

	return p.locate(ctx, cands)
}

// roots lists candidate Steam installation directories.
func (p *SteamProvider) roots() []candidate {
	e := p.env
	var roots []candidate

	for _, hint := range e.Hints[p.name] {
		roots = append(roots, candidate{path: hint, label: "Primary Installation"})
	}

	if e.GOOS == windows {
		for _, drive := range e.Drives {
			label := "Drive " + strings.TrimRight(drive, `:\/`)
			roots = append(roots,
				at(label, drive, "Program Files (x86)", "Steam"),
				at(label, drive, "Program Files", "Steam"),
				at(label, drive, "Steam"),
				at("Library "+strings.TrimRight(drive, `:\/`), drive, "SteamLibrary"),
			)
		}
		return roots
	}

	return append(roots,
		at("Linux", e.Home, ".steam", "steam"),
		at("Linux Local", e.xdgData(), "Steam"),
		at("Flatpak", e.Home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
	)
}

// libraries reads additional library folders registered in root's libraryfolders.vdf.
func (p *SteamProvider) libraries(root string) []string {
	if root == "" {
		return nil
	}
	data, err := afero.ReadFile(p.env.FS, filepath.Join(root, "steamapps", "libraryfolders.vdf"))
	if err != nil {
		return nil
	}
	return parseLibraryFolders(string(data))
}

func parseLibraryFolders(vdf string) []string {
	var libs []string
	for _, m := range libraryPathRegex.FindAllStringSubmatch(vdf, -1) {
		path := strings.ReplaceAll(m[1], `\\`, `\`)
		if path != "" {
			libs = append(libs, path)
		}
	}
	return libs
}
