package provider

import (
	"context"
	"path/filepath"

	"github.com/Automaat/shader-buster/internal/config"
)

// CustomProvider cleans directories the user listed in custom_paths.
type CustomProvider struct {
	*BaseProvider
	patterns []string
}

// NewCustomProvider creates a provider over the configured custom paths.
func NewCustomProvider(env Env, cfg *config.Config) (Provider, error) {
	var patterns []string
	if cfg != nil {
		patterns = cfg.CustomPaths
	}
	return &CustomProvider{
		BaseProvider: NewBaseProvider("custom", "Custom", KindCustom, 200, env),
		patterns:     patterns,
	}, nil
}

// Discover implements Provider.
func (p *CustomProvider) Discover(ctx context.Context) ([]Location, error) {
	paths, err := config.ExpandPaths(p.patterns)
	if err != nil {
		return nil, err
	}

	cands := make([]candidate, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		cands = append(cands, candidate{path: abs, label: filepath.Base(abs)})
	}

	return p.locate(ctx, cands)
}
