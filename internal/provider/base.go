package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// candidate is a possible cache directory. path may contain glob patterns.
type candidate struct {
	path  string
	label string
}

func at(label, base string, elem ...string) candidate {
	return candidate{path: under(base, elem...), label: label}
}

// BaseProvider implements common functionality for providers.
type BaseProvider struct {
	env       Env
	name      string
	display   string
	kind      Kind
	platforms []string
	priority  int
}

// NewBaseProvider creates a BaseProvider. With no platforms it is available everywhere.
func NewBaseProvider(name, display string, kind Kind, priority int, env Env, platforms ...string) *BaseProvider {
	return &BaseProvider{
		env:       env,
		name:      name,
		display:   display,
		kind:      kind,
		platforms: platforms,
		priority:  priority,
	}
}

// Name implements Provider.
func (b *BaseProvider) Name() string {
	return b.name
}

// Display implements Provider.
func (b *BaseProvider) Display() string {
	return b.display
}

// Kind implements Provider.
func (b *BaseProvider) Kind() Kind {
	return b.kind
}

// Priority implements Provider.
func (b *BaseProvider) Priority() int {
	return b.priority
}

// SetPriority overrides the built-in priority.
func (b *BaseProvider) SetPriority(p int) {
	b.priority = p
}

// Available implements Provider.
func (b *BaseProvider) Available() bool {
	return len(b.platforms) == 0 || slices.Contains(b.platforms, b.env.GOOS)
}

// locate keeps the candidates that exist as directories, expanding globs.
func (b *BaseProvider) locate(ctx context.Context, cands []candidate) ([]Location, error) {
	var locations []Location
	seen := make(map[string]bool)

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.path == "" {
			continue
		}

		paths := []string{c.path}
		glob := strings.ContainsAny(c.path, "*?[")
		if glob {
			matches, err := afero.Glob(b.env.FS, c.path)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", c.path, err)
			}
			paths = matches
		}

		for _, p := range paths {
			if seen[p] {
				continue
			}
			info, err := b.env.FS.Stat(p)
			if err != nil || !info.IsDir() {
				continue
			}
			seen[p] = true

			label := c.label
			if glob {
				label = fmt.Sprintf("%s (%s)", label, globPart(c.path, p))
			}
			locations = append(locations, b.location(p, label))
		}
	}

	return locations, nil
}

func (b *BaseProvider) location(path, label string) Location {
	display := b.display
	if label != "" {
		display += " - " + label
	}
	return Location{
		Path:     path,
		Provider: b.name,
		Display:  display,
		Kind:     b.kind,
		Priority: b.priority,
	}
}

// globPart returns the element of match that the first wildcard segment of pattern matched.
func globPart(pattern, match string) string {
	pp := strings.Split(filepath.ToSlash(pattern), "/")
	mp := strings.Split(filepath.ToSlash(match), "/")
	for i, seg := range pp {
		if strings.ContainsAny(seg, "*?[") && i < len(mp) {
			return mp[i]
		}
	}
	return filepath.Base(match)
}

// pathProvider discovers a fixed candidate list computed from the environment.
type pathProvider struct {
	*BaseProvider
	candidates func(Env) []candidate
}

// Discover implements Provider.
func (p *pathProvider) Discover(ctx context.Context) ([]Location, error) {
	if !p.Available() {
		return nil, nil
	}
	return p.locate(ctx, p.candidates(p.env))
}
