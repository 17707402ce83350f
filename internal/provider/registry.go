package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Automaat/shader-buster/internal/cache"
	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/logging"
)

// Factory creates a provider for env using cfg.
type Factory func(env Env, cfg *config.Config) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func init() {
	for _, b := range builtins {
		mustRegister(b.name, b.factory)
	}
	mustRegister("steam", NewSteamProvider)
	mustRegister("custom", NewCustomProvider)
}

// Register adds a provider factory under name. Names must be unique.
func Register(name string, f Factory) error {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

func mustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns every registered provider name, sorted.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates a registered provider by name, applying any priority override.
func NewProvider(name string, env Env, cfg *config.Config) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	p, err := factory(env, cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", name, err)
	}

	if cfg != nil {
		if settings := cfg.ProviderSettings(name); settings.Priority != 0 {
			if s, ok := p.(interface{ SetPriority(int) }); ok {
				s.SetPriority(settings.Priority)
			}
		}
	}
	return p, nil
}

// LoadProviders creates all enabled providers from config.
func LoadProviders(env Env, cfg *config.Config) ([]Provider, error) {
	var providers []Provider

	for _, name := range Names() {
		if cfg != nil && !cfg.ProviderSettings(name).Enabled {
			continue
		}
		p, err := NewProvider(name, env, cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return providers, nil
}

// Warning records a provider whose discovery failed. Other providers are unaffected.
type Warning struct {
	Err      error
	Provider string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Provider, w.Err)
}

// Discovery is the aggregated result of one discovery pass.
type Discovery struct {
	Locations []Location
	Warnings  []Warning
}

// Registry aggregates providers in priority order.
type Registry struct {
	fs        fsys.FS
	providers []Provider
}

// NewRegistry creates a registry. Providers are ordered by priority, then name.
func NewRegistry(f fsys.FS, providers ...Provider) *Registry {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() < sorted[j].Priority()
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return &Registry{fs: f, providers: sorted}
}

// Providers returns the providers in discovery order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// DiscoverAll runs every available provider sequentially, isolates failures as
// warnings, and drops locations whose canonical path was already seen.
func (r *Registry) DiscoverAll(ctx context.Context) Discovery {
	log := logging.FromContext(ctx)
	var out Discovery
	seen := make(map[string]string)

	for _, p := range r.providers {
		if ctx.Err() != nil {
			out.Warnings = append(out.Warnings, Warning{Provider: p.Name(), Err: ctx.Err()})
			break
		}
		if !p.Available() {
			log.Debug().Str("provider", p.Name()).Msg("provider unavailable on this platform")
			continue
		}

		locs, err := discoverSafely(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("discovery failed")
			out.Warnings = append(out.Warnings, Warning{Provider: p.Name(), Err: err})
			continue
		}

		for _, loc := range locs {
			key := fsys.Canonical(r.fs, loc.Path)
			if owner, dup := seen[key]; dup {
				log.Debug().Str("path", loc.Path).Str("provider", p.Name()).Str("kept", owner).Msg("duplicate location")
				continue
			}
			seen[key] = p.Name()
			out.Locations = append(out.Locations, loc)
		}
	}

	return out
}

func discoverSafely(ctx context.Context, p Provider) (locs []Location, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			locs = nil
			err = fmt.Errorf("panic during discovery: %v", rec)
		}
	}()
	return p.Discover(ctx)
}

// Measure returns copies of locs with EstimatedSize and Items filled in.
// Trees are walked in parallel; unreadable entries become warnings.
// The walk stops early when ctx is done or tok is cancelled.
func (r *Registry) Measure(ctx context.Context, tok *cancel.Token, locs []Location) ([]Location, []cache.AccessError, error) {
	roots := make([]string, len(locs))
	for i, loc := range locs {
		roots[i] = loc.Path
	}

	results, err := cache.MeasureAll(ctx, r.fs, roots, tok)
	if err != nil {
		return nil, nil, err
	}

	measured := make([]Location, len(locs))
	var warnings []cache.AccessError
	for i, loc := range locs {
		loc.EstimatedSize = results[i].Bytes
		loc.Items = results[i].Items()
		measured[i] = loc
		warnings = append(warnings, results[i].Warnings...)
	}
	return measured, warnings, nil
}
