package provider

import (
	"context"
)

// Kind tags the source of a cache location.
type Kind string

const (
	KindGPUVendor Kind = "gpu-vendor"
	KindLauncher  Kind = "launcher"
	KindEngine    Kind = "engine"
	KindBrowser   Kind = "browser"
	KindSystem    Kind = "system"
	KindCustom    Kind = "custom"
)

// Location is one directory whose contents may be reclaimed.
// Values are never mutated after a provider returns them; the registry works on copies.
type Location struct {
	Path          string `json:"path"`
	Provider      string `json:"provider"`
	Display       string `json:"display"`
	Kind          Kind   `json:"kind"`
	Priority      int    `json:"priority"`
	EstimatedSize int64  `json:"estimated_size"`
	Items         int64  `json:"items"`
}

// Provider defines the interface for cache location sources.
type Provider interface {
	// Name returns the provider's identifier, used as the config key.
	Name() string

	// Display returns a human-readable name.
	Display() string

	// Kind returns the category of caches this provider finds.
	Kind() Kind

	// Priority orders discovery and duplicate resolution. Lower runs first and wins.
	Priority() int

	// Available reports whether the provider applies to the current platform.
	Available() bool

	// Discover returns the existing cache directories. Missing roots yield no
	// locations and no error. Discover never modifies the filesystem.
	Discover(ctx context.Context) ([]Location, error)
}
