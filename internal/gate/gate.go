// Package gate decides whether a path may be deleted. Every cache deletion
// goes through Gate.Remove; backup housekeeping removes only its own snapshots.
package gate

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Automaat/shader-buster/internal/fsys"
)

// ErrDenied is wrapped by every DeniedError.
var ErrDenied = errors.New("deletion denied")

// DeniedError reports a path the gate refused.
type DeniedError struct {
	Path     string
	Resolved string
	Reason   string
}

func (e *DeniedError) Error() string {
	if e.Resolved != "" && e.Resolved != e.Path {
		return fmt.Sprintf("%s (resolves to %s): %s", e.Path, e.Resolved, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// Protected lists the roots the gate refuses to touch.
type Protected struct {
	// Trees are denied together with everything below them.
	Trees []string
	// Exact roots are denied only when targeted directly; their descendants are allowed.
	Exact []string
}

// Decision is the result of a gate check.
type Decision struct {
	Resolved string
	Reason   string
	Allowed  bool
}

// Gate checks candidate paths against the protected roots.
type Gate struct {
	fs    fsys.FS
	trees []string
	exact []string
}

// New creates a gate. Protected roots are canonicalized so links to them are caught.
func New(f fsys.FS, p Protected) *Gate {
	g := &Gate{fs: f}
	for _, root := range p.Trees {
		if root != "" {
			g.trees = append(g.trees, fsys.Canonical(f, root))
		}
	}
	for _, root := range p.Exact {
		if root != "" {
			g.exact = append(g.exact, fsys.Canonical(f, root))
		}
	}
	return g
}

// Permits decides whether path may be deleted. Links are followed before the
// comparison, so a path that resolves into a protected tree is denied.
func (g *Gate) Permits(path string) Decision {
	if path == "" {
		return Decision{Reason: "empty path"}
	}
	if !filepath.IsAbs(path) {
		return Decision{Reason: "path is not absolute"}
	}

	return g.decide(fsys.Canonical(g.fs, path))
}

func (g *Gate) decide(resolved string) Decision {
	for _, root := range g.exact {
		if samePath(resolved, root) {
			return Decision{Resolved: resolved, Reason: fmt.Sprintf("protected root %s", root)}
		}
	}
	for _, root := range g.trees {
		if fsys.Within(root, resolved) {
			return Decision{Resolved: resolved, Reason: fmt.Sprintf("inside protected tree %s", root)}
		}
	}

	return Decision{Resolved: resolved, Allowed: true}
}

// PermitsEntry decides whether the directory entry at path may be removed.
// Only the parent is resolved: a link entry names the link itself, not its target.
func (g *Gate) PermitsEntry(path string) Decision {
	if path == "" {
		return Decision{Reason: "empty path"}
	}
	if !filepath.IsAbs(path) {
		return Decision{Reason: "path is not absolute"}
	}

	clean := filepath.Clean(path)
	parent := filepath.Dir(clean)
	if parent == clean {
		return g.decide(fsys.Canonical(g.fs, clean))
	}
	return g.decide(filepath.Join(fsys.Canonical(g.fs, parent), filepath.Base(clean)))
}

// Check returns a *DeniedError when path may not be deleted.
func (g *Gate) Check(path string) error {
	return denial(path, g.Permits(path))
}

// Remove deletes a single file, link or empty directory after checking it.
// It never removes recursively.
func (g *Gate) Remove(path string) error {
	if err := denial(path, g.PermitsEntry(path)); err != nil {
		return err
	}
	return g.fs.Remove(path)
}

func denial(path string, d Decision) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Path: path, Resolved: d.Resolved, Reason: d.Reason}
}

func samePath(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
