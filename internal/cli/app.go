package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/Automaat/shader-buster/internal/backup"
	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/gate"
	"github.com/Automaat/shader-buster/internal/history"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/notify"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/internal/validate"
	"github.com/rs/zerolog"
)

const (
	lockedRetries = 3
	retryDelay    = time.Second
)

// ConfigPath overrides the settings file location when set, e.g. by --config.
var ConfigPath string

func newLoader() *config.Loader {
	loader := config.NewLoader()
	if ConfigPath != "" {
		loader.SetConfigPath(ConfigPath)
	}
	return loader
}

// app holds the collaborators shared by every command.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	loader *config.Loader
	fs     *fsys.OS
	env    provider.Env
}

// newApp loads settings and builds the logger and host environment.
// Corrupt settings are returned as-is so the user sees which file is broken.
func newApp(loader *config.Loader) (*app, error) {
	cfg, created, err := loader.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewFromValues(cfg.Log.Level, cfg.Log.Format)
	ctx := logging.WithContext(context.Background(), logger)
	return newAppWith(ctx, loader, cfg, created)
}

func newAppWith(ctx context.Context, loader *config.Loader, cfg *config.Config, created bool) (*app, error) {
	log := logging.FromContext(ctx)
	path, _ := loader.ConfigPath()
	if created {
		log.Info().Str("path", path).Msg("created default config")
	}
	if from := loader.MigratedFrom(); from > 0 {
		log.Info().Str("path", path).Int("from", from).Int("to", config.CurrentSchemaVersion).Msg("migrated config")
	}

	fs := fsys.NewOS()
	env, err := provider.HostEnv(fs)
	if err != nil {
		return nil, err
	}
	return &app{ctx: ctx, cfg: cfg, loader: loader, fs: fs, env: env}, nil
}

// quiet drops log output below error, for --quiet runs.
func (a *app) quiet() {
	logger := logging.FromContext(a.ctx).Level(zerolog.ErrorLevel)
	a.ctx = logging.WithContext(a.ctx, logger)
}

// providers loads the enabled providers named in args, or all of them.
func (a *app) providers(args []string, all bool) ([]provider.Provider, error) {
	loaded, err := provider.LoadProviders(a.env, a.cfg)
	if err != nil {
		return nil, err
	}

	available := make([]string, 0, len(loaded))
	byName := make(map[string]provider.Provider, len(loaded))
	for _, p := range loaded {
		if p.Available() {
			available = append(available, p.Name())
			byName[p.Name()] = p
		}
	}
	sort.Strings(available)

	if len(args) == 0 && !all {
		return nil, fmt.Errorf("specify providers or use --all\nAvailable: %s", strings.Join(available, ", "))
	}
	if all {
		out := make([]provider.Provider, 0, len(available))
		for _, name := range available {
			out = append(out, byName[name])
		}
		return out, nil
	}

	var out []provider.Provider
	var invalid []string
	for _, name := range args {
		p, ok := byName[name]
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		out = append(out, p)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("unknown providers: %s\nAvailable: %s",
			strings.Join(invalid, ", "), strings.Join(available, ", "))
	}
	return out, nil
}

func (a *app) validator() *validate.Service {
	return validate.New(a.fs)
}

func (a *app) backups() (*backup.Service, error) {
	root, err := a.cfg.BackupRoot()
	if err != nil {
		return nil, fmt.Errorf("backup root: %w", err)
	}
	return backup.NewService(a.fs, root, a.validator()), nil
}

func (a *app) history() (*history.Service, error) {
	path, err := a.cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("history path: %w", err)
	}
	return history.Open(a.ctx, path, a.cfg.History.MaxEntries)
}

func (a *app) gate() *gate.Gate {
	return gate.New(a.fs, gate.DefaultProtected(runtime.GOOS, a.env.Home, os.Getenv))
}

// orchestrator wires a cleanup orchestrator. The returned closer releases the history store.
func (a *app) orchestrator() (*cleanup.Orchestrator, io.Closer, error) {
	headroom, err := a.cfg.HeadroomBytes()
	if err != nil {
		return nil, nil, err
	}
	backups, err := a.backups()
	if err != nil {
		return nil, nil, err
	}
	notifier, err := notify.FromConfig(a.cfg.Notify)
	if err != nil {
		return nil, nil, err
	}
	hist, err := a.history()
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}

	orch := cleanup.New(cleanup.Deps{
		FS:            a.fs,
		Gate:          a.gate(),
		Validator:     a.validator(),
		Backups:       backups,
		History:       hist,
		Notifier:      notifier,
		Headroom:      headroom,
		LockedRetries: lockedRetries,
		RetryDelay:    retryDelay,
	})
	return orch, hist, nil
}
