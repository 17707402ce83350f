package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/pkg/size"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// CleanCmd deletes the contents of discovered shader cache locations.
var CleanCmd = &cobra.Command{
	Use:   "clean [providers...]",
	Short: "Delete shader and GPU caches",
	Long: `Delete the contents of shader cache locations found by the specified providers,
or by every enabled provider with --all. Cache roots are kept; only their contents are removed.`,
	RunE: runClean,
}

func init() {
	CleanCmd.Flags().Bool("all", false, "Clean all enabled providers")
	CleanCmd.Flags().Bool("dry-run", false, "Preview without deleting")
	CleanCmd.Flags().Bool("force", false, "Skip confirmation prompt")
	CleanCmd.Flags().Bool("quiet", false, "Minimal output")
	CleanCmd.Flags().Bool("json", false, "Output the result in JSON format")
	CleanCmd.Flags().Bool("backup", false, "Back up caches before deleting (default from backup.auto)")
	CleanCmd.Flags().String("dest", "", "Back up to this directory instead of backup.root")
}

// cleanFlags are the parsed clean options. backup is nil when the flag was not given.
type cleanFlags struct {
	backup *bool
	dest   string
	all    bool
	dryRun bool
	force  bool
	quiet  bool
	json   bool
}

func runClean(cmd *cobra.Command, args []string) error {
	var f cleanFlags
	f.all, _ = cmd.Flags().GetBool("all")
	f.dryRun, _ = cmd.Flags().GetBool("dry-run")
	f.force, _ = cmd.Flags().GetBool("force")
	f.quiet, _ = cmd.Flags().GetBool("quiet")
	f.json, _ = cmd.Flags().GetBool("json")
	f.dest, _ = cmd.Flags().GetString("dest")
	if cmd.Flags().Changed("backup") {
		b, _ := cmd.Flags().GetBool("backup")
		f.backup = &b
	}

	return runCleanWithLoader(newLoader(), args, f, os.Stdin)
}

func runCleanWithLoader(loader *config.Loader, args []string, f cleanFlags, stdin io.Reader) error {
	a, err := newApp(loader)
	if err != nil {
		return err
	}
	if f.quiet || f.json {
		a.quiet()
	}

	providers, err := a.providers(args, f.all)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return fmt.Errorf("no available providers to clean")
	}

	opts := cleanup.Options{
		DryRun:            f.dryRun,
		AutoBackup:        a.cfg.Backup.Auto,
		BackupDestination: f.dest,
	}
	if f.backup != nil {
		opts.AutoBackup = *f.backup
	}
	if f.dest != "" {
		opts.AutoBackup = true
	}

	if !f.force && !f.dryRun {
		if !confirmClean(providers, opts, stdin) {
			fmt.Println("Aborted")
			return nil
		}
	}

	orch, closer, err := a.orchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := executeClean(ctx, cleanup.NewRunner(orch), providers, opts, f)
	if err != nil {
		return err
	}

	switch {
	case f.json:
		if err := writeJSON(os.Stdout, newCleanReport(res)); err != nil {
			return err
		}
	case f.quiet:
		fmt.Println(size.Format(res.Stats.BytesFreed))
	default:
		printResult(os.Stdout, res)
	}

	if res.Status == cleanup.StatusBackupFailed {
		return res.Err
	}
	return nil
}

func confirmClean(providers []provider.Provider, opts cleanup.Options, stdin io.Reader) bool {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}

	suffix := ""
	if opts.AutoBackup {
		suffix = " with backup"
	}
	fmt.Printf("Delete caches of %d provider(s)%s: %s? [y/N]: ", len(providers), suffix, strings.Join(names, ", "))

	reader := bufio.NewReader(stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes"
}

// executeClean starts the run and waits for it, showing live progress on a
// terminal and phase lines otherwise. Interrupts cancel the run cooperatively.
func executeClean(ctx context.Context, runner *cleanup.Runner, providers []provider.Provider, opts cleanup.Options, f cleanFlags) (cleanup.Result, error) {
	live := !f.quiet && !f.json && isatty.IsTerminal(os.Stdout.Fd())

	var obs cleanup.Observer
	var updates *cleanup.ChannelObserver
	switch {
	case live:
		updates = cleanup.NewChannelObserver(64)
		obs = updates
	case !f.quiet && !f.json:
		obs = newLineObserver(os.Stdout)
	}

	handle, err := runner.Start(ctx, providers, opts, obs)
	if err != nil {
		return cleanup.Result{}, err
	}

	go func() {
		select {
		case <-ctx.Done():
			handle.Cancel()
		case <-handle.Done():
		}
	}()

	if live {
		if _, err := tea.NewProgram(newRunModel(handle, updates.C())).Run(); err != nil {
			handle.Cancel()
			return handle.Wait(), fmt.Errorf("run progress: %w", err)
		}
	}
	return handle.Wait(), nil
}
