package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Automaat/shader-buster/internal/backup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// BackupCmd manages snapshots taken before cleanups.
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "List, restore, verify and prune cache backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Copy a backup back to its original locations",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check a backup against its recorded checksums",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupVerify,
}

var backupRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRemove,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old backups (default age from backup.keep_for)",
	Args:  cobra.NoArgs,
	RunE:  runBackupPrune,
}

func init() {
	backupListCmd.Flags().Bool("json", false, "Output in JSON format")
	backupRestoreCmd.Flags().String("dest", "", "Restore under this directory instead of the original paths")
	backupRestoreCmd.Flags().Bool("force", false, "Skip confirmation prompt")
	backupPruneCmd.Flags().Int("keep", 0, "Keep only the newest N backups")
	backupPruneCmd.Flags().String("older-than", "", "Delete backups older than this, e.g. 30d or 2w")

	BackupCmd.AddCommand(backupListCmd)
	BackupCmd.AddCommand(backupRestoreCmd)
	BackupCmd.AddCommand(backupVerifyCmd)
	BackupCmd.AddCommand(backupRemoveCmd)
	BackupCmd.AddCommand(backupPruneCmd)
}

func openBackups(loader *config.Loader) (*app, *backup.Service, error) {
	a, err := newApp(loader)
	if err != nil {
		return nil, nil, err
	}
	svc, err := a.backups()
	if err != nil {
		return nil, nil, err
	}
	return a, svc, nil
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	return runBackupListWithLoader(newLoader(), jsonFlag)
}

func runBackupListWithLoader(loader *config.Loader, jsonOutput bool) error {
	a, svc, err := openBackups(loader)
	if err != nil {
		return err
	}

	records, err := svc.List(a.ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if records == nil {
			records = []backup.Record{}
		}
		return writeJSON(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Printf("No backups in %s\n", svc.Root())
		return nil
	}

	rows := make([][]string, 0, len(records))
	var total int64
	for _, rec := range records {
		total += rec.TotalBytes
		rows = append(rows, []string{
			rec.ID,
			humanize.Time(rec.CreatedAt),
			size.Format(rec.TotalBytes),
			size.Count(rec.FileCount),
			strings.Join(sourceProviders(rec), ", "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("ID", "Created", "Size", "Files", "Providers").
		Rows(rows...)

	fmt.Println(t)
	fmt.Println()
	fmt.Println(totalStyle.Render(fmt.Sprintf("Total: %s in %s", size.Format(total), plural(len(records), "backup"))))
	return nil
}

func sourceProviders(rec backup.Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, src := range rec.Sources {
		if src.Provider != "" && !seen[src.Provider] {
			seen[src.Provider] = true
			out = append(out, src.Provider)
		}
	}
	return out
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	force, _ := cmd.Flags().GetBool("force")
	return runBackupRestoreWithLoader(newLoader(), args[0], dest, force, os.Stdin)
}

func runBackupRestoreWithLoader(loader *config.Loader, id, dest string, force bool, stdin io.Reader) error {
	a, svc, err := openBackups(loader)
	if err != nil {
		return err
	}

	rec, err := svc.Get(id)
	if err != nil {
		return err
	}

	if !force {
		fmt.Printf("Restore %s (%s) to:\n", rec.ID, size.Format(rec.TotalBytes))
		for _, src := range rec.Sources {
			target := src.Original
			if dest != "" {
				target = filepath.Join(dest, src.Dir)
			}
			fmt.Printf("  %s\n", target)
		}
		if !confirm("Existing files will be overwritten. Continue?", stdin) {
			fmt.Println("Aborted")
			return nil
		}
	}

	res, err := svc.Restore(a.ctx, rec, dest)
	if err != nil {
		return fmt.Errorf("restore %s: %w", rec.ID, err)
	}
	fmt.Printf("Restored %s files (%s) to %s\n", size.Count(res.Files), size.Format(res.Bytes), plural(len(res.Targets), "location"))
	return nil
}

func runBackupVerify(_ *cobra.Command, args []string) error {
	return runBackupVerifyWithLoader(newLoader(), args[0])
}

var errBackupDamaged = errors.New("backup is damaged")

func runBackupVerifyWithLoader(loader *config.Loader, id string) error {
	_, svc, err := openBackups(loader)
	if err != nil {
		return err
	}

	rec, err := svc.Get(id)
	if err != nil {
		return err
	}

	problems, err := svc.Verify(rec)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		fmt.Printf("%s %s: %s files intact\n", okStyle.Render("ok"), rec.ID, size.Count(rec.FileCount))
		return nil
	}

	for _, p := range problems {
		fmt.Printf("  %s\n", p)
	}
	return fmt.Errorf("%w: %s", errBackupDamaged, plural(len(problems), "problem"))
}

func runBackupRemove(_ *cobra.Command, args []string) error {
	return runBackupRemoveWithLoader(newLoader(), args[0])
}

func runBackupRemoveWithLoader(loader *config.Loader, id string) error {
	_, svc, err := openBackups(loader)
	if err != nil {
		return err
	}
	if err := svc.Remove(id); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}

func runBackupPrune(cmd *cobra.Command, _ []string) error {
	keep, _ := cmd.Flags().GetInt("keep")
	olderThan, _ := cmd.Flags().GetString("older-than")
	return runBackupPruneWithLoader(newLoader(), keep, olderThan)
}

func runBackupPruneWithLoader(loader *config.Loader, keep int, olderThan string) error {
	a, svc, err := openBackups(loader)
	if err != nil {
		return err
	}

	opts := backup.PruneOptions{Keep: keep, OlderThan: a.cfg.KeepFor()}
	if olderThan != "" {
		d, err := config.ParseDuration(olderThan)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
		opts.OlderThan = d
	}
	if opts.Keep <= 0 && opts.OlderThan <= 0 {
		return fmt.Errorf("nothing to prune by: set --keep, --older-than or backup.keep_for")
	}

	removed, err := svc.Prune(a.ctx, opts)
	for _, rec := range removed {
		fmt.Printf("Removed %s (%s)\n", rec.ID, size.Format(rec.TotalBytes))
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Println("Nothing to prune")
	}
	return nil
}

func confirm(question string, stdin io.Reader) bool {
	fmt.Printf("%s [y/N]: ", question)
	var response string
	_, _ = fmt.Fscanln(stdin, &response)
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
