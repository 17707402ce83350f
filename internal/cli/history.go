package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/history"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// HistoryCmd shows and manages the log of completed cleanups.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past cleanups",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show lifetime totals",
	Args:  cobra.NoArgs,
	RunE:  runHistoryTotals,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every history entry",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	HistoryCmd.Flags().Int("limit", 20, "Show at most N entries (0 for all)")
	HistoryCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	historyClearCmd.Flags().Bool("force", false, "Skip confirmation prompt")

	HistoryCmd.AddCommand(historyTotalsCmd)
	HistoryCmd.AddCommand(historyClearCmd)
}

func withHistory(loader *config.Loader, fn func(a *app, svc *history.Service) error) error {
	a, err := newApp(loader)
	if err != nil {
		return err
	}
	svc, err := a.history()
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = svc.Close() }()
	return fn(a, svc)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	return runHistoryListWithLoader(newLoader(), limit, jsonFlag)
}

func runHistoryListWithLoader(loader *config.Loader, limit int, jsonOutput bool) error {
	return withHistory(loader, func(a *app, svc *history.Service) error {
		entries, err := svc.List(a.ctx, limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			if entries == nil {
				entries = []history.Entry{}
			}
			return writeJSON(os.Stdout, entries)
		}

		if len(entries) == 0 {
			fmt.Println("No cleanups recorded")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.Timestamp.Local().Format("2006-01-02 15:04"),
				size.Format(e.BytesFreed),
				size.Count(e.FilesDeleted),
				fmt.Sprint(e.Errors),
				e.Duration.Round(time.Millisecond).String(),
				strings.Join(e.ProvidersUsed, ", "),
				e.BackupID,
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
			Headers("When", "Freed", "Files", "Errors", "Took", "Providers", "Backup").
			Rows(rows...)

		fmt.Println(t)
		return nil
	})
}

func runHistoryTotals(cmd *cobra.Command, _ []string) error {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	return runHistoryTotalsWithLoader(newLoader(), jsonFlag)
}

func runHistoryTotalsWithLoader(loader *config.Loader, jsonOutput bool) error {
	return withHistory(loader, func(a *app, svc *history.Service) error {
		totals, err := svc.Totals(a.ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(os.Stdout, totals)
		}

		if totals.Runs == 0 {
			fmt.Println("No cleanups recorded")
			return nil
		}
		fmt.Println(totalStyle.Render(fmt.Sprintf("Freed %s in %s", size.Format(totals.BytesFreed), plural(int(totals.Runs), "cleanup"))))
		fmt.Printf("Files deleted:       %s\n", size.Count(totals.FilesDeleted))
		fmt.Printf("Directories deleted: %s\n", size.Count(totals.DirectoriesDeleted))
		fmt.Printf("Errors:              %s\n", size.Count(totals.Errors))
		fmt.Printf("First cleanup:       %s\n", humanize.Time(totals.First))
		fmt.Printf("Last cleanup:        %s\n", humanize.Time(totals.Last))
		return nil
	})
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	return runHistoryClearWithLoader(newLoader(), force, os.Stdin)
}

func runHistoryClearWithLoader(loader *config.Loader, force bool, stdin io.Reader) error {
	return withHistory(loader, func(a *app, svc *history.Service) error {
		if !force && !confirm("Delete all cleanup history?", stdin) {
			fmt.Println("Aborted")
			return nil
		}
		if err := svc.Clear(a.ctx); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	})
}
