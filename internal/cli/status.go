package cli

import (
	"fmt"
	"os"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// LocationStatus is one discovered cache location.
type LocationStatus struct {
	Provider string `json:"provider"`
	Display  string `json:"display"`
	Path     string `json:"path"`
	Size     string `json:"size"`
	Bytes    int64  `json:"bytes"`
	Items    int64  `json:"items"`
}

// StatusOutput holds full status output for JSON serialization.
type StatusOutput struct {
	Total      string           `json:"total"`
	Locations  []LocationStatus `json:"locations"`
	Warnings   []string         `json:"warnings,omitempty"`
	TotalBytes int64            `json:"total_bytes"`
}

// StatusCmd shows the cache locations every enabled provider finds.
var StatusCmd = &cobra.Command{
	Use:   "status [providers...]",
	Short: "Show discovered shader caches and their sizes",
	RunE:  runStatus,
}

func init() {
	StatusCmd.Flags().Bool("json", false, "Output in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	return runStatusWithLoader(newLoader(), args, jsonFlag)
}

func runStatusWithLoader(loader *config.Loader, args []string, jsonOutput bool) error {
	a, err := newApp(loader)
	if err != nil {
		return err
	}

	providers, err := a.providers(args, len(args) == 0)
	if err != nil {
		return err
	}

	status, err := scanLocations(a, providers)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, status)
	}
	return outputTable(status)
}

// scanLocations discovers and measures without touching anything.
func scanLocations(a *app, providers []provider.Provider) (StatusOutput, error) {
	reg := provider.NewRegistry(a.fs, providers...)
	discovery := reg.DiscoverAll(a.ctx)

	locs, _, err := reg.Measure(a.ctx, nil, discovery.Locations)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("measure caches: %w", err)
	}

	out := StatusOutput{Locations: make([]LocationStatus, 0, len(locs))}
	for _, loc := range locs {
		out.TotalBytes += loc.EstimatedSize
		out.Locations = append(out.Locations, LocationStatus{
			Provider: loc.Provider,
			Display:  loc.Display,
			Path:     loc.Path,
			Size:     size.Format(loc.EstimatedSize),
			Bytes:    loc.EstimatedSize,
			Items:    loc.Items,
		})
	}
	for _, w := range discovery.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	out.Total = size.Format(out.TotalBytes)
	return out, nil
}

func outputTable(status StatusOutput) error {
	for _, w := range status.Warnings {
		fmt.Println(errorStyle.Render("warning: " + w))
	}
	if len(status.Locations) == 0 {
		fmt.Println("No shader caches found")
		return nil
	}

	rows := make([][]string, 0, len(status.Locations))
	for _, s := range status.Locations {
		rows = append(rows, []string{s.Display, s.Size, size.Count(s.Items), dimStyle.Render(s.Path)})
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
		Headers("Cache", "Size", "Items", "Path").
		Rows(rows...)

	fmt.Println(t)
	fmt.Println()
	fmt.Println(totalStyle.Render(fmt.Sprintf("Total: %s in %s", status.Total, plural(len(status.Locations), "location"))))

	return nil
}
