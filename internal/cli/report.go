package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/pkg/size"
)

// maxListedErrors bounds the errors printed after a run.
const maxListedErrors = 10

// CleanReport is the JSON form of a finished run.
type CleanReport struct {
	Status    string              `json:"status"`
	Summary   string              `json:"summary"`
	Freed     string              `json:"freed"`
	BackupID  string              `json:"backup_id,omitempty"`
	Error     string              `json:"error,omitempty"`
	Locations []provider.Location `json:"locations"`
	Warnings  []string            `json:"warnings,omitempty"`
	Errors    []string            `json:"errors,omitempty"`
	Stats     cleanup.Stats       `json:"stats"`
}

func newCleanReport(r cleanup.Result) CleanReport {
	rep := CleanReport{
		Status:    r.Status.String(),
		Summary:   r.Summary(),
		Freed:     size.Format(r.Stats.BytesFreed),
		Locations: r.Locations,
		Stats:     r.Stats,
		Errors:    resultErrors(r),
	}
	if rep.Locations == nil {
		rep.Locations = []provider.Location{}
	}
	if r.Backup != nil {
		rep.BackupID = r.Backup.ID
	}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	for _, w := range r.Warnings {
		rep.Warnings = append(rep.Warnings, w.Error())
	}
	return rep
}

// resultErrors flattens rejections, denials and per-item failures.
func resultErrors(r cleanup.Result) []string {
	var out []string
	for _, rej := range r.Rejected {
		out = append(out, fmt.Sprintf("%s: %s", rej.Location.Path, rej.Reason))
	}
	for _, d := range r.Denied {
		out = append(out, d.Error())
	}
	for _, e := range r.ItemErrors {
		out = append(out, fmt.Sprintf("%s: %s", e.Path, e.Reason))
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resultHeadline(r cleanup.Result) string {
	switch r.Status {
	case cleanup.StatusBackupFailed:
		return failStyle.Render("Backup failed, nothing was deleted")
	case cleanup.StatusNothingToClean:
		return dimStyle.Render("Nothing to clean")
	case cleanup.StatusCancelled:
		return errorStyle.Render("Cancelled: " + r.Stats.String())
	}
	if r.Stats.DryRun {
		return totalStyle.Render("[dry-run] " + r.Stats.String())
	}
	return totalStyle.Render(fmt.Sprintf("Freed %s (%s)", size.Format(r.Stats.BytesFreed), r.Stats.String()))
}

// printResult writes the human-readable report of a run.
func printResult(w io.Writer, r cleanup.Result) {
	if len(r.Locations) > 0 {
		verb := "Cleaned"
		if r.Stats.DryRun {
			verb = "Would clean"
		}
		fmt.Fprintf(w, "%s %d location(s):\n", verb, len(r.Locations))
		for _, loc := range r.Locations {
			fmt.Fprintf(w, "  %-40s %10s  %s\n", loc.Display, size.Format(loc.EstimatedSize), dimStyle.Render(loc.Path))
		}
		fmt.Fprintln(w)
	}

	if r.Backup != nil {
		fmt.Fprintf(w, "Backup %s: %s in %s\n", r.Backup.ID, size.Format(r.Backup.TotalBytes), r.Backup.Root)
	}

	fmt.Fprintln(w, resultHeadline(r))
	if r.Err != nil {
		fmt.Fprintf(w, "  %v\n", r.Err)
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("warning:"), warn.Error())
	}

	errs := resultErrors(r)
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, errorStyle.Render("Errors:"))
	for i, e := range errs {
		if i == maxListedErrors {
			fmt.Fprintf(w, "  ... and %d more\n", int64(len(errs)-i)+extraErrors(r, len(errs)))
			return
		}
		fmt.Fprintf(w, "  %s\n", e)
	}
	if extra := extraErrors(r, len(errs)); extra > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", extra)
	}
}

// extraErrors counts errors that were tallied but not kept in the result.
func extraErrors(r cleanup.Result, listed int) int64 {
	if n := r.Stats.Errors - int64(listed); n > 0 {
		return n
	}
	return 0
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, strings.TrimSuffix(word, "s"))
}
