package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Automaat/shader-buster/internal/schedule"
	"github.com/spf13/cobra"
)

// ScheduleCmd prints OS scheduler entries for unattended cleanups.
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Set up automatic cleanups with cron or Task Scheduler",
}

var schedulePrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the crontab line or schtasks command for a scheduled cleanup",
	Args:  cobra.NoArgs,
	RunE:  runSchedulePrint,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Print how to remove the scheduled cleanup",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(schedule.RemoveCommand(runtime.GOOS))
	},
}

func init() {
	schedulePrintCmd.Flags().String("frequency", "weekly", "daily, weekly or monthly")
	schedulePrintCmd.Flags().String("at", "03:00", "Time of day as HH:MM")
	schedulePrintCmd.Flags().String("day", "sunday", "Day of week for weekly runs")
	schedulePrintCmd.Flags().Bool("backup", false, "Back up before each scheduled cleanup")

	ScheduleCmd.AddCommand(schedulePrintCmd)
	ScheduleCmd.AddCommand(scheduleRemoveCmd)
}

func runSchedulePrint(cmd *cobra.Command, _ []string) error {
	freq, _ := cmd.Flags().GetString("frequency")
	at, _ := cmd.Flags().GetString("at")
	day, _ := cmd.Flags().GetString("day")
	withBackup, _ := cmd.Flags().GetBool("backup")

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(binary); err == nil {
		binary = resolved
	}

	line, err := scheduleLine(runtime.GOOS, binary, freq, at, day, withBackup)
	if err != nil {
		return err
	}
	fmt.Println(line)
	return nil
}

func scheduleLine(goos, binary, freq, at, day string, withBackup bool) (string, error) {
	f, err := schedule.ParseFrequency(freq)
	if err != nil {
		return "", err
	}
	weekday, err := parseWeekday(day)
	if err != nil {
		return "", err
	}

	args := append([]string{}, schedule.DefaultArgs...)
	if withBackup {
		args = append(args, "--backup")
	}

	return schedule.Render(goos, schedule.Job{
		Binary:    binary,
		Frequency: f,
		At:        at,
		Weekday:   weekday,
		Args:      args,
	})
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", s)
}
