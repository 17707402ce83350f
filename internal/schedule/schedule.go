// Package schedule renders OS scheduler entries that run an unattended cleanup.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// TaskName identifies the Windows scheduled task.
const TaskName = "ShaderBusterCleanup"

// Frequency is how often the cleanup runs.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency accepts daily, weekly or monthly in any case.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("invalid frequency %q (want daily, weekly or monthly)", s)
}

// Job describes an unattended run.
type Job struct {
	// Binary is the absolute path of the executable to invoke.
	Binary    string
	Frequency Frequency
	// At is the time of day as HH:MM.
	At      string
	Args    []string
	Weekday time.Weekday
}

// DefaultArgs are the clean flags used by scheduled runs.
var DefaultArgs = []string{"clean", "--all", "--force", "--quiet"}

func (s Job) command() []string {
	args := s.Args
	if len(args) == 0 {
		args = DefaultArgs
	}
	return append([]string{s.Binary}, args...)
}

func (s Job) clock() (int, int, error) {
	t, err := time.Parse("15:04", s.At)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM): %w", s.At, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Render returns the scheduler entry for goos: a crontab line on unix
// systems, a schtasks command on Windows.
func Render(goos string, s Job) (string, error) {
	if s.Binary == "" {
		return "", fmt.Errorf("binary path is required")
	}
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return "", err
	}
	hour, minute, err := s.clock()
	if err != nil {
		return "", err
	}

	if goos == "windows" {
		return renderSchtasks(s, hour, minute), nil
	}
	return renderCron(s, hour, minute), nil
}

func renderCron(s Job, hour, minute int) string {
	dom, dow := "*", "*"
	switch s.Frequency {
	case Weekly:
		dow = strconv.Itoa(int(s.Weekday))
	case Monthly:
		dom = "1"
	}
	return fmt.Sprintf("%d %d %s * %s %s", minute, hour, dom, dow, shellquote.Join(s.command()...))
}

func renderSchtasks(s Job, hour, minute int) string {
	args := []string{
		"schtasks", "/Create",
		"/TN", TaskName,
		"/TR", windowsCommand(s.command()),
		"/SC", strings.ToUpper(string(s.Frequency)),
		"/ST", fmt.Sprintf("%02d:%02d", hour, minute),
	}
	if s.Frequency == Weekly {
		args = append(args, "/D", strings.ToUpper(s.Weekday.String()[:3]))
	}
	args = append(args, "/F")
	return shellquote.Join(args...)
}

// windowsCommand quotes arguments the way cmd.exe expects inside /TR.
func windowsCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// RemoveCommand returns the command that deletes the Windows task, or a
// hint for unix crontabs.
func RemoveCommand(goos string) string {
	if goos == "windows" {
		return shellquote.Join("schtasks", "/Delete", "/TN", TaskName, "/F")
	}
	return "crontab -e  # delete the shader-buster line"
}
