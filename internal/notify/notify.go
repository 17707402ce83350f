// Package notify delivers run summaries to the user.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/kballard/go-shellquote"
)

// defaultTimeout bounds a notification command.
const defaultTimeout = 30 * time.Second

// Command runs an external command with the summary appended as its last argument.
// Run details are also exported as SHADER_BUSTER_* environment variables.
type Command struct {
	args    []string
	Timeout time.Duration
}

// NewCommand parses a shell-style command line.
func NewCommand(cmdline string) (*Command, error) {
	args, err := shellquote.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("invalid notify command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("notify command is empty")
	}
	return &Command{args: args, Timeout: defaultTimeout}, nil
}

// Notify implements cleanup.Notifier.
func (c *Command) Notify(ctx context.Context, r cleanup.Result) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.args[1:]...), r.Summary())
	cmd := exec.CommandContext(ctx, c.args[0], args...)
	cmd.Env = append(os.Environ(),
		"SHADER_BUSTER_STATUS="+r.Status.String(),
		"SHADER_BUSTER_FILES="+strconv.FormatInt(r.Stats.FilesDeleted, 10),
		"SHADER_BUSTER_BYTES="+strconv.FormatInt(r.Stats.BytesFreed, 10),
		"SHADER_BUSTER_ERRORS="+strconv.FormatInt(r.Stats.Errors, 10),
		"SHADER_BUSTER_DRY_RUN="+strconv.FormatBool(r.Stats.DryRun),
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(out.String())
		if output != "" {
			return fmt.Errorf("notify command: %w: %s", err, output)
		}
		return fmt.Errorf("notify command: %w", err)
	}
	return nil
}

// String returns the quoted command line.
func (c *Command) String() string {
	return shellquote.Join(c.args...)
}

// Log writes the summary to the context logger.
type Log struct{}

// Notify implements cleanup.Notifier.
func (Log) Notify(ctx context.Context, r cleanup.Result) error {
	logging.FromContext(ctx).Info().Str("status", r.Status.String()).Msg(r.Summary())
	return nil
}

// Multi fans a summary out to several notifiers and joins their errors.
type Multi []cleanup.Notifier

// Notify implements cleanup.Notifier.
func (m Multi) Notify(ctx context.Context, r cleanup.Result) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the configured notifier. The log notifier is always included.
func FromConfig(cfg config.Notify) (cleanup.Notifier, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return Log{}, nil
	}
	cmd, err := NewCommand(cfg.Command)
	if err != nil {
		return nil, err
	}
	return Multi{Log{}, cmd}, nil
}
