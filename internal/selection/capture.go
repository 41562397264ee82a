// Package selection reads the text the user currently has selected.
package selection

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

// ErrCaptureUnavailable means the selection could not be read at all, as
// opposed to nothing being selected.
var ErrCaptureUnavailable = errors.New("selection capture unavailable")

const (
	DefaultCommand = "wl-paste --primary"
	DefaultTimeout = 2 * time.Second
)

type Config struct {
	Command string
	Timeout time.Duration
}

// Capturer runs a clipboard tool and returns what it prints.
type Capturer struct {
	args    []string
	timeout time.Duration
}

func NewCapturer(cfg Config) (*Capturer, error) {
	command := cfg.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Capturer{args: args, timeout: timeout}, nil
}

// Capture returns the trimmed selection. An empty selection is "", nil; the
// clipboard tools report it through a non-zero exit status.
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.args[0], c.args[1:]...)
	out, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}

	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out after %s", ErrCaptureUnavailable, c.args[0], c.timeout)
		}
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logrus.Debugf("selection: %s exited with %d, nothing selected", c.args[0], exitErr.ExitCode())
		return "", nil
	}
	return "", fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
}
