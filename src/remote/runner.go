// Package remote drives a target host through the ssh, scp and rsync
// binaries. A Host holds no connection state; every operation is a fresh
// process bounded by the caller's context.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"

	"ci-deployer/src/apperr"
)

// Runner executes a local program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		c.Env = append(c.Environ(), r.Env...)
	}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	c.Stdout = out
	c.Stderr = errOut

	err := c.Run()
	line := commandLine(name, args)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out.Bytes(), fmt.Errorf("%w: %w", apperr.ErrRemoteTimeout, errors.Wrapf(ctx.Err(), "running %s", line))
	}
	if err != nil {
		if msg := findErrorMessage(errOut); msg != "" {
			err = errors.New(msg)
		}
		return out.Bytes(), fmt.Errorf("%w: %w", apperr.ErrRemoteOperation, errors.Wrapf(err, "running %s", line))
	}
	return out.Bytes(), nil
}

// findErrorMessage returns the last non-blank stderr line with terminal
// escapes removed; ssh and rsync put the reason there.
func findErrorMessage(output *bytes.Buffer) string {
	lines := strings.Split(ansi.Strip(output.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// commandLine renders the invocation the way a shell would need it typed.
func commandLine(name string, args []string) string {
	return shellescape.QuoteCommand(append([]string{name}, args...))
}
