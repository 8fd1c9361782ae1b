package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner runs an external command and waits for it. dir is the working
// directory of the child process; "" means the current one.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecutionError describes a command that exited with a non-zero status.
type ExecutionError struct {
	Backend  Backend
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func asExecutionError(err error) (*ExecutionError, bool) {
	var execErr *ExecutionError
	ok := errors.As(err, &execErr)
	return execErr, ok
}

// ExecRunner runs commands with os/exec. Stderr is captured for error
// reports and, when Stderr is set, streamed there as well.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = &captured
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&captured, r.Stderr)
	}

	if r.Logger != nil {
		r.Logger.DebugContext(ctx, "running command", "command", name, "dir", dir)
	}
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExecutionError{
			Command:  name,
			ExitCode: exitErr.ExitCode(),
			Stderr:   captured.String(),
		}
	}
	return fmt.Errorf("failed to start %s: %w", name, err)
}

// LookupExecutable resolves the backend tool through PATH. When the tool
// cannot be found the bare name is returned so the CI server resolves it
// through its own PATH at build time.
func LookupExecutable(b Backend) string {
	path, err := exec.LookPath(string(b))
	if err != nil {
		return string(b)
	}
	return path
}
