package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Commander runs an OS query command and returns its stdout.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Exec runs commands through os/exec with a per-call timeout.
type Exec struct {
	Timeout time.Duration
}

// Run executes name with args and captures its output.
// A non-zero exit, a timeout or a missing binary is an *OSQueryError.
func (e Exec) Run(ctx context.Context, name string, args ...string) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	query := name + " " + strings.Join(args, " ")
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), &OSQueryError{Query: query, Err: fmt.Errorf("timed out after %s", e.Timeout)}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = exitErr.Error()
		}
		return stdout.String(), &OSQueryError{Query: query, Err: fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), msg)}
	}
	return stdout.String(), &OSQueryError{Query: query, Err: err}
}
