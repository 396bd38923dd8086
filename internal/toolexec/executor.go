package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// Result captures a finished process. A process killed by a signal has
// ExitCode -1 and Signal set.
type Result struct {
	ExitCode int
	Signal   string
	Output   []byte
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor abstracts command execution for testability. Run returns an error
// only when the process could not be started or ctx was cancelled; a non-zero
// exit status or death by signal is reported through Result.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// CommandExecutor runs binaries with os/exec in the current working
// directory, merging stdout and stderr.
type CommandExecutor struct{}

// Run implements Executor.
func (CommandExecutor) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := Result{Output: output.Bytes()}
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			result.Signal = status.Signal().String()
		}
		return result, nil
	}
	return result, fmt.Errorf("start %s: %w", binary, err)
}
