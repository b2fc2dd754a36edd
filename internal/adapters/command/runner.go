// Package command provides command execution adapters for validation.command
// checks (spec.md §5: adapters may enforce their own timeouts on shell-outs
// used for optional validation.command; failures surface as step-level
// errors, never as fatal plan-time errors).
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// RealRunner executes a validation.command string through the platform
// shell, exactly as an operator typing it at a terminal would.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes command via "sh -c" and captures its result. A non-zero
// exit is reported in the result, not returned as an error — only a
// failure to start the shell itself (missing /bin/sh, broken exec) is an
// error (spec.md §6: ValidationError is raised by the caller once it
// sees a non-zero ExitCode, not by this adapter).
func (r *RealRunner) Run(ctx context.Context, command string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
