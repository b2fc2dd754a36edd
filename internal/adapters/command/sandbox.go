package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// SandboxRunner executes a component's validation.command inside a WASI
// sandbox when the command names a .wasm module, and falls through to a
// plain shell-out otherwise. A manifest author opts a validation step
// into the sandbox by pointing validation.command at a compiled WASI
// binary instead of a shell command — untrusted validation logic then
// runs with no filesystem or network access, generalizing the plugin
// isolation the engine otherwise reserves for WASM plugin payloads.
type SandboxRunner struct {
	shell ports.CommandRunner

	mu      sync.Mutex
	runtime wazero.Runtime
}

// NewSandboxRunner creates a SandboxRunner that falls back to shell for
// any validation.command that is not a .wasm path.
func NewSandboxRunner(shell ports.CommandRunner) *SandboxRunner {
	return &SandboxRunner{shell: shell}
}

// Run executes command. When command names an existing .wasm file it is
// run inside an isolated wazero runtime with WASI stdio wired to
// in-memory buffers and no filesystem preopens; otherwise it is handed
// to the shell runner unchanged.
func (r *SandboxRunner) Run(ctx context.Context, command string) (ports.CommandResult, error) {
	path, args := splitWasmCommand(command)
	if path == "" {
		return r.shell.Run(ctx, command)
	}
	return r.runWASI(ctx, path, args)
}

// splitWasmCommand returns (path, args) when command's first word is a
// readable file ending in ".wasm", or ("", nil) otherwise.
func splitWasmCommand(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	if !strings.HasSuffix(fields[0], ".wasm") {
		return "", nil
	}
	if _, err := os.Stat(fields[0]); err != nil {
		return "", nil
	}
	return fields[0], fields[1:]
}

func (r *SandboxRunner) runWASI(ctx context.Context, path string, args []string) (ports.CommandResult, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return ports.CommandResult{}, fmt.Errorf("read wasm module %s: %w", path, err)
	}

	rt, err := r.runtimeFor(ctx)
	if err != nil {
		return ports.CommandResult{}, err
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs(append([]string{path}, args...)...)

	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		return ports.CommandResult{}, fmt.Errorf("compile wasm module %s: %w", path, err)
	}
	defer func() { _ = compiled.Close(ctx) }()

	result := ports.CommandResult{}
	_, err = rt.InstantiateModule(ctx, compiled, cfg)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	if err != nil {
		// A WASI program's exit code surfaces as a sys.ExitError wrapped
		// inside wazero's instantiation error; anything else is treated
		// as exit code 1 rather than propagated as a fatal Go error, so
		// the caller can still distinguish "validation failed" from
		// "validation command itself is broken".
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = int(exitErr.ExitCode())
		} else {
			result.ExitCode = 1
		}
	}
	return result, nil
}

func (r *SandboxRunner) runtimeFor(ctx context.Context) (wazero.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runtime != nil {
		return r.runtime, nil
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	r.runtime = rt
	return rt, nil
}

// Close releases the sandbox's wazero runtime, if one was created.
func (r *SandboxRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runtime == nil {
		return nil
	}
	err := r.runtime.Close(ctx)
	r.runtime = nil
	return err
}

// Ensure SandboxRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*SandboxRunner)(nil)
