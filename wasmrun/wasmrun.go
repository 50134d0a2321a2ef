// Package wasmrun runs standalone .wasm artifacts in-process under wazero
// with WASI, replacing the external wasm VM subprocesses a toolchain test
// suite would otherwise need installed.
package wasmrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Result holds the output of one wasm run.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Options controls one run.
type Options struct {
	Args    []string // argv[1:]; argv[0] is always "test.wasm"
	Env     map[string]string
	Stdin   io.Reader
	Timeout time.Duration // zero means 30s
	FSDir   string        // host directory mounted read-only at /
}

// Validate compiles the module without running it, catching malformed
// artifacts cheaply.
func Validate(wasmBytes []byte) error {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("invalid wasm module: %w", err)
	}
	return compiled.Close(ctx)
}

// Run instantiates the module and runs its _start export to completion.
// A non-zero WASI exit is not an error; it is reported in Result.ExitCode.
func Run(ctx context.Context, wasmBytes []byte, opts Options) (Result, error) {
	start := time.Now()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	defer rt.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	var output bytes.Buffer
	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&output).
		WithStderr(&output).
		WithArgs(append([]string{"test.wasm"}, opts.Args...)...).
		WithName("test")
	if opts.Stdin != nil {
		moduleConfig = moduleConfig.WithStdin(opts.Stdin)
	}
	for key, value := range opts.Env {
		moduleConfig = moduleConfig.WithEnv(key, value)
	}
	if opts.FSDir != "" {
		moduleConfig = moduleConfig.WithFSConfig(
			wazero.NewFSConfig().WithReadOnlyDirMount(opts.FSDir, "/"))
	}

	result := Result{}
	_, err := rt.InstantiateWithConfig(ctx, wasmBytes, moduleConfig)
	result.Output = output.String()
	result.Duration = time.Since(start)

	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			// The runtime reports a context-triggered close as an ExitError
			// with a sentinel code; don't mistake it for a program exit.
			switch exitErr.ExitCode() {
			case sys.ExitCodeDeadlineExceeded:
				return result, fmt.Errorf("wasm run timed out after %v", timeout)
			case sys.ExitCodeContextCanceled:
				return result, ctx.Err()
			}
			result.ExitCode = int(exitErr.ExitCode())
			return result, nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("wasm run timed out after %v", timeout)
		}
		return result, fmt.Errorf("wasm run failed: %w", err)
	}
	return result, nil
}
