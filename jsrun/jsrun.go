// Package jsrun runs toolchain-produced JavaScript under external JS
// engines (node, d8, jsc) and asserts on the exit code.
package jsrun

import (
	"fmt"
	"strings"

	"github.com/webcc-dev/harness-utils/executable"
)

// NonZero, passed as AssertReturnCode, means "any non-zero exit is the
// expected outcome" (tests that exercise aborts or traps).
const NonZero = -2

const defaultRunTimeoutInMilliseconds = 60_000

// Engine is one JS engine invocation template. Cmd is the engine command
// line (binary plus fixed flags); Args are per-suite extra flags, placed
// before the script path.
type Engine struct {
	Name string
	Cmd  []string
	Args []string
}

// Options controls one script run.
type Options struct {
	Args                  []string // script arguments, after the script path
	AssertReturnCode      int      // expected exit code, or NonZero
	TimeoutInMilliseconds int
	WorkingDir            string
	Env                   []string
}

// ExitError reports an exit code that contradicts the expectation.
type ExitError struct {
	Engine   string
	Script   string
	Expected int
	Actual   int
	Output   string
}

func (e *ExitError) Error() string {
	if e.Expected == NonZero {
		return fmt.Sprintf("%s unexpectedly succeeded running %s. Output:\n%s", e.Engine, e.Script, e.Output)
	}
	return fmt.Sprintf("%s exited with code %d running %s (expected %d). Output:\n%s",
		e.Engine, e.Actual, e.Script, e.Expected, e.Output)
}

// Run executes jsFile under the engine and returns combined stdout+stderr.
// Output containing "strict warning:" fails the run regardless of exit code.
func Run(engine Engine, jsFile string, opts Options) (string, error) {
	if len(engine.Cmd) == 0 {
		return "", fmt.Errorf("engine %q has no command configured", engine.Name)
	}

	timeout := opts.TimeoutInMilliseconds
	if timeout <= 0 {
		timeout = defaultRunTimeoutInMilliseconds
	}

	e := executable.NewExecutable(engine.Cmd[0])
	e.WorkingDir = opts.WorkingDir
	e.TimeoutInMilliseconds = timeout
	e.Env = opts.Env

	args := append([]string{}, engine.Cmd[1:]...)
	args = append(args, engine.Args...)
	args = append(args, jsFile)
	args = append(args, opts.Args...)

	result, err := e.Run(args...)
	output := string(result.Stdout) + string(result.Stderr)
	if err != nil {
		return output, fmt.Errorf("running %s under %s: %w", jsFile, engine.Name, err)
	}

	if opts.AssertReturnCode == NonZero {
		if result.ExitCode == 0 {
			return output, &ExitError{Engine: engine.Name, Script: jsFile, Expected: NonZero, Actual: 0, Output: output}
		}
	} else if result.ExitCode != opts.AssertReturnCode {
		return output, &ExitError{
			Engine:   engine.Name,
			Script:   jsFile,
			Expected: opts.AssertReturnCode,
			Actual:   result.ExitCode,
			Output:   output,
		}
	}

	if strings.Contains(output, "strict warning:") {
		return output, fmt.Errorf("%s emitted a strict warning running %s", engine.Name, jsFile)
	}
	return output, nil
}

// Filter drops banned engines (by name) from the list.
func Filter(engines []Engine, banned []string) []Engine {
	isBanned := func(name string) bool {
		for _, b := range banned {
			if b == name {
				return true
			}
		}
		return false
	}

	var out []Engine
	for _, engine := range engines {
		if !isBanned(engine.Name) {
			out = append(out, engine)
		}
	}
	return out
}
