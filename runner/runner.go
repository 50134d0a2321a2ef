// Package runner provides a chainable API for running programs and checking
// their behavior: the external compiler, JS engines running compiled output,
// or arbitrary helper commands. The first failing step poisons the chain;
// later steps are skipped and Error() returns the failure.
//
// Blocking use:
//
//	runner.Run(dir, "node", "out.js").Execute().Stdout("hello").Exit(0)
//
// Compile-then-run use:
//
//	runner.Compile(tc, toolchain.BuildRequest{Source: "hello.c", WorkingDir: dir}).
//		UnderEngine(engine).Stdout("hello, world").Exit(0)
//
// Interactive use (long-lived artifacts):
//
//	r := runner.Run(dir, "./server").Start()
//	defer r.Kill()
//	r.SendLine("ping").WaitForExit().Exit(0)
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/webcc-dev/harness-utils/executable"
	"github.com/webcc-dev/harness-utils/jsrun"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/toolchain"
)

type Runner struct {
	workDir string
	command string
	args    []string
	env     []string
	timeout time.Duration
	usePty  bool
	logger  *logger.Logger

	artifact   string // output of a Compile step, relative to workDir
	executable *executable.Executable
	result     *executable.ExecutableResult
	err        error
	started    bool
}

// Run creates a Runner for a direct command invocation. Commands containing
// a path separator resolve relative to workDir; bare names resolve via PATH.
func Run(workDir string, command string, args ...string) *Runner {
	return &Runner{
		workDir: workDir,
		command: command,
		args:    args,
		timeout: 10 * time.Second,
	}
}

// Compile creates a Runner whose first step builds a source file with the
// toolchain. The produced artifact becomes the chain's subject.
func Compile(tc *toolchain.Toolchain, req toolchain.BuildRequest) *Runner {
	r := &Runner{
		workDir: req.WorkingDir,
		timeout: 10 * time.Second,
	}
	output, err := tc.Build(req)
	if err != nil {
		r.err = err
		return r
	}
	r.artifact = output
	return r
}

// Artifact returns the path (relative to the working directory) of the
// compiled output, if the chain began with Compile.
func (r *Runner) Artifact() string {
	return r.artifact
}

func (r *Runner) WithLogger(l *logger.Logger) *Runner {
	r.logger = l
	return r
}

func (r *Runner) WithTimeout(t time.Duration) *Runner {
	r.timeout = t
	return r
}

func (r *Runner) WithEnv(env ...string) *Runner {
	r.env = append(r.env, env...)
	return r
}

// WithPty runs the program attached to a pseudo-terminal.
func (r *Runner) WithPty() *Runner {
	r.usePty = true
	return r
}

func (r *Runner) createExecutable(command string) *executable.Executable {
	path := command
	if !filepath.IsAbs(path) && !strings.Contains(path, string(os.PathSeparator)) {
		// Bare name: a system command unless a file of that name exists in
		// the working directory.
		if info, err := os.Stat(filepath.Join(r.workDir, path)); err == nil && !info.IsDir() {
			path = "./" + path
		}
	}

	e := executable.NewExecutable(path)
	e.WorkingDir = r.workDir
	e.TimeoutInMilliseconds = int(r.timeout.Milliseconds())
	e.ShouldUsePty = r.usePty
	e.Env = r.env
	return e
}

// UnderEngine runs the chain's compiled artifact under a JS engine.
func (r *Runner) UnderEngine(engine jsrun.Engine, scriptArgs ...string) *Runner {
	if r.err != nil {
		return r
	}
	if r.artifact == "" {
		r.err = fmt.Errorf("no compiled artifact to run; start the chain with Compile")
		return r
	}

	if r.logger != nil {
		r.logger.Debugf("running %s under %s", r.artifact, engine.Name)
	}

	output, err := jsrun.Run(engine, r.artifact, jsrun.Options{
		Args:                  scriptArgs,
		WorkingDir:            r.workDir,
		TimeoutInMilliseconds: int(r.timeout.Milliseconds()),
		Env:                   r.env,
	})
	r.result = &executable.ExecutableResult{Stdout: []byte(output), ExitCode: 0}
	if err != nil {
		if exitErr, ok := err.(*jsrun.ExitError); ok {
			r.result.ExitCode = exitErr.Actual
		}
		r.err = err
	}
	return r
}

// Execute runs the program without input and waits for it to finish.
func (r *Runner) Execute() *Runner {
	if r.err != nil {
		return r
	}

	r.executable = r.createExecutable(r.command)
	result, err := r.executable.Run(r.args...)
	r.result = &result
	if err != nil && err != executable.ErrTimeout {
		r.err = err
	}
	return r
}

// Stdin runs the program feeding it the given input on stdin.
func (r *Runner) Stdin(input string) *Runner {
	if r.err != nil {
		return r
	}

	if r.logger != nil {
		r.logger.Debugf("sending input %q", input)
	}

	r.executable = r.createExecutable(r.command)
	result, err := r.executable.RunWithStdin([]byte(input+"\n"), r.args...)
	r.result = &result
	if err != nil && err != executable.ErrTimeout {
		r.err = err
	}
	return r
}

// Start launches the program without waiting (for long-lived artifacts).
func (r *Runner) Start() *Runner {
	if r.err != nil {
		return r
	}

	if r.logger != nil {
		r.logger.Debugf("starting %s", r.command)
	}

	r.executable = r.createExecutable(r.command)
	if err := r.executable.Start(r.args...); err != nil {
		r.err = err
		return r
	}
	r.started = true
	return r
}

// SendLine writes a line to a program launched with Start.
func (r *Runner) SendLine(input string) *Runner {
	if r.err != nil {
		return r
	}
	if !r.started {
		r.err = fmt.Errorf("program not started, call Start() first")
		return r
	}
	if err := r.executable.SendLine(input); err != nil {
		r.err = fmt.Errorf("failed to send input: %v", err)
	}
	return r
}

// WaitForExit waits for a Start()ed program to finish.
func (r *Runner) WaitForExit() *Runner {
	if r.err != nil {
		return r
	}
	if r.executable != nil && r.started {
		r.executable.CloseStdin()
		result, err := r.executable.Wait()
		r.result = &result
		if err != nil && err != executable.ErrTimeout {
			r.err = err
		}
		r.started = false
	}
	return r
}

// Kill terminates a Start()ed program.
func (r *Runner) Kill() *Runner {
	if r.executable != nil && r.started {
		r.executable.Kill()
		r.started = false
	}
	return r
}

// Stdout checks that standard output contains the expected string.
func (r *Runner) Stdout(expected string) *Runner {
	if r.err != nil {
		return r
	}
	if r.result == nil {
		r.err = fmt.Errorf("program not yet executed")
		return r
	}

	actual := normalizeOutput(string(r.result.Stdout))
	if expected != "" && !strings.Contains(actual, expected) {
		r.err = &Mismatch{
			Expected: expected,
			Actual:   actual,
			Message:  fmt.Sprintf("expected output to contain %q", expected),
		}
	}
	return r
}

// StdoutExact checks standard output for an exact match (modulo surrounding
// whitespace and line endings).
func (r *Runner) StdoutExact(expected string) *Runner {
	if r.err != nil {
		return r
	}
	if r.result == nil {
		r.err = fmt.Errorf("program not yet executed")
		return r
	}

	actual := strings.TrimSpace(normalizeOutput(string(r.result.Stdout)))
	expected = strings.TrimSpace(expected)
	if actual != expected {
		r.err = &Mismatch{Expected: expected, Actual: actual, Message: "output mismatch"}
	}
	return r
}

// StdoutRegex checks standard output against a regular expression.
func (r *Runner) StdoutRegex(pattern string) *Runner {
	if r.err != nil {
		return r
	}
	if r.result == nil {
		r.err = fmt.Errorf("program not yet executed")
		return r
	}

	actual := normalizeOutput(string(r.result.Stdout))
	re, err := regexp.Compile(pattern)
	if err != nil {
		r.err = fmt.Errorf("invalid regex pattern: %v", err)
		return r
	}
	if !re.MatchString(actual) {
		r.err = &Mismatch{
			Expected: pattern,
			Actual:   actual,
			Message:  fmt.Sprintf("expected output to match pattern %q", pattern),
		}
	}
	return r
}

// Exit checks the exit code.
func (r *Runner) Exit(code int) *Runner {
	if r.err != nil {
		return r
	}
	if r.result == nil {
		r.err = fmt.Errorf("program not yet executed")
		return r
	}

	if r.result.ExitCode != code {
		r.err = &ExitCodeMismatch{
			Expected: code,
			Actual:   r.result.ExitCode,
			Stdout:   normalizeOutput(string(r.result.Stdout)),
			Stderr:   normalizeOutput(string(r.result.Stderr)),
		}
	}
	return r
}

// Error returns the first failure accumulated by the chain, if any.
func (r *Runner) Error() error {
	return r.err
}

// Result returns the most recent execution result.
func (r *Runner) Result() *executable.ExecutableResult {
	return r.result
}

// GetStdout returns captured standard output with normalized line endings.
func (r *Runner) GetStdout() string {
	if r.result == nil {
		return ""
	}
	return normalizeOutput(string(r.result.Stdout))
}

// normalizeOutput undoes the \r\n translation PTYs apply.
func normalizeOutput(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Mismatch is an expected/actual output difference.
type Mismatch struct {
	Expected string
	Actual   string
	Message  string
}

func (m *Mismatch) Error() string {
	if m.Message != "" {
		return fmt.Sprintf("%s, got %q", m.Message, m.Actual)
	}
	return fmt.Sprintf("expected %q, got %q", m.Expected, m.Actual)
}

// ExitCodeMismatch is an unexpected exit code.
type ExitCodeMismatch struct {
	Expected int
	Actual   int
	Stdout   string
	Stderr   string
}

func (e *ExitCodeMismatch) Error() string {
	msg := fmt.Sprintf("expected exit code %d, got %d", e.Expected, e.Actual)
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nStderr: %s", e.Stderr)
	}
	return msg
}
