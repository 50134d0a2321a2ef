package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webcc-dev/harness-utils/executable"
	"github.com/webcc-dev/harness-utils/logger"
)

const defaultBuildTimeoutInMilliseconds = 120_000

// Toolchain is the external compiler front door. It never inspects source;
// it only assembles command lines and propagates failures.
type Toolchain struct {
	CC  string // C compiler driver, e.g. "emcc"
	CXX string // C++ compiler driver, e.g. "em++"

	BuildTimeoutInMilliseconds int

	Logger *logger.Logger
}

// New returns a Toolchain using the given driver paths. Empty strings fall
// back to the conventional driver names, resolved via PATH at build time.
func New(cc, cxx string, lg *logger.Logger) *Toolchain {
	if cc == "" {
		cc = "emcc"
	}
	if cxx == "" {
		cxx = "em++"
	}
	return &Toolchain{
		CC:                         cc,
		CXX:                        cxx,
		BuildTimeoutInMilliseconds: defaultBuildTimeoutInMilliseconds,
		Logger:                     lg,
	}
}

// CompilerFor picks the driver from the source suffix. forceC compiles
// C++-suffixed sources as C.
func (tc *Toolchain) CompilerFor(filename string, forceC bool) string {
	if forceC {
		return tc.CC
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cc", ".cxx", ".cpp":
		return tc.CXX
	default:
		return tc.CC
	}
}

// Unsuffixed strips the extension from a filename.
func Unsuffixed(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// BuildRequest describes one compile-and-link invocation.
type BuildRequest struct {
	Source     string
	Output     string // defaults to Unsuffixed(Source) + ".js"
	WorkingDir string

	Settings  *Settings
	Args      []string // extra driver flags, appended after settings
	Includes  []string // -I directories
	Libraries []string // extra inputs linked after the main source
	ForceC    bool
}

// CompileError carries the driver's combined output for a failed build.
type CompileError struct {
	Source string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: %s\n%s", e.Source, e.Err, e.Output)
}

// Build runs the compiler and returns the produced output path (relative to
// the request's working directory).
func (tc *Toolchain) Build(req BuildRequest) (string, error) {
	output := req.Output
	if output == "" {
		output = Unsuffixed(filepath.Base(req.Source)) + ".js"
	}

	args := []string{req.Source, "-o", output}
	if req.ForceC {
		args = append(args, "-xc")
	}
	if req.Settings != nil {
		args = append(args, req.Settings.Serialize()...)
	}
	args = append(args, req.Args...)
	// The test's own directory is always on the include path.
	args = append(args, "-I.")
	for _, include := range req.Includes {
		args = append(args, "-I"+include)
	}
	args = append(args, req.Libraries...)

	compiler := tc.CompilerFor(req.Source, req.ForceC)
	if tc.Logger != nil {
		tc.Logger.Debugf("$ %s %s", compiler, strings.Join(args, " "))
	}

	e := executable.NewExecutable(compiler)
	e.WorkingDir = req.WorkingDir
	e.TimeoutInMilliseconds = tc.BuildTimeoutInMilliseconds

	result, err := e.Run(args...)
	combined := string(result.Stdout) + string(result.Stderr)
	if err != nil {
		return "", &CompileError{Source: req.Source, Output: combined, Err: err}
	}
	if result.ExitCode != 0 {
		return "", &CompileError{
			Source: req.Source,
			Output: combined,
			Err:    fmt.Errorf("compiler exited with code %d", result.ExitCode),
		}
	}

	outputPath := output
	if req.WorkingDir != "" && !filepath.IsAbs(output) {
		outputPath = filepath.Join(req.WorkingDir, output)
	}
	if _, statErr := os.Stat(outputPath); statErr != nil {
		return "", &CompileError{
			Source: req.Source,
			Output: combined,
			Err:    fmt.Errorf("compiler succeeded but %s was not produced", output),
		}
	}
	return output, nil
}
