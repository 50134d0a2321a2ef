package harness_utils

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/internal"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/random"
	"github.com/webcc-dev/harness-utils/test_runner"
	"github.com/webcc-dev/harness-utils/tester_context"
	"github.com/webcc-dev/harness-utils/tester_definition"
	"github.com/webcc-dev/harness-utils/toolchain"
)

type Tester struct {
	context    tester_context.TesterContext
	config     config.Config
	definition tester_definition.TesterDefinition
}

// newTester creates a Tester based on the TesterDefinition provided
func newTester(env map[string]string, definition tester_definition.TesterDefinition) (Tester, error) {
	context, err := tester_context.GetTesterContext(env, definition)
	if err != nil {
		if userError, ok := err.(*internal.UserError); ok {
			return Tester{}, fmt.Errorf("%s", userError.Message)
		}

		return Tester{}, fmt.Errorf("internal error. Error fetching tester context: %v", err)
	}

	cfg, err := config.FromEnv(env, context.RepositoryDir)
	if err != nil {
		if userError, ok := err.(*internal.UserError); ok {
			return Tester{}, fmt.Errorf("%s", userError.Message)
		}

		return Tester{}, fmt.Errorf("internal error. Error reading configuration: %v", err)
	}

	tester := Tester{
		context:    context,
		config:     cfg,
		definition: definition,
	}

	if err := tester.validateContext(); err != nil {
		return Tester{}, fmt.Errorf("internal error. Error validating tester context: %v", err)
	}

	return tester, nil
}

// CLIArgs holds parsed command-line arguments
type CLIArgs struct {
	Stage   string // Stage slug to run (empty = run all)
	Dir     string // Repository directory (empty = current dir)
	Help    bool   // Show help
	Version bool   // Show version
}

// ParseArgs parses command-line arguments
// Supports:
//   - ./tester [stage]           # positional argument
//   - ./tester --stage <slug>    # flag
//   - ./tester -d <dir>          # specify directory
func ParseArgs(args []string) CLIArgs {
	result := CLIArgs{}

	// Create a new FlagSet to avoid global state
	fs := flag.NewFlagSet("tester", flag.ContinueOnError)
	fs.StringVar(&result.Stage, "stage", "", "Stage slug to run")
	fs.StringVar(&result.Stage, "s", "", "Stage slug to run (shorthand)")
	fs.StringVar(&result.Dir, "dir", "", "Repository directory")
	fs.StringVar(&result.Dir, "d", "", "Repository directory (shorthand)")
	fs.BoolVar(&result.Help, "help", false, "Show help")
	fs.BoolVar(&result.Help, "h", false, "Show help (shorthand)")
	fs.BoolVar(&result.Version, "version", false, "Show version")
	fs.BoolVar(&result.Version, "v", false, "Show version (shorthand)")

	// Parse flags (ignore errors for unknown flags)
	fs.Parse(args)

	// If no --stage flag but there's a positional argument, use it as stage
	if result.Stage == "" && fs.NArg() > 0 {
		result.Stage = fs.Arg(0)
	}

	return result
}

// MergeArgsIntoEnv merges CLI args into env map (CLI args take precedence)
func MergeArgsIntoEnv(args CLIArgs, env map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range env {
		result[k] = v
	}

	if args.Stage != "" {
		result["WCTEST_STAGE"] = args.Stage
	}
	if args.Dir != "" {
		result["WCTEST_REPOSITORY_DIR"] = args.Dir
	}

	return result
}

// Run executes the tester with command-line arguments and environment
// This is the recommended entry point for tester main functions
//
// Usage:
//
//	os.Exit(harness_utils.Run(os.Args[1:], definition))
func Run(args []string, definition tester_definition.TesterDefinition) int {
	// When WCTEST_STREAM_LOGS=1, redirect stdout to stderr and disable colors
	// so a CI worker can capture all logs through one stream in real time.
	if os.Getenv("WCTEST_STREAM_LOGS") == "1" {
		os.Stdout = os.Stderr
		color.NoColor = true
	}

	cliArgs := ParseArgs(args)

	if cliArgs.Help {
		printUsage(definition)
		return 0
	}

	if cliArgs.Version {
		fmt.Println("webcc-harness v0.1.0")
		return 0
	}

	// Merge CLI args into environment (CLI takes precedence)
	env := getEnvMap()
	env = MergeArgsIntoEnv(cliArgs, env)

	return RunCLI(env, definition)
}

// getEnvMap converts os.Environ() to a map
func getEnvMap() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}

// printUsage prints help message
func printUsage(definition tester_definition.TesterDefinition) {
	fmt.Println("Usage: tester [options] [stage]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -s, --stage <slug>  Run a specific stage")
	fmt.Println("  -d, --dir <path>    Set repository directory (default: current dir)")
	fmt.Println("  -h, --help          Show this help message")
	fmt.Println("  -v, --version       Show version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tester              # Run all stages")
	fmt.Println("  tester hello        # Run 'hello' stage")
	fmt.Println("  tester -s hello     # Same as above")
	fmt.Println()
	fmt.Println("Available stages:")
	for _, tc := range definition.TestCases {
		fmt.Printf("  %s\n", tc.Slug)
	}
}

// RunCLI executes the tester based on user-provided env vars
func RunCLI(env map[string]string, definition tester_definition.TesterDefinition) int {
	random.Init()

	tester, err := newTester(env, definition)
	if err != nil {
		fmt.Println(err.Error())
		return 1
	}

	tester.printDebugContext()

	if !tester.runStages() {
		return 1
	}

	return 0
}

// printDebugContext is to be run as early as possible after creating a Tester
func (tester Tester) printDebugContext() {
	if !tester.isDebug() {
		return
	}

	tester.context.Print()
	fmt.Println("")
}

func (tester Tester) isDebug() bool {
	return tester.context.IsDebug || tester.config.Verbose
}

// runStages runs all the selected stages. Returns true if all stages pass.
func (tester Tester) runStages() bool {
	return tester.getRunner().Run(tester.isDebug())
}

func (tester Tester) getRunner() test_runner.TestRunner {
	steps := []test_runner.TestRunnerStep{}

	for _, testerContextTestCase := range tester.context.TestCases {
		definitionTestCase := tester.definition.TestCaseBySlug(testerContextTestCase.Slug)

		steps = append(steps, test_runner.TestRunnerStep{
			TestCase:        definitionTestCase,
			TesterLogPrefix: testerContextTestCase.TesterLogPrefix,
			Title:           testerContextTestCase.Title,
		})
	}

	return test_runner.NewTestRunner(steps, tester.config, tester.getToolchain())
}

func (tester Tester) getToolchain() *toolchain.Toolchain {
	buildLogger := logger.GetLogger(tester.isDebug(), "[build] ")
	return toolchain.New(tester.config.CC, tester.config.CXX, buildLogger)
}

func (tester Tester) validateContext() error {
	for _, testerContextTestCase := range tester.context.TestCases {
		testerDefinitionTestCase := tester.definition.TestCaseBySlug(testerContextTestCase.Slug)

		if testerDefinitionTestCase.Slug != testerContextTestCase.Slug {
			return fmt.Errorf("tester context does not have test case with slug %s", testerContextTestCase.Slug)
		}
	}

	return nil
}
