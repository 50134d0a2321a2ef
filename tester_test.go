package harness_utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webcc-dev/harness-utils/test_case_harness"
	"github.com/webcc-dev/harness-utils/tester_definition"
)

func passingDefinition() tester_definition.TesterDefinition {
	return tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{
				Slug:     "noop",
				Timeout:  10 * time.Second,
				TestFunc: func(h *test_case_harness.TestCaseHarness) error { return nil },
			},
		},
	}
}

func TestParseArgs_Positional(t *testing.T) {
	args := ParseArgs([]string{"hello-node"})
	assert.Equal(t, "hello-node", args.Stage)
}

func TestParseArgs_Flags(t *testing.T) {
	args := ParseArgs([]string{"--stage", "hello-node", "--dir", "/src/project"})
	assert.Equal(t, "hello-node", args.Stage)
	assert.Equal(t, "/src/project", args.Dir)

	args = ParseArgs([]string{"-s", "hello-node", "-d", "/src/project"})
	assert.Equal(t, "hello-node", args.Stage)
	assert.Equal(t, "/src/project", args.Dir)
}

func TestParseArgs_FlagWinsOverPositional(t *testing.T) {
	args := ParseArgs([]string{"--stage", "from-flag", "from-positional"})
	assert.Equal(t, "from-flag", args.Stage)
}

func TestParseArgs_HelpAndVersion(t *testing.T) {
	assert.True(t, ParseArgs([]string{"--help"}).Help)
	assert.True(t, ParseArgs([]string{"-h"}).Help)
	assert.True(t, ParseArgs([]string{"--version"}).Version)
	assert.True(t, ParseArgs([]string{"-v"}).Version)
}

func TestMergeArgsIntoEnv(t *testing.T) {
	env := map[string]string{"WCTEST_VERBOSE": "1"}

	merged := MergeArgsIntoEnv(CLIArgs{Stage: "hello", Dir: "/src"}, env)
	assert.Equal(t, "hello", merged["WCTEST_STAGE"])
	assert.Equal(t, "/src", merged["WCTEST_REPOSITORY_DIR"])
	assert.Equal(t, "1", merged["WCTEST_VERBOSE"])

	// The input map stays untouched.
	_, ok := env["WCTEST_STAGE"]
	assert.False(t, ok)
}

func TestMergeArgsIntoEnv_EmptyArgsAddNothing(t *testing.T) {
	merged := MergeArgsIntoEnv(CLIArgs{}, map[string]string{})
	_, hasStage := merged["WCTEST_STAGE"]
	_, hasDir := merged["WCTEST_REPOSITORY_DIR"]
	assert.False(t, hasStage)
	assert.False(t, hasDir)
}

func TestRunCLI_PassingStage(t *testing.T) {
	code := RunCLI(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
		"WCTEST_TEMP_DIR":       t.TempDir(),
	}, passingDefinition())

	assert.Equal(t, 0, code)
}

func TestRunCLI_UnknownStage(t *testing.T) {
	code := RunCLI(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
		"WCTEST_STAGE":          "nonexistent",
	}, passingDefinition())

	assert.Equal(t, 1, code)
}

func TestRunCLI_FailingStage(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{
				Slug:    "fails",
				Timeout: 10 * time.Second,
				TestFunc: func(h *test_case_harness.TestCaseHarness) error {
					return assert.AnError
				},
			},
		},
	}

	code := RunCLI(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
		"WCTEST_TEMP_DIR":       t.TempDir(),
	}, definition)

	assert.Equal(t, 1, code)
}
