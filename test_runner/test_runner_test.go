package test_runner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webcc-dev/harness-utils/btest"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/test_case_harness"
	"github.com/webcc-dev/harness-utils/tester_definition"
	"github.com/webcc-dev/harness-utils/toolchain"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Browser: "0", // never launch a real browser from unit tests
		TempDir: t.TempDir(),
	}
}

func step(slug string, fn func(*test_case_harness.TestCaseHarness) error) TestRunnerStep {
	return TestRunnerStep{
		TestCase: tester_definition.TestCase{
			Slug:     slug,
			Timeout:  10 * time.Second,
			TestFunc: fn,
		},
		TesterLogPrefix: slug,
		Title:           slug,
	}
}

func TestRun_AllPass(t *testing.T) {
	ran := 0
	runner := NewQuietTestRunner([]TestRunnerStep{
		step("one", func(h *test_case_harness.TestCaseHarness) error { ran++; return nil }),
		step("two", func(h *test_case_harness.TestCaseHarness) error { ran++; return nil }),
	}, testConfig(t), toolchain.New("", "", nil))

	assert.True(t, runner.Run(false))
	assert.Equal(t, 2, ran)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	laterRan := false
	runner := NewQuietTestRunner([]TestRunnerStep{
		step("fails", func(h *test_case_harness.TestCaseHarness) error { return errors.New("boom") }),
		step("later", func(h *test_case_harness.TestCaseHarness) error { laterRan = true; return nil }),
	}, testConfig(t), toolchain.New("", "", nil))

	assert.False(t, runner.Run(false))
	assert.False(t, laterRan)
}

func TestRun_Timeout(t *testing.T) {
	s := step("slow", func(h *test_case_harness.TestCaseHarness) error {
		time.Sleep(5 * time.Second)
		return nil
	})
	s.TestCase.Timeout = 100 * time.Millisecond

	runner := NewQuietTestRunner([]TestRunnerStep{s}, testConfig(t), toolchain.New("", "", nil))
	assert.False(t, runner.Run(false))
}

func TestRun_SkipSlow(t *testing.T) {
	slowRan := false
	s := step("slow", func(h *test_case_harness.TestCaseHarness) error { slowRan = true; return nil })
	s.TestCase.IsSlow = true

	cfg := testConfig(t)
	cfg.SkipSlow = true

	runner := NewQuietTestRunner([]TestRunnerStep{s}, cfg, toolchain.New("", "", nil))
	assert.True(t, runner.Run(false))
	assert.False(t, slowRan)
}

func TestRun_SkipErrorCountsAsPass(t *testing.T) {
	runner := NewQuietTestRunner([]TestRunnerStep{
		step("skipped", func(h *test_case_harness.TestCaseHarness) error {
			return &btest.SkipError{Reason: "no GPU available"}
		}),
	}, testConfig(t), toolchain.New("", "", nil))

	assert.True(t, runner.Run(false))
}

func TestRun_HarnessWorkingDirIsCleanedUp(t *testing.T) {
	var workingDir string
	runner := NewQuietTestRunner([]TestRunnerStep{
		step("dir", func(h *test_case_harness.TestCaseHarness) error {
			workingDir = h.WorkingDir
			return h.CreateFile("probe.txt", "x")
		}),
	}, testConfig(t), toolchain.New("", "", nil))

	assert.True(t, runner.Run(false))
	assert.NoDirExists(t, workingDir)
}

func TestRun_BrowserSessionSharedWithSteps(t *testing.T) {
	var session *btest.Session
	s := step("browser", func(h *test_case_harness.TestCaseHarness) error {
		session = h.Browser
		return nil
	})
	s.TestCase.RequiresBrowser = true

	runner := NewQuietTestRunner([]TestRunnerStep{s}, testConfig(t), toolchain.New("", "", nil))
	assert.True(t, runner.Run(false))
	assert.NotNil(t, session)
}
