package test_runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/webcc-dev/harness-utils/btest"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/test_case_harness"
	"github.com/webcc-dev/harness-utils/tester_definition"
	"github.com/webcc-dev/harness-utils/toolchain"
)

// TestRunnerStep is one test case to run, paired with how its logs and title
// should be presented.
type TestRunnerStep struct {
	// TestCase is the test case that'll be run against the project under test.
	TestCase tester_definition.TestCase

	// TesterLogPrefix is the prefix that'll be used for all logs emitted while
	// running this step. Example: "stage-1"
	TesterLogPrefix string

	// Title is the title of the step. Example: "Stage #1: Hello, node"
	Title string
}

// TestRunner runs a list of steps in order and reports the overall result.
type TestRunner struct {
	steps     []TestRunnerStep
	isQuiet   bool // Used for anti-noise runs where only critical logs matter
	config    config.Config
	toolchain *toolchain.Toolchain
}

func NewTestRunner(steps []TestRunnerStep, cfg config.Config, tc *toolchain.Toolchain) TestRunner {
	return TestRunner{
		steps:     steps,
		config:    cfg,
		toolchain: tc,
	}
}

func NewQuietTestRunner(steps []TestRunnerStep, cfg config.Config, tc *toolchain.Toolchain) TestRunner {
	return TestRunner{
		steps:     steps,
		isQuiet:   true,
		config:    cfg,
		toolchain: tc,
	}
}

// Run runs all steps and returns true if all of them pass. Steps after a
// failing step are not run.
//
// A single browser harness session is shared by all browser steps: the page
// polls for one command at a time, so starting a browser per step would only
// add flakiness.
func (r TestRunner) Run(isDebug bool) bool {
	var session *btest.Session

	if r.anyStepRequiresBrowser() {
		lg := r.getLogger(isDebug, "[harness] ")

		var err error
		session, err = btest.NewSession(r.config, r.toolchain, lg)
		if err != nil {
			lg.Criticalf("failed to start browser harness: %v", err)
			return false
		}
		defer session.Close()
	}

	for _, step := range r.steps {
		if r.config.SkipSlow && step.TestCase.IsSlow {
			stepLogger := r.getLogger(isDebug, fmt.Sprintf("[%s] ", step.TesterLogPrefix))
			stepLogger.Infof("Skipped (slow test).")
			continue
		}

		if !r.runStep(step, session, isDebug) {
			r.reportTestError(isDebug)
			return false
		}
	}

	return true
}

func (r TestRunner) anyStepRequiresBrowser() bool {
	for _, step := range r.steps {
		if step.TestCase.RequiresBrowser {
			return true
		}
	}
	return false
}

func (r TestRunner) runStep(step TestRunnerStep, session *btest.Session, isDebug bool) bool {
	stepLogger := r.getLogger(isDebug, fmt.Sprintf("[%s] ", step.TesterLogPrefix))
	stepLogger.Infof("Running test: %s", step.Title)

	harness, err := test_case_harness.New(stepLogger, r.config, r.toolchain, step.TestCase.Slug)
	if err != nil {
		stepLogger.Criticalf("failed to set up test directory: %v", err)
		return false
	}
	harness.Browser = session

	stepResultChannel := make(chan error, 1)
	go func() {
		stepResultChannel <- step.TestCase.TestFunc(harness)
	}()

	timeout := step.TestCase.TimeoutOrDefault()

	var testErr error
	select {
	case testErr = <-stepResultChannel:
	case <-time.After(timeout):
		testErr = fmt.Errorf("timed out, test exceeded %d seconds", int64(timeout.Seconds()))
	}

	if teardownErr := harness.Teardown(); teardownErr != nil && testErr == nil {
		testErr = teardownErr
	}

	var skipErr *btest.SkipError
	if errors.As(testErr, &skipErr) {
		stepLogger.Infof("Skipped: %s", skipErr.Reason)
		return true
	}

	if testErr != nil {
		stepLogger.Errorf("%s", testErr)
		stepLogger.Criticalf("Test failed")
		return false
	}

	stepLogger.Successf("Test passed.")
	return true
}

func (r TestRunner) reportTestError(isDebug bool) {
	if isDebug {
		return
	}
	lg := r.getLogger(isDebug, "")
	lg.Plainln("")
	lg.Plainln("View the full build and test output by setting WCTEST_VERBOSE=1.")
}

func (r TestRunner) getLogger(isDebug bool, prefix string) *logger.Logger {
	if r.isQuiet {
		return logger.GetQuietLogger(prefix)
	}
	return logger.GetLogger(isDebug, prefix)
}
