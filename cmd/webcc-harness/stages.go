package main

import (
	"time"

	"github.com/webcc-dev/harness-utils/btest"
	"github.com/webcc-dev/harness-utils/runner"
	"github.com/webcc-dev/harness-utils/test_case_harness"
	"github.com/webcc-dev/harness-utils/tester_definition"
	"github.com/webcc-dev/harness-utils/toolchain"
)

const helloSource = `#include <stdio.h>

int main() {
  printf("hello, world!\n");
  return 0;
}
`

const reportResultSource = `int main() {
  REPORT_RESULT(42);
  return 0;
}
`

// sanityDefinition is the built-in stage table: enough to tell a broken
// toolchain or harness setup apart from a broken test suite.
func sanityDefinition() tester_definition.TesterDefinition {
	return tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{
				Slug:     "toolchain-sanity",
				Timeout:  30 * time.Second,
				TestFunc: testToolchainSanity,
			},
			{
				Slug:     "hello-node",
				Timeout:  120 * time.Second,
				TestFunc: testHelloNode,
			},
			{
				Slug:            "browser-report-result",
				Timeout:         120 * time.Second,
				TestFunc:        testBrowserReportResult,
				RequiresBrowser: true,
			},
		},
	}
}

func testToolchainSanity(h *test_case_harness.TestCaseHarness) error {
	return runner.Run(h.WorkingDir, h.Toolchain.CC, "--version").
		WithLogger(h.Logger).
		Execute().
		Exit(0).
		Error()
}

func testHelloNode(h *test_case_harness.TestCaseHarness) error {
	if err := h.CreateFile("hello.c", helloSource); err != nil {
		return err
	}

	r := runner.Compile(h.Toolchain, toolchain.BuildRequest{
		Source:     "hello.c",
		WorkingDir: h.WorkingDir,
	}).WithLogger(h.Logger)

	for _, engine := range h.JSEngines() {
		r = r.UnderEngine(engine).Stdout("hello, world!")
	}
	return r.Error()
}

func testBrowserReportResult(h *test_case_harness.TestCaseHarness) error {
	if err := h.CreateFile("report.c", reportResultSource); err != nil {
		return err
	}

	return h.Browser.Btest(btest.Request{
		Dir:      h.WorkingDir,
		Source:   "report.c",
		Expected: []string{"42"},
	})
}
