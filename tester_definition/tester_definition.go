package tester_definition

import (
	"time"

	"github.com/webcc-dev/harness-utils/test_case_harness"
)

// TestCase is one stage of the suite: compile something with the external
// toolchain and check its behavior.
type TestCase struct {
	// Slug identifies the test case. Example: "hello-node"
	Slug string

	// Timeout bounds the whole test function, compile included.
	Timeout time.Duration

	TestFunc func(harness *test_case_harness.TestCaseHarness) error

	// RequiresBrowser marks btests; they are skipped when WCTEST_BROWSER=0.
	RequiresBrowser bool

	// IsSlow marks tests skipped under WCTEST_SKIP_SLOW.
	IsSlow bool
}

func (t TestCase) TimeoutOrDefault() time.Duration {
	if t.Timeout == 0 {
		return 120 * time.Second
	}
	return t.Timeout
}

// TesterDefinition is the full table of test cases a tester binary ships.
type TesterDefinition struct {
	TestCases []TestCase
}

func (d TesterDefinition) TestCaseBySlug(slug string) TestCase {
	for _, testCase := range d.TestCases {
		if testCase.Slug == slug {
			return testCase
		}
	}
	return TestCase{}
}
