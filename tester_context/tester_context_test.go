package tester_context

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webcc-dev/harness-utils/test_case_harness"
	"github.com/webcc-dev/harness-utils/tester_definition"
)

func noopTestFunc(h *test_case_harness.TestCaseHarness) error { return nil }

func TestDefaultRepositoryDir(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	context, err := GetTesterContext(map[string]string{}, definition)

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, ".", context.RepositoryDir)
}

func TestDefaultRunAllStages(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
			{Slug: "hello-node", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	context, err := GetTesterContext(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
	}, definition)

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, 2, len(context.TestCases))
	assert.Equal(t, "hello", context.TestCases[0].Slug)
	assert.Equal(t, "stage-1", context.TestCases[0].TesterLogPrefix)
	assert.Equal(t, "Hello", context.TestCases[0].Title)
	assert.Equal(t, "hello-node", context.TestCases[1].Slug)
	assert.Equal(t, "stage-2", context.TestCases[1].TesterLogPrefix)
	assert.Equal(t, "Hello Node", context.TestCases[1].Title)
}

func TestSingleStageMode(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
			{Slug: "hello-node", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	context, err := GetTesterContext(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
		"WCTEST_STAGE":          "hello-node",
	}, definition)

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, 1, len(context.TestCases))
	assert.Equal(t, "hello-node", context.TestCases[0].Slug)
	assert.Equal(t, "stage-2", context.TestCases[0].TesterLogPrefix)
}

func TestSingleStageMode_NotFound(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	_, err := GetTesterContext(map[string]string{
		"WCTEST_REPOSITORY_DIR": t.TempDir(),
		"WCTEST_STAGE":          "nonexistent",
	}, definition)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSuccessParsingTestCases(t *testing.T) {
	context, err := GetTesterContext(map[string]string{
		"WCTEST_TEST_CASES_JSON": `[{ "slug": "test", "tester_log_prefix": "test", "title": "Test"}]`,
		"WCTEST_REPOSITORY_DIR":  t.TempDir(),
	}, tester_definition.TesterDefinition{})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, len(context.TestCases), 1)
	assert.Equal(t, context.TestCases[0].Slug, "test")
	assert.Equal(t, context.TestCases[0].TesterLogPrefix, "test")
	assert.Equal(t, context.TestCases[0].Title, "Test")
}

func TestFailureParsingTestCases(t *testing.T) {
	_, err := GetTesterContext(map[string]string{
		"WCTEST_TEST_CASES_JSON": `[{ "slug": "test" }]`,
		"WCTEST_REPOSITORY_DIR":  t.TempDir(),
	}, tester_definition.TesterDefinition{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty tester_log_prefix")
}

func TestJSONModeTakesPrecedence(t *testing.T) {
	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
			{Slug: "hello-node", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	context, err := GetTesterContext(map[string]string{
		"WCTEST_TEST_CASES_JSON": `[{ "slug": "custom", "tester_log_prefix": "custom", "title": "Custom"}]`,
		"WCTEST_REPOSITORY_DIR":  t.TempDir(),
		"WCTEST_STAGE":           "hello",
	}, definition)

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, 1, len(context.TestCases))
	assert.Equal(t, "custom", context.TestCases[0].Slug)
}

func TestDebugFlagFromYAML(t *testing.T) {
	repositoryDir := t.TempDir()
	err := os.WriteFile(filepath.Join(repositoryDir, "webcc.yml"), []byte("debug: true\n"), 0o644)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	context, err := GetTesterContext(map[string]string{
		"WCTEST_REPOSITORY_DIR": repositoryDir,
	}, definition)

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.True(t, context.IsDebug)
}

func TestInvalidYAML(t *testing.T) {
	repositoryDir := t.TempDir()
	err := os.WriteFile(filepath.Join(repositoryDir, "webcc.yml"), []byte("debug: [unclosed\n"), 0o644)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	definition := tester_definition.TesterDefinition{
		TestCases: []tester_definition.TestCase{
			{Slug: "hello", Timeout: 10 * time.Second, TestFunc: noopTestFunc},
		},
	}

	_, err = GetTesterContext(map[string]string{
		"WCTEST_REPOSITORY_DIR": repositoryDir,
	}, definition)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webcc.yml")
}

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		slug     string
		expected string
	}{
		{"hello", "Hello"},
		{"hello-node", "Hello Node"},
		{"browser-report-result", "Browser Report Result"},
	}

	for _, tc := range tests {
		result := formatTitle(tc.slug)
		assert.Equal(t, tc.expected, result, "slug=%s", tc.slug)
	}
}
