package tester_context

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/webcc-dev/harness-utils/internal"
	"github.com/webcc-dev/harness-utils/tester_definition"
	"gopkg.in/yaml.v2"
)

// TesterContextTestCase represents one element in the WCTEST_TEST_CASES_JSON
// environment variable.
type TesterContextTestCase struct {
	// Slug is the slug of the test case. Example: "hello-node"
	Slug string `json:"slug"`

	// TesterLogPrefix is the prefix used for all logs emitted while running
	// this test case. Example: "stage-1"
	TesterLogPrefix string `json:"tester_log_prefix"`

	// Title is the title of the test case. Example: "Stage #1: Hello, node"
	Title string `json:"title"`
}

// TesterContext holds all flags passed in via environment variables, or from
// the webcc.yml file in the repository under test.
type TesterContext struct {
	// RepositoryDir is the directory containing the project under test.
	RepositoryDir string

	IsDebug   bool
	TestCases []TesterContextTestCase
}

type yamlConfig struct {
	Debug bool `yaml:"debug"`
}

func (c TesterContext) Print() {
	fmt.Println("Debug =", c.IsDebug)
}

// GetTesterContext parses the environment and returns a TesterContext.
//
// Test case selection supports three modes, in priority order:
//  1. WCTEST_TEST_CASES_JSON holds the full list as JSON (CI scheduling).
//  2. WCTEST_STAGE names a single test case slug (local debugging).
//  3. Neither is set: run every test case in the definition.
//
// WCTEST_REPOSITORY_DIR defaults to the current directory.
func GetTesterContext(env map[string]string, definition tester_definition.TesterDefinition) (TesterContext, error) {
	repositoryDir, ok := env["WCTEST_REPOSITORY_DIR"]
	if !ok {
		repositoryDir = "."
	}

	var testCases []TesterContextTestCase
	var err error

	if testCasesJson, ok := env["WCTEST_TEST_CASES_JSON"]; ok {
		testCases, err = parseTestCasesFromJSON(testCasesJson)
		if err != nil {
			return TesterContext{}, err
		}
	} else if stageSlug, ok := env["WCTEST_STAGE"]; ok {
		testCases, err = buildTestCasesForStage(stageSlug, definition)
		if err != nil {
			return TesterContext{}, err
		}
	} else {
		testCases = buildTestCasesForAll(definition)
	}

	if len(testCases) == 0 {
		return TesterContext{}, fmt.Errorf("no test cases to run")
	}

	configPath := path.Join(repositoryDir, "webcc.yml")

	yamlConfig, err := readFromYAML(configPath)
	if err != nil {
		return TesterContext{}, err
	}

	return TesterContext{
		RepositoryDir: repositoryDir,
		IsDebug:       yamlConfig.Debug,
		TestCases:     testCases,
	}, nil
}

func parseTestCasesFromJSON(jsonStr string) ([]TesterContextTestCase, error) {
	testCases := []TesterContextTestCase{}
	if err := json.Unmarshal([]byte(jsonStr), &testCases); err != nil {
		return nil, fmt.Errorf("failed to parse WCTEST_TEST_CASES_JSON: %s", err)
	}

	for _, tc := range testCases {
		if tc.Slug == "" {
			return nil, fmt.Errorf("WCTEST_TEST_CASES_JSON contains a test case with an empty slug")
		}
		if tc.TesterLogPrefix == "" {
			return nil, fmt.Errorf("WCTEST_TEST_CASES_JSON contains a test case with an empty tester_log_prefix")
		}
		if tc.Title == "" {
			return nil, fmt.Errorf("WCTEST_TEST_CASES_JSON contains a test case with an empty title")
		}
	}

	return testCases, nil
}

func buildTestCasesForStage(stageSlug string, definition tester_definition.TesterDefinition) ([]TesterContextTestCase, error) {
	for i, tc := range definition.TestCases {
		if tc.Slug == stageSlug {
			return []TesterContextTestCase{
				{
					Slug:            tc.Slug,
					TesterLogPrefix: fmt.Sprintf("stage-%d", i+1),
					Title:           formatTitle(tc.Slug),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("stage %q not found in tester definition", stageSlug)
}

func buildTestCasesForAll(definition tester_definition.TesterDefinition) []TesterContextTestCase {
	testCases := make([]TesterContextTestCase, 0, len(definition.TestCases))
	for i, tc := range definition.TestCases {
		testCases = append(testCases, TesterContextTestCase{
			Slug:            tc.Slug,
			TesterLogPrefix: fmt.Sprintf("stage-%d", i+1),
			Title:           formatTitle(tc.Slug),
		})
	}
	return testCases
}

// formatTitle turns a slug into a readable title: "hello-node" -> "Hello Node".
func formatTitle(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func readFromYAML(configPath string) (yamlConfig, error) {
	c := &yamlConfig{}

	fileContents, err := os.ReadFile(configPath)
	if err != nil {
		// webcc.yml is optional.
		if os.IsNotExist(err) {
			return yamlConfig{Debug: false}, nil
		}
		return yamlConfig{}, &internal.UserError{
			Message: fmt.Sprintf("Can't read webcc.yml file: %v", err),
		}
	}

	if err := yaml.Unmarshal(fileContents, c); err != nil {
		return yamlConfig{}, &internal.UserError{
			Message: fmt.Sprintf("Error parsing webcc.yml: %s", err),
		}
	}

	return *c, nil
}
