// Package config collects the WCTEST_* environment knobs and the optional
// webcc.yml file into one place. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/webcc-dev/harness-utils/jsrun"
	"gopkg.in/yaml.v2"
)

const (
	DefaultBrowserPort    = 8888
	DefaultBrowserTimeout = 60 * time.Second
)

// Config holds everything the harness reads from the environment.
type Config struct {
	// Browser is the command line used to open test pages. Empty means
	// "system default browser"; "0" disables browser runs entirely
	// (browser tests still compile).
	Browser        string
	BrowserPort    int
	BrowserTimeout time.Duration

	// SaveDir keeps per-test working directories: 0 = temp dirs deleted on
	// teardown, 1 = fixed dir cleared before each test, 2 = fixed dir kept.
	SaveDir int

	AllEngines          bool // run JS output under every engine, not just the first
	Verbose             bool
	SkipSlow            bool
	DetectTempfileLeaks bool

	CC  string // override compiler drivers
	CXX string

	NodeJS string // engine binaries; empty NodeJS defaults to "node"
	V8     string // empty means the engine is unavailable
	JSC    string

	NodeArgs []string
	V8Args   []string

	TempDir string
}

type yamlConfig struct {
	Toolchain struct {
		CC  string `yaml:"cc"`
		CXX string `yaml:"cxx"`
	} `yaml:"toolchain"`
	Engines struct {
		Node string `yaml:"node"`
		V8   string `yaml:"v8"`
		JSC  string `yaml:"jsc"`
	} `yaml:"engines"`
}

// FromEnv builds a Config from an environment map, consulting webcc.yml in
// repositoryDir for toolchain/engine paths not set in the environment.
func FromEnv(env map[string]string, repositoryDir string) (Config, error) {
	c := Config{
		Browser:        env["WCTEST_BROWSER"],
		BrowserPort:    DefaultBrowserPort,
		BrowserTimeout: DefaultBrowserTimeout,
		CC:             env["WCTEST_CC"],
		CXX:            env["WCTEST_CXX"],
		NodeJS:         env["WCTEST_NODE"],
		V8:             env["WCTEST_D8"],
		JSC:            env["WCTEST_JSC"],
		TempDir:        env["WCTEST_TEMP_DIR"],
	}

	if port, ok := env["WCTEST_BROWSER_PORT"]; ok {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WCTEST_BROWSER_PORT %q: %w", port, err)
		}
		c.BrowserPort = parsed
	}
	if timeout, ok := env["WCTEST_BROWSER_TIMEOUT"]; ok {
		parsed, err := strconv.Atoi(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WCTEST_BROWSER_TIMEOUT %q: %w", timeout, err)
		}
		c.BrowserTimeout = time.Duration(parsed) * time.Second
	}
	if saveDir, ok := env["WCTEST_SAVE_DIR"]; ok {
		parsed, err := strconv.Atoi(saveDir)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WCTEST_SAVE_DIR %q: %w", saveDir, err)
		}
		c.SaveDir = parsed
	}

	c.AllEngines = isTruthy(env["WCTEST_ALL_ENGINES"])
	c.Verbose = isTruthy(env["WCTEST_VERBOSE"])
	c.SkipSlow = isTruthy(env["WCTEST_SKIP_SLOW"])
	c.DetectTempfileLeaks = isTruthy(env["WCTEST_DETECT_TEMPFILE_LEAKS"])

	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}

	if repositoryDir != "" {
		if err := c.mergeYAML(repositoryDir + "/webcc.yml"); err != nil {
			return Config{}, err
		}
	}

	if c.NodeJS == "" {
		c.NodeJS = "node"
	}
	return c, nil
}

func (c *Config) mergeYAML(path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("can't read webcc.yml: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(contents, &y); err != nil {
		return fmt.Errorf("error parsing webcc.yml: %w", err)
	}

	// Environment overrides the file.
	if c.CC == "" {
		c.CC = y.Toolchain.CC
	}
	if c.CXX == "" {
		c.CXX = y.Toolchain.CXX
	}
	if c.NodeJS == "" {
		c.NodeJS = y.Engines.Node
	}
	if c.V8 == "" {
		c.V8 = y.Engines.V8
	}
	if c.JSC == "" {
		c.JSC = y.Engines.JSC
	}
	return nil
}

func isTruthy(value string) bool {
	return value != "" && value != "0"
}

// HasBrowser reports whether browser runs are enabled. Setting
// WCTEST_BROWSER=0 compiles browser tests without launching anything.
func (c Config) HasBrowser() bool {
	return c.Browser != "0"
}

// JSEngines returns the configured engines, node first. Engine command
// lines may carry flags ("node --stack-size=8192").
func (c Config) JSEngines() []jsrun.Engine {
	var engines []jsrun.Engine
	if c.NodeJS != "" {
		engines = append(engines, jsrun.Engine{Name: "node", Cmd: strings.Fields(c.NodeJS), Args: c.NodeArgs})
	}
	if c.V8 != "" {
		engines = append(engines, jsrun.Engine{Name: "d8", Cmd: strings.Fields(c.V8), Args: c.V8Args})
	}
	if c.JSC != "" {
		engines = append(engines, jsrun.Engine{Name: "jsc", Cmd: strings.Fields(c.JSC)})
	}
	return engines
}
