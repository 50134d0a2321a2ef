package test_case_harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webcc-dev/harness-utils/btest"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/jsrun"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/toolchain"
)

// TestCaseHarness is passed to a TestCase's TestFunc. It owns the test's
// working directory and gives access to the toolchain, the configured JS
// engines and (for btests) the browser session.
//
// Compile-and-run tests use the Toolchain directly:
//
//	h.CreateFile("hello.c", helloSource)
//	out, err := h.Toolchain.Build(toolchain.BuildRequest{
//		Source: "hello.c", WorkingDir: h.WorkingDir,
//	})
//
// Browser tests go through h.Browser:
//
//	err := h.Browser.Btest(btest.Request{Dir: h.WorkingDir, ...})
type TestCaseHarness struct {
	// Logger is to be used for all logs generated from the test function.
	Logger *logger.Logger

	// WorkingDir is this test's scratch directory. It is deleted on
	// teardown unless WCTEST_SAVE_DIR is set.
	WorkingDir string

	Config    config.Config
	Toolchain *toolchain.Toolchain

	// Browser is nil unless the suite started a browser harness session.
	Browser *btest.Session

	saveDir         bool
	teardownFuncs   []func()
	tempFilesBefore []string
}

// New creates the harness and its working directory. slug becomes part of
// the directory name so saved dirs are identifiable.
func New(lg *logger.Logger, cfg config.Config, tc *toolchain.Toolchain, slug string) (*TestCaseHarness, error) {
	h := &TestCaseHarness{
		Logger:    lg,
		Config:    cfg,
		Toolchain: tc,
		saveDir:   cfg.SaveDir > 0,
	}

	if cfg.SaveDir > 0 {
		dir := filepath.Join(cfg.TempDir, "webcc_test")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		if cfg.SaveDir == 1 {
			// Start from an empty directory; many tests expect that.
			if err := deleteContents(dir); err != nil {
				return nil, err
			}
		} else {
			lg.Debugf("not clearing existing test directory")
		}
		h.WorkingDir = dir
	} else {
		dir, err := os.MkdirTemp(cfg.TempDir, "webcc_test_"+sanitize(slug)+"_")
		if err != nil {
			return nil, err
		}
		h.WorkingDir = dir
	}

	if cfg.DetectTempfileLeaks {
		h.tempFilesBefore = listTree(cfg.TempDir)
	}
	return h, nil
}

// RegisterTeardownFunc schedules cleanup to run once the test's result has
// been reported.
func (h *TestCaseHarness) RegisterTeardownFunc(teardownFunc func()) {
	h.teardownFuncs = append(h.teardownFuncs, teardownFunc)
}

func (h *TestCaseHarness) RunTeardownFuncs() {
	for _, teardownFunc := range h.teardownFuncs {
		teardownFunc()
	}
	h.teardownFuncs = nil
}

// Teardown removes the working directory (unless save-dir mode is on) and,
// when leak detection is enabled, fails if the test left new files behind
// in the shared temp dir.
func (h *TestCaseHarness) Teardown() error {
	h.RunTeardownFuncs()

	if !h.saveDir {
		if err := os.RemoveAll(h.WorkingDir); err != nil {
			return err
		}
	}

	if h.Config.DetectTempfileLeaks && !h.saveDir {
		leaked := diffTree(h.tempFilesBefore, listTree(h.Config.TempDir))
		if len(leaked) > 0 {
			for _, f := range leaked {
				h.Logger.Errorf("leaked file: %s", f)
			}
			return fmt.Errorf("test leaked %d temporary files", len(leaked))
		}
	}
	return nil
}

// JSEngines returns the engines this test should run JS output under:
// just the first configured engine, or all of them in all-engines mode.
func (h *TestCaseHarness) JSEngines() []jsrun.Engine {
	engines := h.Config.JSEngines()
	if len(engines) > 1 && !h.Config.AllEngines {
		return engines[:1]
	}
	return engines
}

// FilePath returns the absolute path to a file within the working directory.
func (h *TestCaseHarness) FilePath(relativePath string) string {
	return filepath.Join(h.WorkingDir, relativePath)
}

// FileExists checks if a file exists within the working directory.
func (h *TestCaseHarness) FileExists(relativePath string) bool {
	_, err := os.Stat(h.FilePath(relativePath))
	return err == nil
}

// ReadFile reads the contents of a file within the working directory.
func (h *TestCaseHarness) ReadFile(relativePath string) ([]byte, error) {
	return os.ReadFile(h.FilePath(relativePath))
}

// CreateFile writes a test source or asset file into the working directory.
func (h *TestCaseHarness) CreateFile(relativePath string, contents string) error {
	path := h.FilePath(relativePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

// CreateExecutableFile writes a file with the execute bit set.
func (h *TestCaseHarness) CreateExecutableFile(relativePath string, contents string) error {
	path := h.FilePath(relativePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o755)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
}

func deleteContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func listTree(root string) []string {
	var paths []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths
}

func diffTree(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, p := range before {
		seen[p] = true
	}
	var leaked []string
	for _, p := range after {
		if !seen[p] {
			leaked = append(leaked, p)
		}
	}
	return leaked
}
