// Package btest orchestrates browser tests: compile a program with result
// reporting injected, hand the page to the browser through the harness
// server, and compare the reported result string.
package btest

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/webcc-dev/harness-utils/assertions"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/harness"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/toolchain"
)

func writeFile(dir, name, contents string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644)
}

// MaxUnresponsiveTests is the suite-wide cutoff: once this many browser
// tests produce no result at all, something is broken in the setup and
// waiting out the timeout on every remaining test would burn hours.
const MaxUnresponsiveTests = 10

const reportResultPrefix = "/report_result?"

// ErrTooManyUnresponsive aborts the rest of the browser suite.
var ErrTooManyUnresponsive = errors.New("too many unresponsive browser tests; check your setup")

// SkipError means the page reported "skipped:<reason>" and the test should
// be treated as skipped, not failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "test skipped: " + e.Reason
}

// Session is one browser harness session shared by all btests of a suite.
type Session struct {
	Server    *harness.Server
	Toolchain *toolchain.Toolchain
	Config    config.Config
	Logger    *logger.Logger

	unresponsiveTests int
}

// NewSession starts the harness server and (if browser runs are enabled)
// opens the polling harness page in the browser.
func NewSession(cfg config.Config, tc *toolchain.Toolchain, lg *logger.Logger) (*Session, error) {
	s := &Session{
		Server:    harness.NewServer(lg),
		Toolchain: tc,
		Config:    cfg,
		Logger:    lg,
	}

	if err := s.Server.Start(cfg.BrowserPort); err != nil {
		return nil, err
	}
	if cfg.HasBrowser() {
		if err := harness.OpenBrowser(cfg.Browser, s.Server.URL("run_harness"), lg); err != nil {
			s.Server.Stop()
			return nil, err
		}
	}
	return s, nil
}

// Close shuts the harness server down.
func (s *Session) Close() error {
	return s.Server.Stop()
}

// CompileOptions controls reporting injection for one btest build.
type CompileOptions struct {
	Reporting Reporting
}

// Compile builds a btest page in dir. On top of the caller's build request
// it injects the reporting support code and the harness port number.
func (s *Session) Compile(dir string, req toolchain.BuildRequest, opts CompileOptions) (string, error) {
	req.WorkingDir = dir
	req.Args = append(req.Args, "-sIN_TEST_HARNESS")

	if opts.Reporting != ReportingNone {
		if err := writeFile(dir, "browser_reporting.js", reportingJS); err != nil {
			return "", err
		}
		req.Args = append(req.Args,
			fmt.Sprintf("-DWCTEST_PORT_NUMBER=%d", s.Server.Port()),
			"--pre-js", "browser_reporting.js",
		)
		if opts.Reporting == ReportingFull {
			if err := writeFile(dir, "report_result.h", reportResultHeader); err != nil {
				return "", err
			}
			if err := writeFile(dir, "report_result.cpp", reportResultSource); err != nil {
				return "", err
			}
			req.Args = append(req.Args, "-include", "report_result.h")
			req.Libraries = append(req.Libraries, "report_result.cpp")
		}
	}

	if req.Output == "" {
		req.Output = "test.html"
	}
	return s.Toolchain.Build(req)
}

// RunOptions controls one page run.
type RunOptions struct {
	// Timeout for the result to arrive; zero uses the configured default.
	Timeout time.Duration
	// ExtraTries is how many more times to run the page if the result
	// doesn't match. Browser tests are flaky by nature (they run
	// asynchronously against a timeout), so the default is one retry.
	ExtraTries int
	// Message describes what a human should see, for manual runs.
	Message string
}

// RunPage serves dir, tells the browser to open htmlFile and compares the
// reported result against the expected values ("/report_result?" is
// prepended to each). Returns *SkipError when the page skipped itself.
func (s *Session) RunPage(dir, htmlFile string, expected []string, opts RunOptions) error {
	if !s.Config.HasBrowser() {
		// Compile-only mode: building the page was the whole test.
		return nil
	}
	if s.unresponsiveTests >= MaxUnresponsiveTests {
		return ErrTooManyUnresponsive
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.Config.BrowserTimeout
	}

	// A result still in the slot means the previous test reported twice.
	if discarded := s.Server.DiscardPendingResults(); discarded > 0 {
		return fmt.Errorf("excessive responses from previous test (%d unread)", discarded)
	}

	expectedResults := make([]string, len(expected))
	for i, e := range expected {
		expectedResults[i] = reportResultPrefix + e
	}

	s.Logger.Debugf("[browser launch: %s]", htmlFile)
	if err := s.Server.Enqueue(s.Server.URL(htmlFile), dir); err != nil {
		return err
	}

	output, err := s.Server.AwaitResult(timeout)
	if err != nil {
		if errors.Is(err, harness.ErrDuplicateResult) {
			return err
		}
		s.unresponsiveTests++
		s.Logger.Errorf("[unresponsive tests: %d]", s.unresponsiveTests)
		return s.retryOrFail(dir, htmlFile, expected, opts,
			fmt.Errorf("no result from browser: %w", err))
	}

	if strings.HasPrefix(output, reportResultPrefix+"skipped:") {
		reason := strings.TrimPrefix(output, reportResultPrefix+"skipped:")
		reason, _ = url.QueryUnescape(reason)
		return &SkipError{Reason: strings.TrimSpace(reason)}
	}

	unquoted, unescapeErr := url.QueryUnescape(output)
	if unescapeErr != nil {
		unquoted = output
	}
	if err := assertions.Contained(expectedResults, unquoted, opts.Message); err != nil {
		return s.retryOrFail(dir, htmlFile, expected, opts, err)
	}

	// A correct test has exactly one result; anything more arrived while
	// we were comparing.
	if discarded := s.Server.DiscardPendingResults(); discarded > 0 {
		return fmt.Errorf("excessive responses from this test (%d unread)", discarded)
	}
	return nil
}

func (s *Session) retryOrFail(dir, htmlFile string, expected []string, opts RunOptions, cause error) error {
	if opts.ExtraTries <= 0 {
		return cause
	}
	s.Logger.Errorf("[test error (see below), automatically retrying]")
	s.Logger.Errorf("%v", cause)
	opts.ExtraTries--
	s.Server.DiscardPendingResults()
	return s.RunPage(dir, htmlFile, expected, opts)
}

// Request is a complete btest: build a source file into a page and check
// the reported result.
type Request struct {
	Dir      string
	Source   string   // relative to Dir
	Expected []string // acceptable reported results
	Args     []string // extra compiler flags
	Settings *toolchain.Settings

	Reporting  Reporting // defaults to ReportingFull
	Timeout    time.Duration
	ExtraTries int
	Message    string
}

// Btest compiles and runs one browser test.
func (s *Session) Btest(req Request) error {
	if len(req.Expected) == 0 {
		return fmt.Errorf("a btest must expect at least one result")
	}

	page, err := s.Compile(req.Dir, toolchain.BuildRequest{
		Source:   req.Source,
		Output:   "test.html",
		Settings: req.Settings,
		Args:     req.Args,
	}, CompileOptions{Reporting: req.Reporting})
	if err != nil {
		return err
	}

	extraTries := req.ExtraTries
	if extraTries == 0 {
		extraTries = 1
	}
	return s.RunPage(req.Dir, page, req.Expected, RunOptions{
		Timeout:    req.Timeout,
		ExtraTries: extraTries,
		Message:    req.Message,
	})
}

// BtestExit runs a btest whose program reports solely by exiting with a
// status code: EXIT_RUNTIME is enabled and the injected JS exit hook
// reports "exit:<code>".
func (s *Session) BtestExit(req Request, exitCode int) error {
	settings := req.Settings
	if settings == nil {
		settings = toolchain.NewSettings()
	} else {
		settings = settings.Clone()
	}
	settings.Enable("EXIT_RUNTIME")
	req.Settings = settings
	req.Reporting = ReportingJSOnly
	req.Expected = []string{fmt.Sprintf("exit:%d", exitCode)}
	return s.Btest(req)
}
