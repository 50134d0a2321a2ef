package btest

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcc-dev/harness-utils/config"
	"github.com/webcc-dev/harness-utils/logger"
	"github.com/webcc-dev/harness-utils/toolchain"
)

// fakeDriver records its arguments and produces whatever -o names, standing
// in for the real toolchain.
const fakeDriver = `#!/bin/sh
echo "$@" > args.txt
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    out="$2"
    shift
  fi
  shift
done
echo '<html>test page</html>' > "$out"
`

func fakeToolchain(t *testing.T, dir string) *toolchain.Toolchain {
	cc := filepath.Join(dir, "fake-cc")
	require.NoError(t, os.WriteFile(cc, []byte(fakeDriver), 0755))
	return toolchain.New(cc, "", nil)
}

// newTestSession starts a session against a fake toolchain. browser "0"
// means compile-only; "true" satisfies the launch without opening anything,
// for tests that drive the harness protocol themselves.
func newTestSession(t *testing.T, dir, browser string) *Session {
	cfg := config.Config{
		Browser:        browser,
		BrowserPort:    0,
		BrowserTimeout: 5 * time.Second,
		TempDir:        t.TempDir(),
	}

	s, err := NewSession(cfg, fakeToolchain(t, dir), logger.GetQuietLogger(""))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// browserStub polls /check like the harness page would and reports the given
// result once it receives a command.
func browserStub(s *Session, result string) {
	go func() {
		for i := 0; i < 200; i++ {
			resp, err := http.Get(s.Server.URL("check"))
			if err != nil {
				return
			}
			body := make([]byte, 1024)
			n, _ := resp.Body.Read(body)
			resp.Body.Close()
			if strings.HasPrefix(string(body[:n]), "COMMAND:") {
				http.Get(s.Server.URL("report_result?" + result))
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
}

func TestCompile_InjectsReportingSupport(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	output, err := s.Compile(dir, toolchain.BuildRequest{Source: "test.c"}, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test.html", output)

	assert.FileExists(t, filepath.Join(dir, "browser_reporting.js"))
	assert.FileExists(t, filepath.Join(dir, "report_result.h"))
	assert.FileExists(t, filepath.Join(dir, "report_result.cpp"))

	args, readErr := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, readErr)
	assert.Contains(t, string(args), "-sIN_TEST_HARNESS")
	assert.Contains(t, string(args), fmt.Sprintf("-DWCTEST_PORT_NUMBER=%d", s.Server.Port()))
	assert.Contains(t, string(args), "--pre-js browser_reporting.js")
	assert.Contains(t, string(args), "-include report_result.h")
	assert.Contains(t, string(args), "report_result.cpp")
}

func TestCompile_JSOnlyReporting(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	_, err := s.Compile(dir, toolchain.BuildRequest{Source: "test.c"}, CompileOptions{Reporting: ReportingJSOnly})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "browser_reporting.js"))
	assert.NoFileExists(t, filepath.Join(dir, "report_result.cpp"))
}

func TestCompile_NoReporting(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	_, err := s.Compile(dir, toolchain.BuildRequest{Source: "test.c"}, CompileOptions{Reporting: ReportingNone})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "browser_reporting.js"))

	args, readErr := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, readErr)
	assert.NotContains(t, string(args), "--pre-js")
	assert.Contains(t, string(args), "-sIN_TEST_HARNESS")
}

func TestBtest_CompileOnlyWithoutBrowser(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	err := s.Btest(Request{Dir: dir, Source: "test.c", Expected: []string{"42"}})
	assert.NoError(t, err)
}

func TestBtest_RequiresExpectation(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	err := s.Btest(Request{Dir: dir, Source: "test.c"})
	assert.Error(t, err)
}

func TestRunPage_MatchingResult(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "true")

	browserStub(s, "42")
	err := s.RunPage(dir, "test.html", []string{"42"}, RunOptions{})
	assert.NoError(t, err)
}

func TestRunPage_Mismatch(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "true")

	browserStub(s, "41")
	err := s.RunPage(dir, "test.html", []string{"42"}, RunOptions{ExtraTries: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected to find")
}

func TestRunPage_Skipped(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "true")

	browserStub(s, "skipped:no%20gpu%20available")
	err := s.RunPage(dir, "test.html", []string{"42"}, RunOptions{})

	var skipErr *SkipError
	require.ErrorAs(t, err, &skipErr)
	assert.Equal(t, "no gpu available", skipErr.Reason)
}

func TestRunPage_Unresponsive(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "true")

	// No browser stub: nothing ever reports.
	err := s.RunPage(dir, "test.html", []string{"42"}, RunOptions{
		Timeout:    200 * time.Millisecond,
		ExtraTries: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result")
	assert.Equal(t, 1, s.unresponsiveTests)
}

func TestRunPage_UnresponsiveCutoff(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "true")
	s.unresponsiveTests = MaxUnresponsiveTests

	err := s.RunPage(dir, "test.html", []string{"42"}, RunOptions{})
	assert.ErrorIs(t, err, ErrTooManyUnresponsive)
}

func TestBtestExit_DoesNotMutateCallerSettings(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, "0")

	settings := toolchain.NewSettings()
	err := s.BtestExit(Request{Dir: dir, Source: "test.c", Settings: settings}, 3)

	require.NoError(t, err)
	assert.False(t, settings.Changed("EXIT_RUNTIME"))
}
