// Package harness hosts the browser-side of browser tests: a small HTTP
// server that serves compiled test pages, hands the polling harness page
// one test URL at a time, and collects the single result each test reports
// back via /report_result.
package harness

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/webcc-dev/harness-utils/logger"
)

// ErrDuplicateResult poisons a test whose page reported more than one
// result. A misbehaving test might fire several report XHRs; only the first
// counts, and the test must be fixed rather than silently tolerated.
var ErrDuplicateResult = errors.New("excessive result reports from test page")

// ErrBusy is returned by Enqueue when the previous command was never picked
// up. Tests run one at a time.
var ErrBusy = errors.New("a test command is already pending")

// Command tells the harness page which URL to open, and which directory the
// server should serve that test's files from.
type Command struct {
	URL string
	Dir string
}

type reportedResult struct {
	Value string
	Err   error
}

// Server is the browser harness HTTP server.
type Server struct {
	logger *logger.Logger

	in  *Mailbox[Command]
	out *Mailbox[reportedResult]

	mu       sync.Mutex
	serveDir string

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server that will listen on the given port. Port 0
// picks a free port, which Port() reports after Start.
func NewServer(lg *logger.Logger) *Server {
	return &Server{
		logger: lg,
		in:     NewMailbox[Command](),
		out:    NewMailbox[reportedResult](),
	}
}

// Start begins listening and serving in the background.
func (s *Server) Start(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return fmt.Errorf("harness server listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s}

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Errorf("harness server: %v", serveErr)
		}
	}()
	s.logger.Debugf("[harness server on port %d]", s.Port())
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// URL returns an absolute URL for a path served by this server.
func (s *Server) URL(path string) string {
	return fmt.Sprintf("http://localhost:%d/%s", s.Port(), strings.TrimPrefix(path, "/"))
}

// Enqueue hands the next test to the polling harness page. dir becomes the
// served root once the page picks the command up.
func (s *Server) Enqueue(pageURL, dir string) error {
	if !s.in.TrySend(Command{URL: pageURL, Dir: dir}) {
		return ErrBusy
	}
	return nil
}

// AwaitResult waits for the test page to report. The returned string is the
// raw request path, e.g. "/report_result?0". A duplicate report surfaces as
// ErrDuplicateResult.
func (s *Server) AwaitResult(timeout time.Duration) (string, error) {
	result, ok := s.out.Recv(timeout)
	if !ok {
		return "", fmt.Errorf("no result reported within %v", timeout)
	}
	if result.Err != nil {
		return "", result.Err
	}
	return result.Value, nil
}

// DiscardPendingResults drops any unread results, returning how many there
// were. A non-zero count means the previous test misbehaved.
func (s *Server) DiscardPendingResults() int {
	return s.out.Drain()
}

func (s *Server) setServeDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveDir = dir
}

func (s *Server) getServeDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveDir
}

// addHarnessHeaders applies the cross-origin isolation and no-cache headers
// every harness response carries. COOP/COEP are required for pages that use
// SharedArrayBuffer (pthreads builds).
func addHarnessHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Embedder-Policy", "require-corp")
	h.Set("Cross-Origin-Resource-Policy", "cross-origin")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addHarnessHeaders(w.Header())

	switch {
	case r.URL.Path == "/run_harness":
		s.logger.Debugf("[harness page served]")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(harnessPage))

	case r.URL.Path == "/check":
		s.handleCheck(w)

	case strings.Contains(r.URL.Path, "report_"):
		s.handleReport(w, r)

	case hasClientLogParam(r.URL.RawQuery):
		logged, _ := url.QueryUnescape(strings.ReplaceAll(r.URL.RawQuery, "+", " "))
		s.logger.Plainf("[client logging: %s]", logged)
		w.Header().Set("Content-Type", "text/html")

	default:
		s.serveFile(w, r)
	}
}

// handleCheck answers the harness page's poll: either the next test command
// or an instruction to keep waiting.
func (s *Server) handleCheck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	if cmd, ok := s.in.TryRecv(); ok {
		s.logger.Debugf("[queue command: %s %s]", cmd.URL, cmd.Dir)
		// Serve the new test's files from its own directory.
		s.setServeDir(cmd.Dir)
		fmt.Fprintf(w, "COMMAND:%s", cmd.URL)
		return
	}
	w.Write([]byte("(wait)"))
}

// handleReport records a test result. The full request path (path + query)
// is the result value; tests may append |<their own url> for debugging.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	// Stop serving from the test dir; it is about to be deleted.
	s.setServeDir("")

	raw := r.URL.Path
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	value := raw
	fromURL := "?"
	if idx := strings.Index(raw, "|"); idx >= 0 {
		value = raw[:idx]
		fromURL = raw[idx+1:]
	}
	s.logger.Debugf("[server response: %s %s]", value, fromURL)

	if !s.out.TrySend(reportedResult{Value: value}) {
		// A second report for the same test. Poison the slot so the test
		// fails loudly instead of the stale value leaking into the next one.
		s.out.Drain()
		s.out.TrySend(reportedResult{Err: fmt.Errorf("%w: %q", ErrDuplicateResult, raw)})
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Connection", "close")
	w.Header().Set("Expires", "-1")
	w.Write([]byte("OK"))
}

func hasClientLogParam(rawQuery string) bool {
	return strings.Contains(rawQuery, "stdout=") ||
		strings.Contains(rawQuery, "stderr=") ||
		strings.Contains(rawQuery, "exception=")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	dir := s.getServeDir()
	if dir == "" {
		http.Error(w, "no test directory active", http.StatusNotFound)
		return
	}

	clean := filepath.Clean("/" + r.URL.Path)
	full := filepath.Join(dir, clean)

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.Error(w, "file not found: "+r.URL.Path, http.StatusNotFound)
		return
	}

	// Content types the browser is picky about: .wasm must be
	// application/wasm for streaming compilation to work.
	switch filepath.Ext(full) {
	case ".js", ".mjs":
		w.Header().Set("Content-Type", "application/javascript")
	case ".wasm":
		w.Header().Set("Content-Type", "application/wasm")
	}

	s.logger.Debugf("[serving: %s]", r.URL.Path)
	http.ServeFile(w, r, full)
}
