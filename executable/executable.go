package executable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ErrTimeout is returned by Wait/Run when the process exceeds
// TimeoutInMilliseconds. The partial result is still returned alongside it.
var ErrTimeout = errors.New("execution timed out")

const defaultTimeoutInMilliseconds = 10_000

// ExecutableResult holds the captured output of a finished process.
type ExecutableResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executable wraps a single invocation of an external program: the compiler,
// a JS engine, a browser, or a produced artifact. It supports blocking runs,
// interactive runs (Start + SendLine + Wait), millisecond timeouts, and PTY
// mode for programs that behave differently when not attached to a terminal.
//
// An Executable is single-use; Clone() gives a fresh one with the same
// configuration.
type Executable struct {
	Path                  string
	WorkingDir            string
	TimeoutInMilliseconds int
	ShouldUsePty          bool
	Env                   []string // appended to os.Environ()

	loggerFunc func(string)

	cmd       *exec.Cmd
	ptmx      *os.File
	stdinPipe io.WriteCloser

	stdoutBuf bytes.Buffer
	stderrBuf bytes.Buffer

	readersDone sync.WaitGroup
	waitDone    chan struct{}
	waitErr     error
	started     bool
}

// NewExecutable returns an Executable that captures output silently.
func NewExecutable(path string) *Executable {
	return &Executable{Path: path, TimeoutInMilliseconds: defaultTimeoutInMilliseconds}
}

// NewVerboseExecutable returns an Executable that streams each output line
// through loggerFunc as it is produced, in addition to capturing it.
func NewVerboseExecutable(path string, loggerFunc func(string)) *Executable {
	e := NewExecutable(path)
	e.loggerFunc = loggerFunc
	return e
}

// Clone returns an unstarted copy carrying the same configuration.
func (e *Executable) Clone() *Executable {
	return &Executable{
		Path:                  e.Path,
		WorkingDir:            e.WorkingDir,
		TimeoutInMilliseconds: e.TimeoutInMilliseconds,
		ShouldUsePty:          e.ShouldUsePty,
		Env:                   append([]string(nil), e.Env...),
		loggerFunc:            e.loggerFunc,
	}
}

func (e *Executable) resolvePath() (string, error) {
	if strings.Contains(e.Path, string(os.PathSeparator)) {
		if filepath.IsAbs(e.Path) || e.WorkingDir == "" {
			return e.Path, nil
		}
		return e.Path, nil // exec.Cmd resolves relative paths against Dir
	}
	return exec.LookPath(e.Path)
}

// Start launches the process without waiting for it to finish.
func (e *Executable) Start(args ...string) error {
	if e.started {
		return fmt.Errorf("executable %s already started", e.Path)
	}

	path, err := e.resolvePath()
	if err != nil {
		return fmt.Errorf("%s: %w", e.Path, err)
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = e.WorkingDir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	// Run in its own process group so Kill takes down any children the
	// program spawned (browsers and compilers both fork).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if e.ShouldUsePty {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return fmt.Errorf("start %s with pty: %w", e.Path, err)
		}
		e.ptmx = ptmx
		e.readersDone.Add(1)
		go func() {
			defer e.readersDone.Done()
			// Reading the pty master returns EIO once the child exits.
			e.capture(&e.stdoutBuf, ptmx)
		}()
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", e.Path, err)
		}
		e.stdinPipe = stdin
		e.readersDone.Add(2)
		go func() {
			defer e.readersDone.Done()
			e.capture(&e.stdoutBuf, stdout)
		}()
		go func() {
			defer e.readersDone.Done()
			e.capture(&e.stderrBuf, stderr)
		}()
	}

	e.cmd = cmd
	e.started = true
	e.waitDone = make(chan struct{})
	go func() {
		e.readersDone.Wait()
		e.waitErr = cmd.Wait()
		close(e.waitDone)
	}()
	return nil
}

func (e *Executable) capture(buf *bytes.Buffer, r io.Reader) {
	chunk := make([]byte, 4096)
	var lineRest []byte
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if e.loggerFunc != nil {
				lineRest = e.logLines(append(lineRest, chunk[:n]...))
			}
		}
		if err != nil {
			if e.loggerFunc != nil && len(lineRest) > 0 {
				e.loggerFunc(string(lineRest))
			}
			return
		}
	}
}

func (e *Executable) logLines(data []byte) []byte {
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return data
		}
		e.loggerFunc(strings.TrimRight(string(data[:idx]), "\r"))
		data = data[idx+1:]
	}
}

// SendLine writes a line of input to the running process.
func (e *Executable) SendLine(line string) error {
	if !e.started {
		return fmt.Errorf("executable not started")
	}
	var w io.Writer
	if e.ShouldUsePty {
		w = e.ptmx
	} else {
		w = e.stdinPipe
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// CloseStdin signals EOF to the running process.
func (e *Executable) CloseStdin() error {
	if e.ShouldUsePty {
		return e.ptmx.Close()
	}
	if e.stdinPipe != nil {
		return e.stdinPipe.Close()
	}
	return nil
}

// HasExited reports whether the process has finished, without blocking.
func (e *Executable) HasExited() bool {
	if !e.started {
		return false
	}
	select {
	case <-e.waitDone:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits or the timeout elapses. On timeout the
// process group is killed and ErrTimeout is returned with the partial result.
func (e *Executable) Wait() (ExecutableResult, error) {
	if !e.started {
		return ExecutableResult{}, fmt.Errorf("executable not started")
	}

	timeout := time.Duration(e.TimeoutInMilliseconds) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeoutInMilliseconds * time.Millisecond
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.waitDone:
		return e.result(), nil
	case <-timer.C:
		e.Kill()
		return e.result(), ErrTimeout
	}
}

func (e *Executable) result() ExecutableResult {
	exitCode := -1
	if e.cmd.ProcessState != nil {
		exitCode = e.cmd.ProcessState.ExitCode()
	}
	return ExecutableResult{
		Stdout:   append([]byte(nil), e.stdoutBuf.Bytes()...),
		Stderr:   append([]byte(nil), e.stderrBuf.Bytes()...),
		ExitCode: exitCode,
	}
}

// Kill terminates the process group and waits for the process to be reaped.
func (e *Executable) Kill() error {
	if !e.started || e.HasExited() {
		return nil
	}
	pid := e.cmd.Process.Pid
	// Negative pid addresses the whole process group.
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		// Fall back to killing just the direct child.
		e.cmd.Process.Kill()
	}
	if e.ptmx != nil {
		e.ptmx.Close()
	}
	<-e.waitDone
	return nil
}

// Run starts the process and waits for it to finish.
func (e *Executable) Run(args ...string) (ExecutableResult, error) {
	if err := e.Start(args...); err != nil {
		return ExecutableResult{}, err
	}
	if !e.ShouldUsePty {
		// Closing the pty master would tear the session down; only pipe
		// mode gets an explicit EOF.
		e.CloseStdin()
	}
	return e.Wait()
}

// RunWithStdin starts the process, feeds it the given input, closes stdin
// and waits for it to finish.
func (e *Executable) RunWithStdin(stdin []byte, args ...string) (ExecutableResult, error) {
	if err := e.Start(args...); err != nil {
		return ExecutableResult{}, err
	}
	if e.ShouldUsePty {
		e.ptmx.Write(stdin)
	} else {
		e.stdinPipe.Write(stdin)
		e.stdinPipe.Close()
	}
	return e.Wait()
}
