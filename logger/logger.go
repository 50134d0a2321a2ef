package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func init() {
	// fatih/color only checks os.Stdout at import time; we also redirect
	// stdout to stderr under WCTEST_STREAM_LOGS, so decide here.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

var (
	successColorize  = color.New(color.FgGreen).SprintFunc()
	infoColorize     = color.New(color.FgYellow).SprintFunc()
	debugColorize    = color.New(color.FgCyan).SprintFunc()
	errorColorize    = color.New(color.FgRed).SprintFunc()
	criticalColorize = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Logger emits prefixed, colored lines. A quiet logger only emits Criticalf,
// which is used for stages whose output the user shouldn't normally see.
type Logger struct {
	IsDebug bool
	IsQuiet bool

	prefix string
	out    io.Writer
}

// GetLogger returns a logger that prefixes every line with the given prefix.
func GetLogger(isDebug bool, prefix string) *Logger {
	return &Logger{IsDebug: isDebug, prefix: prefix, out: os.Stdout}
}

// GetQuietLogger returns a logger that only emits critical logs.
func GetQuietLogger(prefix string) *Logger {
	return &Logger{IsQuiet: true, prefix: prefix, out: os.Stdout}
}

func (l *Logger) emit(colorize func(a ...interface{}) string, msg string) {
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		fmt.Fprintln(l.out, colorize(l.prefix+line))
	}
}

func (l *Logger) Successf(format string, args ...interface{}) {
	if l.IsQuiet {
		return
	}
	l.emit(successColorize, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.IsQuiet {
		return
	}
	l.emit(infoColorize, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.IsQuiet || !l.IsDebug {
		return
	}
	l.emit(debugColorize, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.IsQuiet {
		return
	}
	l.emit(errorColorize, fmt.Sprintf(format, args...))
}

// Criticalf is emitted even by quiet loggers.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.emit(criticalColorize, fmt.Sprintf(format, args...))
}

// Plainf logs without any color, for relaying program output.
func (l *Logger) Plainf(format string, args ...interface{}) {
	if l.IsQuiet {
		return
	}
	l.emit(fmt.Sprint, fmt.Sprintf(format, args...))
}

// Plainln logs a single uncolored line. Matches the signature expected by
// executable.NewVerboseExecutable.
func (l *Logger) Plainln(line string) {
	l.Plainf("%s", line)
}
