// Package assertions compares program output the way a compiler test suite
// needs to: containment and identity checks with unified diffs, plus size
// limiting so a runaway program can't flood the test log.
package assertions

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	maxBytes   = 800_000 * 20
	maxLines   = 100_000
	maxLineLen = 5_000
)

// LimitSize truncates pathological output: long lines are cut, the middle
// of huge outputs is elided.
func LimitSize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) > maxLineLen {
			lines[i] = line[:maxLineLen] + "[..]"
		}
	}
	if len(lines) > maxLines {
		head := lines[:maxLines/2]
		tail := lines[len(lines)-maxLines/2:]
		lines = append(append(head, "[..]"), tail...)
	}
	s = strings.Join(lines, "\n")
	if len(s) > maxBytes {
		s = s[:maxBytes/2] + "\n[..]\n" + s[len(s)-maxBytes/2:]
	}
	return s
}

// NormalizeLineEndings converts \r\n to \n so Windows toolchain output and
// PTY-captured output compare cleanly.
func NormalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func unifiedDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Contained checks that output contains at least one of the expected
// strings. The returned error carries a unified diff against the first
// expectation.
func Contained(expected []string, output string, additionalInfo string) error {
	if len(expected) == 0 {
		return fmt.Errorf("no expected values given")
	}
	for _, want := range expected {
		if strings.Contains(output, want) {
			return nil
		}
	}
	msg := fmt.Sprintf("expected to find %q in %q, diff:\n\n%s",
		LimitSize(expected[0]), LimitSize(output), LimitSize(unifiedDiff(expected[0], output)))
	if additionalInfo != "" {
		msg += "\n" + additionalInfo
	}
	return fmt.Errorf("%s", msg)
}

// NotContained checks that output does not contain the given string.
func NotContained(unexpected string, output string) error {
	if !strings.Contains(output, unexpected) {
		return nil
	}
	return fmt.Errorf("expected to NOT find %q in %q, diff:\n\n%s",
		LimitSize(unexpected), LimitSize(output), LimitSize(unifiedDiff(unexpected, output)))
}

// ContainedIf asserts containment when condition holds, absence otherwise.
func ContainedIf(value string, output string, condition bool) error {
	if condition {
		return Contained([]string{value}, output, "")
	}
	return NotContained(value, output)
}

// Identical checks that actual equals one of the expected values exactly,
// modulo line endings.
func Identical(expected []string, actual string, msg string) error {
	actualNorm := NormalizeLineEndings(actual)
	for _, want := range expected {
		if NormalizeLineEndings(want) == actualNorm {
			return nil
		}
	}
	failMsg := "unexpected difference:\n" + LimitSize(unifiedDiff(NormalizeLineEndings(expected[0]), actualNorm))
	if msg != "" {
		failMsg += "\n" + msg
	}
	return fmt.Errorf("%s", failMsg)
}

// Exists checks that a file or directory exists.
func Exists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected file not found: %s", path)
	}
	return nil
}

// NotExists checks that a path is absent.
func NotExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("unexpected file exists: %s", path)
	}
	return nil
}

// BinaryEqual checks two files byte for byte.
func BinaryEqual(file1, file2 string) error {
	a, err := os.ReadFile(file1)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(file2)
	if err != nil {
		return err
	}
	if len(a) != len(b) {
		return fmt.Errorf("%s is %d bytes, %s is %d bytes", file1, len(a), file2, len(b))
	}
	if !bytes.Equal(a, b) {
		return fmt.Errorf("%s and %s differ", file1, file2)
	}
	return nil
}
