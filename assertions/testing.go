package assertions

import (
	"github.com/mitchellh/go-testing-interface"
)

// These wrappers fail a test directly instead of returning an error. They
// take the testing.T interface so they work both under `go test` and when
// test functions run inside the CLI harness via testing.RuntimeT.

func AssertContained(t testing.T, expected []string, output string) {
	t.Helper()
	if err := Contained(expected, output, ""); err != nil {
		t.Fatal(err)
	}
}

func AssertNotContained(t testing.T, unexpected string, output string) {
	t.Helper()
	if err := NotContained(unexpected, output); err != nil {
		t.Fatal(err)
	}
}

func AssertIdentical(t testing.T, expected []string, actual string) {
	t.Helper()
	if err := Identical(expected, actual, ""); err != nil {
		t.Fatal(err)
	}
}

func AssertExists(t testing.T, path string) {
	t.Helper()
	if err := Exists(path); err != nil {
		t.Fatal(err)
	}
}
