package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcc-dev/harness-utils/logger"
)

func TestOpenBrowser_AppendsURL(t *testing.T) {
	tmpDir := t.TempDir()
	marker := filepath.Join(tmpDir, "opened.txt")
	script := filepath.Join(tmpDir, "browser.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho \"$@\" > "+marker+"\n"), 0755))

	lg := logger.GetLogger(false, "")
	err := OpenBrowser(script+" --incognito", "http://localhost:1234/run_harness", lg)
	require.NoError(t, err)

	// The browser process runs detached; wait for it to write the marker.
	deadline := time.Now().Add(2 * time.Second)
	var contents []byte
	for time.Now().Before(deadline) {
		var readErr error
		contents, readErr = os.ReadFile(marker)
		if readErr == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, "--incognito http://localhost:1234/run_harness\n", string(contents))
}

func TestOpenBrowser_MissingBinary(t *testing.T) {
	lg := logger.GetLogger(false, "")
	err := OpenBrowser("/nonexistent/browser/bin", "http://localhost:1234/", lg)
	assert.Error(t, err)
}
