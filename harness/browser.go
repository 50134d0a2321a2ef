package harness

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/webcc-dev/harness-utils/logger"
)

// OpenBrowser opens url in a browser. An empty command means the system
// default browser; otherwise the command is split on whitespace and the URL
// is appended, so "google-chrome --incognito" works. The caller is expected
// to have checked Config.HasBrowser first.
func OpenBrowser(browserCommand string, url string, lg *logger.Logger) error {
	if browserCommand == "" {
		lg.Infof("Using default system browser")
		return openDefaultBrowser(url)
	}

	args := strings.Fields(browserCommand)
	lg.Infof("Using browser: %s", args[0])
	cmd := exec.Command(args[0], append(args[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser %q: %w", args[0], err)
	}
	// The browser outlives us; don't wait on it.
	go cmd.Wait()
	return nil
}

func openDefaultBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening default browser: %w", err)
	}
	go cmd.Wait()
	return nil
}
