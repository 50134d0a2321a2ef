package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/webcc-dev/harness-utils/harness"
	"github.com/webcc-dev/harness-utils/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start a standalone harness server",
	Long: `Start the browser harness server without running any tests, serving files
from the given directory (default: current dir).

Useful for debugging a compiled test page by hand: open /run_harness in a
browser and the harness opens the directory's test.html the same way a test
run would, reported results included.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8888, "Port to listen on")
	serveCmd.Flags().Bool("open", false, "Open /run_harness in the default browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")
	open, _ := cmd.Flags().GetBool("open")

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	lg := logger.GetLogger(true, "[harness] ")

	server := harness.NewServer(lg)
	if err := server.Start(port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer server.Stop()

	if err := server.Enqueue(server.URL("test.html"), dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lg.Infof("serving %s on %s", dir, server.URL("run_harness"))

	if open {
		if err := harness.OpenBrowser("", server.URL("run_harness"), lg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	lg.Infof("shutting down")
}
