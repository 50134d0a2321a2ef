package main

import (
	"os"

	harness_utils "github.com/webcc-dev/harness-utils"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webcc-harness [stage]",
	Short: "Test harness for the webcc toolchain",
	Long: `webcc-harness - compile C/C++ test programs with the webcc toolchain and
check their behavior under JS engines, WASI runtimes and real browsers.

With no arguments it runs the built-in sanity stages against the toolchain
configured through WCTEST_* environment variables or webcc.yml.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStages,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Repository directory (default: current dir)")
	rootCmd.Flags().StringP("stage", "s", "", "Stage slug to run (default: all)")
}

func runStages(cmd *cobra.Command, args []string) {
	stage, _ := cmd.Flags().GetString("stage")
	dir, _ := cmd.Flags().GetString("dir")

	if stage == "" && len(args) > 0 {
		stage = args[0]
	}

	var testerArgs []string
	if stage != "" {
		testerArgs = append(testerArgs, "--stage", stage)
	}
	if dir != "" {
		testerArgs = append(testerArgs, "--dir", dir)
	}

	os.Exit(harness_utils.Run(testerArgs, sanityDefinition()))
}
