package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [stage]",
	Short: "Run the built-in stages (default command)",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStages,
}

func init() {
	runCmd.Flags().StringP("stage", "s", "", "Stage slug to run (default: all)")
	rootCmd.AddCommand(runCmd)
}
