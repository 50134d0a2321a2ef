package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in stages",
	Run: func(cmd *cobra.Command, args []string) {
		for _, tc := range sanityDefinition().TestCases {
			suffix := ""
			if tc.RequiresBrowser {
				suffix = " (browser)"
			}
			fmt.Printf("%s%s\n", tc.Slug, suffix)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
