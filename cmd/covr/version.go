package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"covr/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("covr %s", version.Version)
		if version.GitCommit != "" {
			fmt.Printf(" (%s)", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Printf(" built %s", version.BuildDate)
		}
		fmt.Println()
	},
}
