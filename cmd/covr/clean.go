package main

import (
	"github.com/spf13/cobra"

	"covr/internal/cargo"
	"covr/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove coverage artifacts",
	RunE:  runCleanCmd,
}

var (
	cleanCountsOnly bool
	cleanReport     bool
)

func init() {
	cleanCmd.Flags().BoolVar(&cleanCountsOnly, "counts-only", false, "remove the count files only (*.gcda)")
	cleanCmd.Flags().BoolVar(&cleanReport, "report", false, "remove the rendered report and cache too")
}

func runCleanCmd(cmd *cobra.Command, _ []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest-path")
	manifest, err := project.Find(manifestPath)
	if err != nil {
		return err
	}
	covDir := manifest.CovBuildPath()
	if err := cargo.Clean(covDir, cleanCountsOnly, cleanReport); err != nil {
		return err
	}
	progressf("Cleaned", "%s", covDir)
	return nil
}
