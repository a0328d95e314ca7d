package main

import (
	"github.com/spf13/cobra"

	"covr/internal/cargo"
	"covr/internal/project"
)

// build, test and run all forward to cargo with instrumentation enabled;
// the only difference is which artifacts the child produces (graph files
// at compile time, count files when the program exits).

var buildCmd = &cobra.Command{
	Use:   "build [-- args...]",
	Short: "Compile the project and produce coverage graph files (*.gcno)",
	RunE:  forwardTo("build"),
}

var testCmd = &cobra.Command{
	Use:   "test [-- args...]",
	Short: "Test the project and produce count files (*.gcda)",
	RunE:  forwardTo("test"),
}

var runCmd = &cobra.Command{
	Use:   "run [-- args...]",
	Short: "Run the program and produce count files (*.gcda)",
	RunE:  forwardTo("run"),
}

var profilerPath string

func init() {
	for _, cmd := range []*cobra.Command{buildCmd, testCmd, runCmd} {
		cmd.Flags().StringVar(&profilerPath, "profiler", "", "path to the profiling runtime library")
	}
}

func forwardTo(subcommand string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		manifestPath, _ := cmd.Flags().GetString("manifest-path")
		manifest, err := project.Find(manifestPath)
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetString("target")
		if target == "" {
			target = manifest.Config.Build.Target
		}
		runner := &cargo.Runner{
			Dir:      manifest.Root,
			CovDir:   manifest.CovBuildPath(),
			Target:   target,
			Profiler: profilerPath,
		}
		progressf("Forwarding", "cargo %s", subcommand)
		return runner.Forward(cmd.Context(), subcommand, args)
	}
}
