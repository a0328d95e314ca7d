package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"covr/internal/driver"
	"covr/internal/observ"
	"covr/internal/progress"
	"covr/internal/project"
	"covr/internal/sourcepath"
	"covr/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a coverage report from collected graph and count files",
	RunE:  runReport,
}

var (
	reportTemplate      string
	reportInclude       []string
	reportOpen          bool
	reportCountExcluded bool
	reportJobs          int
	reportUI            string
)

func init() {
	reportCmd.Flags().StringVar(&reportTemplate, "template", "", `report template package (default "html")`)
	reportCmd.Flags().StringSliceVar(&reportInclude, "include", nil, "source types to report: local, macros, rustsrc, crates, unknown, all")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in a browser once generated")
	reportCmd.Flags().BoolVar(&reportCountExcluded, "count-excluded", false, "keep filtered-out files in the whole-program totals")
	reportCmd.Flags().IntVar(&reportJobs, "jobs", 0, "decode/render parallelism (default: number of CPUs)")
	reportCmd.Flags().StringVar(&reportUI, "ui", "auto", "progress display (auto|on|off)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	showTimings, _ := cmd.Flags().GetBool("timings")
	if showTimings {
		opts.Timer = observ.NewTimer()
	}

	uiMode, err := readUIMode(reportUI)
	if err != nil {
		return err
	}

	var result driver.Result
	if shouldUseTUI(uiMode) && !quietMode() {
		result, err = generateWithUI(cmd.Context(), opts)
	} else {
		result, err = driver.Generate(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}

	switch {
	case result.Entry == "":
		warnf("no coverage data matched the include filter; nothing to report")
	case result.Cached:
		progressf("Reusing", "%s (inputs unchanged)", result.Entry)
	default:
		progressf("Generated", "%s", result.Entry)
	}

	if showTimings && opts.Timer != nil {
		fmt.Fprint(os.Stderr, opts.Timer.Summary())
	}

	if reportOpen {
		if result.Entry == "" {
			warnf("nothing to open")
		} else {
			progressf("Opening", "%s", result.Entry)
			if err := openBrowser(result.Entry); err != nil {
				warnf("failed to open report: %v", err)
			}
		}
	}
	return nil
}

func reportOptions(cmd *cobra.Command) (driver.GenerateOptions, error) {
	manifestPath, _ := cmd.Flags().GetString("manifest-path")
	manifest, err := project.Find(manifestPath)
	if err != nil {
		return driver.GenerateOptions{}, err
	}

	template := reportTemplate
	if template == "" {
		template = manifest.Config.Report.Template
	}
	include := reportInclude
	if len(include) == 0 {
		include = manifest.Config.Report.Include
	}
	filter, err := sourcepath.ParseSet(include)
	if err != nil {
		return driver.GenerateOptions{}, err
	}

	target, _ := cmd.Flags().GetString("target")
	if target == "" {
		target = manifest.Config.Build.Target
	}

	return driver.GenerateOptions{
		CovDir:        manifest.CovBuildPath(),
		ProjectRoot:   manifest.Root,
		TemplatesRoot: filepath.Join(manifest.Root, "templates"),
		Template:      template,
		Filter:        filter,
		Roots:         sourcepath.DetectRoots(manifest.Root),
		CountExcluded: reportCountExcluded || manifest.Config.Report.CountExcluded,
		TargetTriple:  target,
		Jobs:          reportJobs,
		Warnf:         warnf,
	}, nil
}

type generateOutcome struct {
	result driver.Result
	err    error
}

func generateWithUI(ctx context.Context, opts driver.GenerateOptions) (driver.Result, error) {
	events := make(chan progress.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)

	go func() {
		opts.Progress = progress.ChannelSink{Ch: events}
		res, err := driver.Generate(ctx, opts)
		outcomeCh <- generateOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("generating coverage report", 0, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
