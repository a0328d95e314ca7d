// Package render turns an aggregation snapshot into a navigable report
// tree. All presentation lives in the template package; this package only
// builds the data context for each page and swaps the finished tree into
// place atomically.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"covr/internal/progress"
	"covr/internal/report"
	"covr/internal/sourcepath"
)

// ReportDirName is the report tree's directory under the coverage build
// path.
const ReportDirName = "report"

const entryPageName = "index.html"

// Options configures one render.
type Options struct {
	// CovDir is the coverage build path; the report tree lands in
	// CovDir/report.
	CovDir string
	// TemplatesRoot optionally holds on-disk template packages overriding
	// the built-in ones.
	TemplatesRoot string
	// Template is the template package name, default "html".
	Template string
	// ProjectRoot resolves relative source paths when reading text.
	ProjectRoot string
	// Jobs bounds page-render parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Progress receives per-page events, may be nil.
	Progress progress.Sink
}

// IndexRow is one file line of the index page.
type IndexRow struct {
	Path          string
	Page          string
	Summary       report.Summary
	LinePercent   float64
	BranchPercent float64
}

// IndexData is the index page context.
type IndexData struct {
	Generated     time.Time
	Files         []IndexRow
	Total         report.Summary
	LinePercent   float64
	BranchPercent float64
}

// AnnotatedLine is one source line interleaved with its coverage.
type AnnotatedLine struct {
	Number        int
	Text          string
	Instrumented  bool
	Count         uint64
	HasBranches   bool
	BranchesTaken int
	BranchesTotal int
}

// FileFunction is one merged function row of a file page.
type FileFunction struct {
	Name      string
	StartLine uint32
	Count     uint64
}

// FileData is the per-file page context.
type FileData struct {
	Path          string
	Generated     time.Time
	SourceMissing bool
	Lines         []AnnotatedLine
	Functions     []FileFunction
	Summary       report.Summary
	LinePercent   float64
	BranchPercent float64
}

// Render writes the full report tree and returns the entry page path, or
// "" when the snapshot admits no files. The tree is built in a temporary
// sibling directory and renamed over the old report in one step, so a
// failed render never leaves a half-written tree that looks complete.
func Render(ctx context.Context, snap *report.Snapshot, opts Options) (string, error) {
	if len(snap.Files) == 0 {
		return "", nil
	}
	pkg, err := loadTemplates(opts.TemplatesRoot, templateName(opts))
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(opts.CovDir, ReportDirName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create report staging directory in %q: %w", opts.CovDir, err)
	}
	defer os.RemoveAll(tmpDir)

	generated := time.Now()

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(snap.Files)))
	for _, file := range snap.Files {
		file := file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			progress.Emit(opts.Progress, progress.Event{File: file.Path, Stage: progress.StageRender, Status: progress.StatusWorking})
			err := renderFilePage(pkg, file, generated, opts, tmpDir)
			status := progress.StatusDone
			if err != nil {
				status = progress.StatusError
			}
			progress.Emit(opts.Progress, progress.Event{File: file.Path, Stage: progress.StageRender, Status: status, Err: err})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := renderIndexPage(pkg, snap, generated, tmpDir); err != nil {
		return "", err
	}

	finalDir := filepath.Join(opts.CovDir, ReportDirName)
	if err := os.RemoveAll(finalDir); err != nil {
		return "", fmt.Errorf("failed to remove old report %q: %w", finalDir, err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return "", fmt.Errorf("failed to move report into place at %q: %w", finalDir, err)
	}
	return filepath.Join(finalDir, entryPageName), nil
}

func templateName(opts Options) string {
	if opts.Template == "" {
		return "html"
	}
	return opts.Template
}

// PageName returns the report-tree file name for a source path. The path is
// flattened and suffixed with a short hash so distinct paths never collide.
func PageName(path string) string {
	sum := sha256.Sum256([]byte(path))
	flat := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "<", "_", ">", "_", " ", "_").Replace(path)
	return fmt.Sprintf("%s.%s.html", flat, hex.EncodeToString(sum[:4]))
}

func renderIndexPage(pkg *templatePackage, snap *report.Snapshot, generated time.Time, dir string) error {
	data := IndexData{
		Generated:     generated,
		Total:         snap.Total,
		LinePercent:   snap.Total.LinePercent(),
		BranchPercent: snap.Total.BranchPercent(),
	}
	for _, file := range snap.Files {
		data.Files = append(data.Files, IndexRow{
			Path:          file.Path,
			Page:          PageName(file.Path),
			Summary:       file.Summary,
			LinePercent:   file.Summary.LinePercent(),
			BranchPercent: file.Summary.BranchPercent(),
		})
	}
	return writePage(pkg.index, filepath.Join(dir, entryPageName), data)
}

func renderFilePage(pkg *templatePackage, file *report.FileReport, generated time.Time, opts Options, dir string) error {
	data := FileData{
		Path:          file.Path,
		Generated:     generated,
		Summary:       file.Summary,
		LinePercent:   file.Summary.LinePercent(),
		BranchPercent: file.Summary.BranchPercent(),
	}
	for _, fn := range file.Functions {
		data.Functions = append(data.Functions, FileFunction{
			Name:      fn.Name,
			StartLine: fn.StartLine,
			Count:     fn.Count,
		})
	}

	text, ok := readSource(file, opts.ProjectRoot)
	if !ok {
		// Soft failure: the file moved or was deleted since compilation
		// (or never existed, for macro pseudo-files). The page still
		// renders, marked source-unavailable, with per-line counts only.
		data.SourceMissing = true
		for _, lc := range file.Lines {
			data.Lines = append(data.Lines, annotate(lc, int(lc.Line), ""))
		}
	} else {
		byLine := make(map[int]report.LineCoverage, len(file.Lines))
		for _, lc := range file.Lines {
			byLine[int(lc.Line)] = lc
		}
		for i, line := range text {
			n := i + 1
			if lc, ok := byLine[n]; ok {
				data.Lines = append(data.Lines, annotate(lc, n, line))
			} else {
				data.Lines = append(data.Lines, AnnotatedLine{Number: n, Text: line})
			}
		}
	}
	return writePage(pkg.file, filepath.Join(dir, PageName(file.Path)), data)
}

func annotate(lc report.LineCoverage, n int, text string) AnnotatedLine {
	return AnnotatedLine{
		Number:        n,
		Text:          text,
		Instrumented:  true,
		Count:         lc.Count,
		HasBranches:   lc.HasBranches,
		BranchesTaken: lc.BranchesTaken,
		BranchesTotal: lc.BranchesTotal,
	}
}

func readSource(file *report.FileReport, projectRoot string) ([]string, bool) {
	if file.Class == sourcepath.Macros {
		return nil, false
	}
	path := file.Path
	if !filepath.IsAbs(path) && projectRoot != "" {
		path = filepath.Join(projectRoot, filepath.FromSlash(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	return lines, true
}

func writePage(t *template.Template, path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report page %q: %w", path, err)
	}
	if err := t.Execute(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
