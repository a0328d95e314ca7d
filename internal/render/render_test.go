package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"covr/internal/report"
)

func snapshotFor(path string) *report.Snapshot {
	fr := &report.FileReport{
		Path: path,
		Lines: []report.LineCoverage{
			{Line: 1, Count: 2},
			{Line: 2, Count: 0},
		},
		Summary: report.Summary{LinesCovered: 1, LinesInstrumented: 2},
	}
	return &report.Snapshot{
		Files: []*report.FileReport{fr},
		Total: fr.Summary,
	}
}

func TestRenderProducesTree(t *testing.T) {
	covDir := t.TempDir()
	projectRoot := t.TempDir()
	src := filepath.Join(projectRoot, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "main.rs"), []byte("fn main() {\n    body();\n}\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	entry, err := Render(context.Background(), snapshotFor("src/main.rs"), Options{
		CovDir:      covDir,
		ProjectRoot: projectRoot,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if entry != filepath.Join(covDir, ReportDirName, "index.html") {
		t.Fatalf("entry = %q", entry)
	}
	index, err := os.ReadFile(entry)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "src/main.rs") {
		t.Fatalf("index does not list the file")
	}

	page, err := os.ReadFile(filepath.Join(covDir, ReportDirName, PageName("src/main.rs")))
	if err != nil {
		t.Fatalf("read file page: %v", err)
	}
	if !strings.Contains(string(page), "fn main()") {
		t.Fatalf("file page does not interleave source text")
	}
	if strings.Contains(string(page), "unavailable") {
		t.Fatalf("file page wrongly marks source unavailable")
	}
}

func TestRenderMissingSource(t *testing.T) {
	covDir := t.TempDir()
	entry, err := Render(context.Background(), snapshotFor("src/deleted.rs"), Options{
		CovDir:      covDir,
		ProjectRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("a missing source file must not abort the report: %v", err)
	}
	page, err := os.ReadFile(filepath.Join(covDir, ReportDirName, PageName("src/deleted.rs")))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(page), "unavailable") {
		t.Fatalf("page should state the source is unavailable")
	}
	index, err := os.ReadFile(entry)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "src/deleted.rs") {
		t.Fatalf("the file must still appear in the index")
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	entry, err := Render(context.Background(), &report.Snapshot{}, Options{CovDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if entry != "" {
		t.Fatalf("zero admitted files must yield no entry page, got %q", entry)
	}
}

func TestRenderUnknownTemplatePackage(t *testing.T) {
	_, err := Render(context.Background(), snapshotFor("src/main.rs"), Options{
		CovDir:   t.TempDir(),
		Template: "no-such-package",
	})
	var tnf *TemplateNotFoundError
	if !errors.As(err, &tnf) {
		t.Fatalf("got %v, want TemplateNotFoundError", err)
	}
}

func TestRenderOnDiskTemplateOverride(t *testing.T) {
	covDir := t.TempDir()
	tmplRoot := t.TempDir()
	pkg := filepath.Join(tmplRoot, "plain")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTmpl := func(name, body string) {
		if err := os.WriteFile(filepath.Join(pkg, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	writeTmpl("index.html.tmpl", "INDEX {{len .Files}} files")
	writeTmpl("file.html.tmpl", "FILE {{.Path}}")

	entry, err := Render(context.Background(), snapshotFor("src/main.rs"), Options{
		CovDir:        covDir,
		TemplatesRoot: tmplRoot,
		Template:      "plain",
		ProjectRoot:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	index, err := os.ReadFile(entry)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(index) != "INDEX 1 files" {
		t.Fatalf("index = %q, custom template not used", index)
	}
}

func TestRenderIncompleteTemplatePackage(t *testing.T) {
	tmplRoot := t.TempDir()
	pkg := filepath.Join(tmplRoot, "broken")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "index.html.tmpl"), []byte("INDEX"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	_, err := Render(context.Background(), snapshotFor("src/main.rs"), Options{
		CovDir:        t.TempDir(),
		TemplatesRoot: tmplRoot,
		Template:      "broken",
	})
	var tnf *TemplateNotFoundError
	if !errors.As(err, &tnf) {
		t.Fatalf("got %v, want TemplateNotFoundError for a package missing its file template", err)
	}
}

func TestPageNameIsStableAndCollisionResistant(t *testing.T) {
	a := PageName("src/main.rs")
	if a != PageName("src/main.rs") {
		t.Fatalf("page names must be deterministic")
	}
	if a == PageName("src_main.rs") {
		t.Fatalf("paths flattening to the same name must still differ")
	}
}
