package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	manifest := `
[report]
template = "text"
include = ["local", "crates"]

[build]
target = "i686-unknown-linux-gnu"
target-dir = "build/coverage"
`
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := Find(nested)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if m.Root != root {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
	if m.Config.Report.Template != "text" {
		t.Fatalf("template = %q", m.Config.Report.Template)
	}
	if len(m.Config.Report.Include) != 2 {
		t.Fatalf("include = %v", m.Config.Report.Include)
	}
	if m.Config.Build.Target != "i686-unknown-linux-gnu" {
		t.Fatalf("target = %q", m.Config.Build.Target)
	}
	want := filepath.Join(root, "build", "coverage", "build")
	if got := m.CovBuildPath(); got != want {
		t.Fatalf("CovBuildPath = %q, want %q", got, want)
	}
}

func TestFindWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if m.Path != "" {
		t.Fatalf("no manifest should mean no path, got %q", m.Path)
	}
	if m.Root != dir {
		t.Fatalf("root should fall back to the start directory")
	}
	want := filepath.Join(dir, "target", "cov", "build")
	if got := m.CovBuildPath(); got != want {
		t.Fatalf("CovBuildPath = %q, want %q", got, want)
	}
}
