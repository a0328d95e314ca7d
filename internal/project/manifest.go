// Package project locates the covered project and the tool's optional
// covr.toml manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the optional per-project configuration file.
const ManifestName = "covr.toml"

// Config is the covr.toml schema. Every field has a flag equivalent; flags
// win over the manifest.
type Config struct {
	Report ReportConfig `toml:"report"`
	Build  BuildConfig  `toml:"build"`
}

// ReportConfig configures report generation.
type ReportConfig struct {
	Template      string   `toml:"template"`
	Include       []string `toml:"include"`
	CountExcluded bool     `toml:"count-excluded"`
}

// BuildConfig configures the instrumented build.
type BuildConfig struct {
	Target    string `toml:"target"`
	TargetDir string `toml:"target-dir"`
}

// Manifest is a located and parsed covr.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir looking for covr.toml. When none exists the
// project root falls back to startDir and the config stays zero.
func Find(startDir string) (*Manifest, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for probe := dir; ; {
		candidate := filepath.Join(probe, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			m := &Manifest{Path: candidate, Root: probe}
			if _, err := toml.DecodeFile(candidate, &m.Config); err != nil {
				return nil, fmt.Errorf("failed to parse %q: %w", candidate, err)
			}
			return m, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}
	return &Manifest{Root: dir}, nil
}

// CovBuildPath is the coverage build path: where instrumented builds drop
// their graph/count files and where the report and cache live.
func (m *Manifest) CovBuildPath() string {
	dir := m.Config.Build.TargetDir
	if dir == "" {
		dir = filepath.Join("target", "cov")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.Root, dir)
	}
	return filepath.Join(dir, "build")
}
