// Package cargo shells out to the external build tool. covr never parses
// cargo's own output; it only forwards subcommands with the environment an
// instrumented build needs and watches the exit status.
package cargo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner invokes cargo for one project.
type Runner struct {
	// Dir is the project root (where Cargo.toml lives).
	Dir string
	// CovDir is the coverage build path instrumented artifacts land in.
	CovDir string
	// Target is the optional target triple, forwarded as --target.
	Target string
	// Profiler optionally points at the profiling runtime library.
	Profiler string
}

// Forward runs `cargo <subcommand> args...` with instrumentation enabled
// and the coverage build directory selected. The child inherits stdio; the
// exit status propagates to the caller as an *exec.ExitError.
func (r *Runner) Forward(ctx context.Context, subcommand string, args []string) error {
	if err := os.MkdirAll(r.CovDir, 0o755); err != nil {
		return fmt.Errorf("failed to create coverage build path %q: %w", r.CovDir, err)
	}

	cmdArgs := []string{subcommand}
	if r.Target != "" {
		cmdArgs = append(cmdArgs, "--target", r.Target)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, "cargo", cmdArgs...)
	cmd.Dir = r.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = r.env()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cargo %s failed: %w", subcommand, err)
	}
	return nil
}

func (r *Runner) env() []string {
	env := os.Environ()
	env = append(env, "CARGO_TARGET_DIR="+filepath.Dir(r.CovDir))
	env = append(env, "CARGO_INCREMENTAL=0")

	rustflags := os.Getenv("RUSTFLAGS")
	flags := []string{"-Cpasses=insert-gcov-profiling", "-Ccodegen-units=1", "-Clink-dead-code", "-Zno-landing-pads"}
	if r.Profiler != "" {
		flags = append(flags, "-L"+filepath.Dir(r.Profiler))
	}
	if rustflags != "" {
		flags = append([]string{rustflags}, flags...)
	}
	env = append(env, "RUSTFLAGS="+strings.Join(flags, " "))
	return env
}

// Clean removes coverage artifacts under covDir. With countsOnly only the
// count files go (so the next run starts from zero without a rebuild);
// otherwise graph files go too. withReport also removes the report tree
// and the cache index.
func Clean(covDir string, countsOnly, withReport bool) error {
	exts := map[string]bool{".gcda": true}
	if !countsOnly {
		exts[".gcno"] = true
	}
	err := filepath.WalkDir(covDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !exts[filepath.Ext(path)] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clean %q: %w", covDir, err)
	}
	if withReport {
		for _, name := range []string{"report", "cache.mp"} {
			if err := os.RemoveAll(filepath.Join(covDir, name)); err != nil {
				return fmt.Errorf("failed to remove %q: %w", filepath.Join(covDir, name), err)
			}
		}
	}
	return nil
}
