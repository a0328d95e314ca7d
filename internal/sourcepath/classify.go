// Package sourcepath assigns every source path recorded in a graph file to
// a provenance category, and filters report content by an allow-set of
// categories. Without the filter, dependency and toolchain sources drown
// the project's own code in the report.
package sourcepath

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Classification is the provenance category of one source path. Every path
// maps to exactly one category.
type Classification int

const (
	// Unknown covers paths matching no other category.
	Unknown Classification = iota
	// Local is the project's own source tree.
	Local
	// Macros is a synthesized pseudo-file produced by macro expansion; it
	// exists only as an angle-bracketed name, never on disk.
	Macros
	// RustSrc is the toolchain's own distributed source.
	RustSrc
	// Crates is the fetched external-dependency cache.
	Crates
)

var classificationNames = map[Classification]string{
	Unknown: "unknown",
	Local:   "local",
	Macros:  "macros",
	RustSrc: "rustsrc",
	Crates:  "crates",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("classification(%d)", int(c))
}

// Roots are the directory prefixes classification checks against.
type Roots struct {
	Project string // the project's own source root
	Crates  string // external-dependency cache root ($CARGO_HOME/registry/src)
	RustSrc string // toolchain source root, may be empty
}

// DetectRoots fills in the non-project roots from the environment.
func DetectRoots(projectRoot string) Roots {
	r := Roots{Project: projectRoot}
	cargoHome := os.Getenv("CARGO_HOME")
	if cargoHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cargoHome = filepath.Join(home, ".cargo")
		}
	}
	if cargoHome != "" {
		r.Crates = filepath.Join(cargoHome, "registry", "src")
	}
	r.RustSrc = os.Getenv("RUST_SRC_PATH")
	return r
}

// Classify assigns the single category of path. Relative paths resolve
// against the project root and classify as Local.
func (r Roots) Classify(path string) Classification {
	if strings.HasPrefix(path, "<") && strings.HasSuffix(path, ">") {
		return Macros
	}
	slashed := filepath.ToSlash(path)
	if under(path, r.Crates) || strings.Contains(slashed, "/.cargo/registry/") {
		return Crates
	}
	if under(path, r.RustSrc) || strings.Contains(slashed, "/rustc/") || strings.Contains(slashed, "/lib/rustlib/src/") {
		return RustSrc
	}
	if !filepath.IsAbs(path) {
		return Local
	}
	if under(path, r.Project) {
		return Local
	}
	return Unknown
}

func under(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Set is an allow-set of classifications.
type Set struct {
	all     bool
	allowed map[Classification]bool
}

// DefaultSet admits Local sources only.
func DefaultSet() Set {
	return Set{allowed: map[Classification]bool{Local: true}}
}

// ParseSet parses comma-separated category names; "all" is a wildcard
// admitting every category.
func ParseSet(names []string) (Set, error) {
	s := Set{allowed: make(map[Classification]bool)}
	byName := make(map[string]Classification, len(classificationNames))
	for c, name := range classificationNames {
		byName[name] = c
	}
	for _, field := range names {
		for _, name := range strings.Split(field, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == "all" {
				s.all = true
				continue
			}
			c, ok := byName[name]
			if !ok {
				return Set{}, fmt.Errorf("unknown source type %q (expected local, macros, rustsrc, crates, unknown or all)", name)
			}
			s.allowed[c] = true
		}
	}
	if !s.all && len(s.allowed) == 0 {
		return DefaultSet(), nil
	}
	return s, nil
}

// Admits reports whether the set allows the category.
func (s Set) Admits(c Classification) bool {
	return s.all || s.allowed[c]
}

// String renders the set canonically, for fingerprinting and display.
func (s Set) String() string {
	if s.all {
		return "all"
	}
	names := make([]string, 0, len(s.allowed))
	for c, ok := range s.allowed {
		if ok {
			names = append(names, c.String())
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
