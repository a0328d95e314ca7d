// Package symbol turns raw compiler-mangled function identifiers into
// display names and folds compiler-duplicated instances of one logical
// source function (generic instantiations, inlined copies) into a single
// record.
package symbol

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Demangle resolves a raw symbol to a human-readable name. Legacy Rust
// symbols carry a trailing disambiguation hash (::h0123456789abcdef) that
// would defeat instance merging, so it is stripped. A symbol that cannot
// be demangled is returned verbatim; that degrades the display only.
func Demangle(raw string) string {
	name := demangle.Filter(raw)
	return stripHashSuffix(name)
}

func stripHashSuffix(name string) string {
	i := strings.LastIndex(name, "::h")
	if i < 0 || len(name)-i-3 != 16 {
		return name
	}
	for _, c := range name[i+3:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return name
		}
	}
	return name[:i]
}
