package symbol

import "testing"

func TestDemangleLegacyRust(t *testing.T) {
	// _ZN4demo3run17h1234567890abcdefE -> demo::run (hash stripped)
	got := Demangle("_ZN4demo3run17h1234567890abcdefE")
	if got != "demo::run" {
		t.Fatalf("Demangle = %q, want demo::run", got)
	}
}

func TestDemangleFallsBackVerbatim(t *testing.T) {
	raw := "not_a_mangled_symbol"
	if got := Demangle(raw); got != raw {
		t.Fatalf("undecodable symbol should pass through, got %q", got)
	}
}

func TestStripHashSuffix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"demo::run::h0011223344556677", "demo::run"},
		{"demo::run::hash_function", "demo::run::hash_function"}, // not a hash
		{"demo::run::h00zz", "demo::run::h00zz"},                 // wrong length
	}
	for _, tc := range cases {
		if got := stripHashSuffix(tc.in); got != tc.want {
			t.Errorf("stripHashSuffix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTableMergesDuplicateInstances(t *testing.T) {
	tbl := NewTable()
	// Two generic instantiations of the same source function.
	tbl.Add("_ZN4demo7combine17h1111111111111111E", "src/lib.rs", 5, 3, []uint32{5, 6})
	tbl.Add("_ZN4demo7combine17h2222222222222222E", "src/lib.rs", 5, 4, []uint32{5, 7})
	// A different function on the same line of a different file.
	tbl.Add("_ZN4demo5otherE", "src/other.rs", 5, 1, []uint32{5})

	recs := tbl.Records()
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	merged := recs[0]
	if merged.Name != "demo::combine" || merged.Count != 7 {
		t.Fatalf("merged record = %q count %d, want demo::combine count 7", merged.Name, merged.Count)
	}
	for _, line := range []uint32{5, 6, 7} {
		if !merged.Lines[line] {
			t.Fatalf("merged record missing line %d", line)
		}
	}
}
