package report

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var pathCollator = collate.New(language.Und, collate.Numeric)

// naturalPathLess orders paths segment by segment with numeric-aware
// collation, so src/a2.rs sorts before src/a10.rs.
func naturalPathLess(a, b string) bool {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := pathCollator.CompareString(as[i], bs[i]); c != 0 {
			return c < 0
		}
	}
	return len(as) < len(bs)
}
