package reports

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug lowercases s, strips diacritics, and collapses everything that is not an ASCII
// letter or digit into single hyphens.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Filename derives the export base name:
// <YYYY-MM-DD>-<YYYY-MM-DD>_<product>-<slug(title)>-report.
func Filename(start, end time.Time, product, title string) string {
	return fmt.Sprintf("%s-%s_%s-%s-report",
		start.Format(DateLayout),
		end.Format(DateLayout),
		product,
		Slug(title),
	)
}
