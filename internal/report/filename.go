package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Storage key modes.
const (
	KeyModeBusinessName = "business_name"
	KeyModeTimestamp    = "timestamp"
)

// StorageKey derives the object key for a report. In business_name mode the
// key is the folded business name with every run of non-alphanumeric
// characters replaced by one underscore, so resubmissions overwrite the same
// object. Timestamp mode, or a name with nothing usable left, yields
// Business_AI_Report_<unix-ms>.pdf.
func StorageKey(mode, businessName string, now time.Time) string {
	if mode != KeyModeTimestamp {
		if slug := slugify(businessName); slug != "" {
			return slug + ".pdf"
		}
	}
	return fmt.Sprintf("Business_AI_Report_%d.pdf", now.UnixMilli())
}

func slugify(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
