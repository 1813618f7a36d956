package uploadqueue

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var titleFolder = cases.Fold()

// NormalizeTitle reduces a title to its comparison form: Unicode case fold,
// punctuation and symbols stripped, whitespace collapsed. The result is
// idempotent under repeated normalization.
func NormalizeTitle(title string) string {
	folded := titleFolder.String(title)
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(stripped), " ")
}

// IsDuplicate reports whether a candidate title collides with an existing
// item in the snapshot. Titles are generated deterministically from source
// content, so re-running generation for unchanged content produces the same
// titles; matching against queue history keeps those reruns from enqueuing
// twice. Permanently failed items fall outside the dedup horizon so a fixed
// artifact can be resubmitted.
func IsDuplicate(candidateTitle string, existing []Item) bool {
	normalized := NormalizeTitle(candidateTitle)
	if normalized == "" {
		return false
	}
	for _, item := range existing {
		if item.Status == StatusFailed {
			continue
		}
		if NormalizeTitle(item.Title) == normalized {
			return true
		}
	}
	return false
}
