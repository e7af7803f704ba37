package matcher

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/unicode/norm"
)

var dice = &metrics.SorensenDice{CaseSensitive: true, NgramSize: 2}

// Normalize folds compatibility forms and drops every whitespace rune so that
// two messages differing only in layout compare equal.
func Normalize(text string) string {
	folded := norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Similarity scores two texts in [0,1] with the bigram Dice coefficient over
// their normalized forms.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if len([]rune(na)) < 2 || len([]rune(nb)) < 2 {
		return 0
	}

	return strutil.Similarity(na, nb, dice)
}
