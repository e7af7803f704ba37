package matcher

import (
	"unicode"

	"mvdan.cc/xurls/v2"
)

// urlPattern also finds links written without a scheme, such as shortener hosts.
var urlPattern = xurls.Relaxed()

// IsNonsense reports whether text carries too little content to be fact-checked:
// after links are removed it must keep at least minRunes letters or digits.
// A non-positive minRunes disables the check.
func IsNonsense(text string, minRunes int) bool {
	if minRunes <= 0 {
		return false
	}

	content := urlPattern.ReplaceAllString(text, "")

	count := 0
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			count++
			if count >= minRunes {
				return false
			}
		}
	}

	return true
}
