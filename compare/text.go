package compare

import (
	"strings"

	"echopost/config"
)

// TextMatch reports whether two substantial texts are duplicates of each other:
// identical after trimming, or near-identical reposts where the first 30
// characters match case-insensitively and the lengths differ by fewer than 10
// characters. The near-match rule catches reposts with minor edits at the tail.
//
// Texts of 20 characters or fewer never match; short captions carry too little
// signal and empty media-only posts are handled by their own media comparison.
func TextMatch(a, b string) bool {
	ra := []rune(strings.TrimSpace(a))
	rb := []rune(strings.TrimSpace(b))
	if len(ra) <= config.TextMatchMinLength || len(rb) <= config.TextMatchMinLength {
		return false
	}

	if string(ra) == string(rb) {
		return true
	}

	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if diff >= config.TextMatchLengthSlack {
		return false
	}

	pa := prefix(ra, config.TextMatchPrefixLength)
	pb := prefix(rb, config.TextMatchPrefixLength)
	return strings.EqualFold(pa, pb)
}

func prefix(r []rune, n int) string {
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
