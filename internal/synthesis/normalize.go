package synthesis

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// normalizeName standardizes a scenario name for deduplication by trimming,
// uppercasing, stripping punctuation, and collapsing runs of whitespace.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"/", " ",
		"(", "",
		")", "",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// dedupKey builds the grouping key for a scenario: its category plus a fixed
// length prefix of the normalized name. Near-identical names from different
// sources land in the same group.
func dedupKey(category, name string, prefixLen int) string {
	norm := normalizeName(name)
	// Prefix by runes so a multibyte character is never cut in half.
	if runes := []rune(norm); prefixLen > 0 && len(runes) > prefixLen {
		norm = string(runes[:prefixLen])
	}
	return strings.ToLower(strings.TrimSpace(category)) + "|" + norm
}
