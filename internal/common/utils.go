package common

import "strings"

// HasSuffixAny returns the first of suffixes that s ends with, and whether
// there was one.
func HasSuffixAny(s string, suffixes ...string) (string, bool) {
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(s, suffix) {
			return suffix, true
		}
	}
	return "", false
}

// SplitList splits a comma separated list, trimming blanks and dropping
// empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
