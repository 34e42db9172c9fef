package core

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const slugMaxLen = 100

var (
	reSlugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reSlugHyphens  = regexp.MustCompile(`-+`)
)

// Slugify lowers `s`, strips diacritics (é -> e) and joins the remaining alphanumeric runs with "-".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	buf := make([]rune, 0, len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		buf = append(buf, r)
	}
	s = reSlugNonAlnum.ReplaceAllString(string(buf), "-")
	s = reSlugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if utf8.RuneCountInString(s) > slugMaxLen {
		s = strings.Trim(s[:slugMaxLen], "-")
	}
	if s == "" {
		s = "item"
	}
	return s
}

// SlugCandidate returns the n-th candidate for `base`: base, base-1, base-2, ...
func SlugCandidate(base string, n int) string {
	if n <= 0 {
		return base
	}
	suffix := "-" + strconv.Itoa(n)
	if len(base)+len(suffix) > slugMaxLen {
		base = strings.Trim(base[:slugMaxLen-len(suffix)], "-")
	}
	return base + suffix
}
