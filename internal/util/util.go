// Package util provides common string and version helpers used across the extension.
package util

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// TitleCase capitalises each word of a game object name for display.
// Sheet names arrive lower-cased ("island apple tree"); lang selects
// the casing rules and falls back to English when unparseable.
func TitleCase(s, lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return cases.Title(tag, cases.NoLower).String(s)
}

// CompareVersion compares dotted version strings component by component.
// Missing or non-numeric components count as zero. Returns -1, 0 or 1.
func CompareVersion(a, b string) int {
	as := strings.Split(strings.TrimPrefix(strings.TrimSpace(a), "v"), ".")
	bs := strings.Split(strings.TrimPrefix(strings.TrimSpace(b), "v"), ".")
	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		av, bv := versionPart(as, i), versionPart(bs, i)
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return v
}
