// Package fuzzy provides title normalization and similarity scoring for
// duplicate suppression.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize lowercases a title and strips diacritics so that accented and
// plain spellings compare equal.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	return strings.TrimSpace(text)
}

// Ratio computes a normalized sequence similarity in [0,1] between two
// strings, where 1 means identical. It is 2*LCS/(len(a)+len(b)), the same
// shape as a sequence-matcher ratio.
func Ratio(a, b string) float64 {
	if a == b {
		if len(a) == 0 {
			return 0.0
		}
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	lcs := longestCommonSubsequence(a, b)
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}

// TooSimilar reports whether two titles are near-duplicates. An active forced
// keyword is stripped from both sides first so the keyword itself cannot
// inflate the score. Either title being empty yields false: no similarity
// claim without data.
func TooSimilar(titleA, titleB, forcedKeyword string, threshold float64) bool {
	if titleA == "" || titleB == "" {
		return false
	}
	a, b := Normalize(titleA), Normalize(titleB)
	if fk := Normalize(forcedKeyword); fk != "" {
		a = strings.TrimSpace(strings.ReplaceAll(a, fk, ""))
		b = strings.TrimSpace(strings.ReplaceAll(b, fk, ""))
	}
	// Titles that collapse to the same string are duplicates outright. This
	// covers two titles that are nothing but the forced keyword, which strip
	// down to empty strings and would otherwise score zero.
	if a == b {
		return true
	}
	return Ratio(a, b) > threshold
}

func longestCommonSubsequence(s1, s2 string) int {
	m, n := len(s1), len(s2)
	prev := make([]int, n+1)
	cur := make([]int, n+1)

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}

	return prev[n]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
