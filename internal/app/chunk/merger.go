package chunk

import (
	"strings"
)

// Result is the outcome of transcribing one planned chunk. Created by the
// Executor, consumed read-only by Merge.
type Result struct {
	Spec        Spec
	Text        string
	Language    string
	Failed      bool
	ErrorDetail string
}

// boundaryWindow caps how many words on each side of a chunk boundary are
// searched for an overlap match.
const boundaryWindow = 50

// Merge stitches ordered chunk results into a single transcript,
// deduplicating words repeated across the deliberate chunk overlap. Failed
// chunks are skipped; the surviving chunks are treated as contiguous, so a
// gap left by a failed chunk can still produce a boundary match. Merging is
// deterministic and order-dependent.
func Merge(results []Result) string {
	var texts []string
	for _, r := range results {
		if r.Failed {
			continue
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return ""
	}

	merged := texts[0]
	for _, current := range texts[1:] {
		mergedWords := strings.Fields(merged)
		currentWords := strings.Fields(current)

		trailing := tailWords(mergedWords, boundaryWindow)
		leading := headWords(currentWords, boundaryWindow)

		overlap := longestBoundaryOverlap(trailing, leading)
		if overlap > 0 {
			rest := currentWords[overlap:]
			if len(rest) > 0 {
				merged += " " + strings.Join(rest, " ")
			}
		} else {
			merged += " " + current
		}
	}
	return strings.TrimSpace(merged)
}

// longestBoundaryOverlap finds the largest L for which the last L words of
// trailing equal the first L words of leading. Matching is exact and
// case-sensitive; longest match wins.
func longestBoundaryOverlap(trailing, leading []string) int {
	max := len(trailing)
	if len(leading) < max {
		max = len(leading)
	}
	for l := max; l >= 1; l-- {
		if wordsEqual(trailing[len(trailing)-l:], leading[:l]) {
			return l
		}
	}
	return 0
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tailWords(words []string, n int) []string {
	if len(words) <= n {
		return words
	}
	return words[len(words)-n:]
}

func headWords(words []string, n int) []string {
	if len(words) <= n {
		return words
	}
	return words[:n]
}
