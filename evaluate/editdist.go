// Package evaluate scores transcripts against reference text.
package evaluate

import "strings"

// EditDistance computes the Levenshtein distance between two sequences.
func EditDistance[T comparable](a, b []T) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Use single-row DP to save memory.
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// WER returns the word error rate of hyp against ref: word-level edit
// distance divided by the reference word count. An empty reference yields
// 0 for an empty hypothesis and 1 otherwise.
func WER(ref, hyp string) float64 {
	return rate(strings.Fields(ref), strings.Fields(hyp))
}

// CER returns the character error rate of hyp against ref, computed over
// runes after collapsing runs of whitespace.
func CER(ref, hyp string) float64 {
	return rate(normalizeRunes(ref), normalizeRunes(hyp))
}

func rate[T comparable](ref, hyp []T) float64 {
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}
	return float64(EditDistance(ref, hyp)) / float64(len(ref))
}

func normalizeRunes(s string) []rune {
	return []rune(strings.Join(strings.Fields(s), " "))
}
