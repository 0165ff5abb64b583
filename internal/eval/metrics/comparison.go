package metrics

import (
	"sort"
	"strings"
	"unicode"
)

// CaptionComparison represents the comparison of one generated caption
// against its reference
type CaptionComparison struct {
	Generated string
	Reference string
	TokenF1   float64 // word-level overlap F1
	CharSim   float64 // Levenshtein-based similarity
	Score     float64 // blended score, 0.0 to 1.0
}

// Summary aggregates comparison scores across an evaluation run
type Summary struct {
	Total        int
	Evaluated    int
	Fallbacks    int
	Missing      int
	AverageScore float64
	MedianScore  float64
	MinScore     float64
	MaxScore     float64
}

// CompareCaptions scores a generated caption against the reference. Both
// sides are lowercased and stripped of punctuation before comparison, so
// "Red apple." matches "red apple".
func CompareCaptions(generated, reference string) *CaptionComparison {
	comparison := &CaptionComparison{
		Generated: generated,
		Reference: reference,
	}

	genNorm := normalize(generated)
	refNorm := normalize(reference)

	comparison.TokenF1 = tokenF1(strings.Fields(genNorm), strings.Fields(refNorm))
	comparison.CharSim = calculateSimilarity(genNorm, refNorm)

	// Token overlap dominates: captions are a handful of words and word
	// choice matters more than spelling distance.
	comparison.Score = 0.7*comparison.TokenF1 + 0.3*comparison.CharSim

	return comparison
}

// Summarize aggregates the per-caption scores
func Summarize(scores []float64) Summary {
	summary := Summary{Evaluated: len(scores)}
	if len(scores) == 0 {
		return summary
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	var total float64
	for _, score := range sorted {
		total += score
	}
	summary.AverageScore = total / float64(len(sorted))

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		summary.MedianScore = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		summary.MedianScore = sorted[mid]
	}

	summary.MinScore = sorted[0]
	summary.MaxScore = sorted[len(sorted)-1]

	return summary
}

// normalize lowercases and strips punctuation, collapsing whitespace
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenF1 computes the word-overlap F1 between two token lists
func tokenF1(generated, reference []string) float64 {
	if len(generated) == 0 || len(reference) == 0 {
		return 0.0
	}

	refCounts := make(map[string]int, len(reference))
	for _, token := range reference {
		refCounts[token]++
	}

	matched := 0
	for _, token := range generated {
		if refCounts[token] > 0 {
			refCounts[token]--
			matched++
		}
	}

	if matched == 0 {
		return 0.0
	}

	precision := float64(matched) / float64(len(generated))
	recall := float64(matched) / float64(len(reference))

	return 2 * precision * recall / (precision + recall)
}

// calculateSimilarity calculates similarity ratio (0.0 to 1.0) using Levenshtein distance
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	distance := levenshteinDistance(s1, s2)
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}

	return 1.0 - (float64(distance) / float64(maxLen))
}

// levenshteinDistance calculates the Levenshtein distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	if len(s1) == 0 {
		return len(s2)
	}

	if len(s2) == 0 {
		return len(s1)
	}

	rows := len(s1) + 1
	cols := len(s2) + 1
	matrix := make([][]int, rows)
	for i := range matrix {
		matrix[i] = make([]int, cols)
	}

	for i := 0; i < rows; i++ {
		matrix[i][0] = i
	}
	for j := 0; j < cols; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			deletion := matrix[i-1][j] + 1
			insertion := matrix[i][j-1] + 1
			substitution := matrix[i-1][j-1] + cost

			matrix[i][j] = min(deletion, min(insertion, substitution))
		}
	}

	return matrix[rows-1][cols-1]
}
