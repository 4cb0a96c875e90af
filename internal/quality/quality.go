// Package quality compares recognized text against a caller-supplied
// reference transcription.
package quality

import (
	"strings"

	"github.com/arbovm/levenshtein"

	"go-ocr-service/pkg/models"
)

// Compare computes word and character error rates of the recognized text
// against the expected text. Rates are edit distance over reference length
// and may exceed 1.0 when the hypothesis is much longer than the reference.
func Compare(expected string, results []models.OCRPageResult) *models.TextQuality {
	recognized := collectText(results)

	return &models.TextQuality{
		ExpectedText: expected,
		WER:          wordErrorRate(expected, recognized),
		CER:          characterErrorRate(expected, recognized),
	}
}

func collectText(results []models.OCRPageResult) string {
	var parts []string
	for _, page := range results {
		for _, line := range page.Lines {
			if line.Text != "" {
				parts = append(parts, line.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func characterErrorRate(expected, recognized string) float64 {
	ref := []rune(strings.TrimSpace(expected))
	if len(ref) == 0 {
		return 0
	}
	dist := levenshtein.Distance(string(ref), strings.TrimSpace(recognized))
	return float64(dist) / float64(len(ref))
}

func wordErrorRate(expected, recognized string) float64 {
	ref := strings.Fields(expected)
	if len(ref) == 0 {
		return 0
	}
	hyp := strings.Fields(recognized)
	return float64(wordEditDistance(ref, hyp)) / float64(len(ref))
}

// wordEditDistance is levenshtein distance over word tokens.
func wordEditDistance(ref, hyp []string) int {
	prev := make([]int, len(hyp)+1)
	curr := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ref); i++ {
		curr[0] = i
		for j := 1; j <= len(hyp); j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(hyp)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
