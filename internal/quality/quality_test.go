package quality

import (
	"math"
	"testing"

	"go-ocr-service/pkg/models"
)

func pageWithLines(page int, texts ...string) models.OCRPageResult {
	lines := make([]models.OCRLine, 0, len(texts))
	for _, text := range texts {
		lines = append(lines, models.OCRLine{Text: text, Confidence: 0.9, Bbox: [][]float64{}})
	}
	return models.OCRPageResult{Page: page, Lines: lines, Status: models.PageStatusSuccess}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompareIdenticalText(t *testing.T) {
	results := []models.OCRPageResult{pageWithLines(1, "le chat noir")}

	q := Compare("le chat noir", results)
	if q.WER != 0 || q.CER != 0 {
		t.Errorf("identical text should score zero, got WER=%v CER=%v", q.WER, q.CER)
	}
	if q.ExpectedText != "le chat noir" {
		t.Errorf("expected text must be echoed back, got %q", q.ExpectedText)
	}
}

func TestCompareSingleWordSubstitution(t *testing.T) {
	results := []models.OCRPageResult{pageWithLines(1, "le chien noir")}

	q := Compare("le chat noir", results)
	if !almostEqual(q.WER, 1.0/3.0) {
		t.Errorf("one of three words wrong, expected WER 1/3, got %v", q.WER)
	}
	// chat -> chien is 3 character edits over a 12 character reference
	if !almostEqual(q.CER, 0.25) {
		t.Errorf("expected CER 0.25, got %v", q.CER)
	}
}

func TestCompareJoinsLinesAcrossPages(t *testing.T) {
	results := []models.OCRPageResult{
		pageWithLines(1, "le chat"),
		pageWithLines(2, "noir"),
	}

	q := Compare("le chat noir", results)
	if q.WER != 0 {
		t.Errorf("lines split across pages should still match, got WER=%v", q.WER)
	}
}

func TestCompareSkipsEmptyLinesAndErrorPages(t *testing.T) {
	results := []models.OCRPageResult{
		pageWithLines(1, "le chat", "", "noir"),
		{Page: 2, Lines: []models.OCRLine{}, Status: models.PageStatusError, Error: "page failed"},
	}

	q := Compare("le chat noir", results)
	if q.WER != 0 {
		t.Errorf("empty lines must not add spurious tokens, got WER=%v", q.WER)
	}
}

func TestCompareEmptyExpectedText(t *testing.T) {
	results := []models.OCRPageResult{pageWithLines(1, "du texte reconnu")}

	q := Compare("", results)
	if q.WER != 0 || q.CER != 0 {
		t.Errorf("empty reference scores zero by convention, got WER=%v CER=%v", q.WER, q.CER)
	}
}

func TestCompareEmptyRecognition(t *testing.T) {
	q := Compare("le chat noir", nil)
	if q.WER != 1 {
		t.Errorf("nothing recognized means every word missed, got WER=%v", q.WER)
	}
	if q.CER != 1 {
		t.Errorf("nothing recognized means every character missed, got CER=%v", q.CER)
	}
}
