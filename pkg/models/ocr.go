package models

// OCRLine is one normalized detection line. Text may be empty, Bbox may be
// empty, Confidence is always within [0,1].
type OCRLine struct {
	Text       string      `json:"text"`
	Bbox       [][]float64 `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// OCRPageResult holds the outcome for a single page. Page numbers are 1-based
// and match the input document order. Status "error" implies Lines is empty.
type OCRPageResult struct {
	Page   int       `json:"page"`
	Lines  []OCRLine `json:"lines"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

const (
	PageStatusSuccess = "success"
	PageStatusError   = "error"
)

// TextQuality compares the recognized text against a caller-supplied
// reference. Rates above 1.0 are possible when the hypothesis is much longer
// than the reference.
type TextQuality struct {
	ExpectedText string  `json:"expected_text"`
	WER          float64 `json:"word_error_rate"`
	CER          float64 `json:"character_error_rate"`
}

// OCRMetadata describes one processed request.
type OCRMetadata struct {
	Filename       string       `json:"filename"`
	Profile        string       `json:"profile"`
	Enhancement    string       `json:"enhancement,omitempty"`
	ProcessingTime float64      `json:"processing_time"`
	TotalPages     int          `json:"total_pages"`
	TotalLines     int          `json:"total_lines"`
	Quality        *TextQuality `json:"quality,omitempty"`
}

// OCRResponse is the canonical result of one request. The text and HTML
// output formats are pure projections of this structure.
type OCRResponse struct {
	Status   string          `json:"status"`
	Results  []OCRPageResult `json:"results"`
	Metadata OCRMetadata     `json:"metadata"`
}

// TotalLines sums detected lines across all pages.
func TotalLines(results []OCRPageResult) int {
	total := 0
	for _, page := range results {
		total += len(page.Lines)
	}
	return total
}

// HealthStatus is the GET /health payload.
type HealthStatus struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	Profiles         []string `json:"profiles"`
	BackendWorking   bool     `json:"ocr_backend_working"`
	BackendLanguages []string `json:"ocr_backend_languages,omitempty"`
	RasterizerReady  bool     `json:"rasterizer_ready"`
	Error            string   `json:"error,omitempty"`
}
