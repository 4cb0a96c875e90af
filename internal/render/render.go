package render

import (
	"fmt"
	"html/template"
	"strings"

	"go-ocr-service/pkg/models"
)

// Format selects one of the three output projections of an OCRResponse.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Parse validates an output_format query value.
func Parse(value string) (Format, error) {
	switch Format(value) {
	case FormatText, FormatJSON, FormatHTML:
		return Format(value), nil
	}
	return "", fmt.Errorf("unknown output format: %q", value)
}

const noEnhancementLabel = "Aucune"

// htmlDocument embeds the normalized results; user-supplied text is escaped
// by the template engine.
var htmlDocument = template.Must(template.New("ocr").Parse(`<html>
<head>
    <meta charset="utf-8">
    <title>Résultat OCR - {{.Metadata.Filename}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .metadata { background: #f5f5f5; padding: 10px; margin-bottom: 20px; }
        .page { border: 1px solid #ddd; margin: 10px 0; padding: 15px; }
        .line { margin: 5px 0; padding: 5px; background: #fafafa; }
        .confidence { color: #666; font-size: 0.9em; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>Résultat OCR</h1>
    <div class="metadata">
        <strong>Fichier:</strong> {{.Metadata.Filename}}<br>
        <strong>Profil:</strong> {{.Metadata.Profile}}<br>
        <strong>Amélioration:</strong> {{.Enhancement}}<br>
        <strong>Temps de traitement:</strong> {{printf "%.2f" .Metadata.ProcessingTime}}s<br>
        <strong>Pages:</strong> {{.Metadata.TotalPages}}<br>
    </div>
{{- range .Results}}
    <div class="page"><h2>Page {{.Page}}</h2>
{{- if eq .Status "error"}}
        <p class="error">Erreur: {{if .Error}}{{.Error}}{{else}}Inconnue{{end}}</p>
{{- else}}
{{- range .Lines}}
        <div class="line">{{.Text}} <span class="confidence">(confiance: {{printf "%.2f" .Confidence}})</span></div>
{{- end}}
{{- end}}
    </div>
{{- end}}
</body>
</html>
`))

type htmlView struct {
	*models.OCRResponse
	Enhancement string
}

// Text renders the human-readable plain text projection.
func Text(resp *models.OCRResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Résultat OCR - %s ===\n", resp.Metadata.Filename)
	fmt.Fprintf(&b, "Profil: %s | Amélioration: %s | Temps: %.2fs\n\n",
		resp.Metadata.Profile, enhancementLabel(resp), resp.Metadata.ProcessingTime)

	for _, page := range resp.Results {
		fmt.Fprintf(&b, "[Page %d]\n", page.Page)
		if page.Status == models.PageStatusError {
			errMsg := page.Error
			if errMsg == "" {
				errMsg = "Inconnue"
			}
			fmt.Fprintf(&b, "ERREUR: %s\n", errMsg)
		} else {
			for _, line := range page.Lines {
				fmt.Fprintf(&b, "%s\n", line.Text)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the styled document projection.
func HTML(resp *models.OCRResponse) (string, error) {
	var b strings.Builder
	view := htmlView{OCRResponse: resp, Enhancement: enhancementLabel(resp)}
	if err := htmlDocument.Execute(&b, view); err != nil {
		return "", fmt.Errorf("rendering HTML response: %w", err)
	}
	return b.String(), nil
}

func enhancementLabel(resp *models.OCRResponse) string {
	if resp.Metadata.Enhancement == "" {
		return noEnhancementLabel
	}
	return resp.Metadata.Enhancement
}
