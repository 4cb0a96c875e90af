package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sort"

	apperrors "go-ocr-service/internal/errors"
	"go-ocr-service/internal/enhancer"
	"go-ocr-service/internal/logger"
	"go-ocr-service/internal/ocr"
	"go-ocr-service/pkg/models"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// Rasterizer converts raw document bytes into ordered page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, fileBytes []byte) ([]image.Image, error)
}

// Pipeline sequences rasterization, optional enhancement, per-page OCR and
// result normalization for one request.
type Pipeline struct {
	rasterizer Rasterizer
	tempDir    string
}

func New(rasterizer Rasterizer, tempDir string) *Pipeline {
	return &Pipeline{rasterizer: rasterizer, tempDir: tempDir}
}

// Run processes an uploaded document with the given engine. Pages are
// processed strictly sequentially: the engine handle is not proven safe for
// concurrent invocation, so parallel page processing is deliberately not
// attempted. Per-page failures are contained in that page's result; Run only
// fails when rasterization fails or yields zero pages.
func (p *Pipeline) Run(ctx context.Context, eng ocr.Engine, fileBytes []byte, enhance enhancer.Enhancement) ([]models.OCRPageResult, error) {
	pages, err := p.rasterizer.Rasterize(ctx, fileBytes)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, apperrors.NewValidationError("no valid page images found in document", nil)
	}

	results := make([]models.OCRPageResult, 0, len(pages))
	for i, img := range pages {
		results = append(results, p.processPage(ctx, i+1, img, enhance, eng))
	}

	// Output order is guaranteed by this sort, not by processing order
	sort.Slice(results, func(i, j int) bool { return results[i].Page < results[j].Page })
	return results, nil
}

// processPage runs enhancement and recognition for a single page and folds
// every failure into the page result. It never returns an error: a page that
// cannot be processed yields status "error" with empty lines, and processing
// continues with the next page.
func (p *Pipeline) processPage(ctx context.Context, pageNum int, img image.Image, enhance enhancer.Enhancement, eng ocr.Engine) (result models.OCRPageResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"page": pageNum, "panic": r}).
				Error("page processing panicked")
			result = pageError(pageNum, fmt.Errorf("page processing panicked: %v", r))
		}
	}()

	if enhance != enhancer.EnhanceNone {
		img = enhancer.Apply(img, enhance)
	}

	raw, err := p.recognizePage(ctx, img, eng)
	if err != nil {
		logger.WithError(err).WithField("page", pageNum).Error("page processing failed")
		return pageError(pageNum, err)
	}

	lines, err := normalizeRawLines(raw, pageNum)
	if err != nil {
		logger.WithError(err).WithField("page", pageNum).Error("engine output unreadable")
		return pageError(pageNum, err)
	}

	return models.OCRPageResult{
		Page:   pageNum,
		Lines:  lines,
		Status: models.PageStatusSuccess,
	}
}

// recognizePage persists the page image to a scoped temporary PNG and invokes
// the engine against it. The temp file is removed on every exit path.
func (p *Pipeline) recognizePage(ctx context.Context, img image.Image, eng ocr.Engine) (json.RawMessage, error) {
	tmp, err := os.CreateTemp(p.tempDir, "ocr-page-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating temp page file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer func() {
		if err := os.Remove(tmpName); err != nil {
			logger.WithError(err).WithField("path", tmpName).Warn("failed to remove temp page file")
		}
	}()

	if err := imaging.Save(img, tmpName); err != nil {
		return nil, fmt.Errorf("saving page image: %w", err)
	}

	return eng.Recognize(ctx, tmpName, eng.AngleClassification())
}

func pageError(pageNum int, err error) models.OCRPageResult {
	return models.OCRPageResult{
		Page:   pageNum,
		Lines:  []models.OCRLine{},
		Status: models.PageStatusError,
		Error:  err.Error(),
	}
}

// normalizeRawLines folds the engine's loose output into normalized lines.
// A nil or empty raw result yields zero lines. A raw result that is not an
// array at all is an error (the page fails). Individual malformed lines are
// logged, counted and dropped; they never abort the remaining lines.
func normalizeRawLines(raw json.RawMessage, pageNum int) ([]models.OCRLine, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []models.OCRLine{}, nil
	}

	var rawLines []json.RawMessage
	if err := json.Unmarshal(raw, &rawLines); err != nil {
		return nil, fmt.Errorf("unexpected engine output shape: %w", err)
	}

	lines := make([]models.OCRLine, 0, len(rawLines))
	dropped := 0
	for _, rawElem := range rawLines {
		line, ok := decodeRawLine(rawElem)
		if !ok {
			dropped++
			continue
		}
		lines = append(lines, line)
	}
	if dropped > 0 {
		logger.WithFields(logrus.Fields{"page": pageNum, "dropped": dropped}).
			Warn("dropped malformed detection lines")
	}
	return lines, nil
}

// decodeRawLine extracts one normalized line from a loose detection element.
// The element must be an object carrying at least a text or confidence field;
// otherwise it is rejected. Within an accepted element every field degrades
// independently: null text becomes "", a non-numeric confidence becomes 0.0,
// a malformed bbox becomes empty.
func decodeRawLine(raw json.RawMessage) (models.OCRLine, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.OCRLine{}, false
	}
	textRaw, hasText := fields["text"]
	confRaw, hasConf := fields["confidence"]
	if !hasText && !hasConf {
		return models.OCRLine{}, false
	}

	line := models.OCRLine{Bbox: [][]float64{}}

	if hasText {
		var text *string
		if err := json.Unmarshal(textRaw, &text); err == nil && text != nil {
			line.Text = *text
		}
	}

	if hasConf {
		var conf float64
		if err := json.Unmarshal(confRaw, &conf); err == nil {
			line.Confidence = clampConfidence(conf)
		}
	}

	if bboxRaw, ok := fields["bbox"]; ok {
		var bbox [][]float64
		if err := json.Unmarshal(bboxRaw, &bbox); err == nil && bbox != nil {
			line.Bbox = bbox
		}
	}

	return line, true
}

func clampConfidence(conf float64) float64 {
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
