package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// gosseractEngine wraps one tesseract client configured for a profile. The
// client is not safe for concurrent invocation, so calls are serialized with
// a mutex; page processing within one request is sequential anyway.
type gosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    EngineConfig
}

// newGosseractEngine constructs an engine for the given configuration. A
// rejected tuning variable fails construction so the registry can retry with
// the minimal fallback configuration.
func newGosseractEngine(cfg EngineConfig) (Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(strings.Split(cfg.Language, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language %q: %w", cfg.Language, err)
	}
	if err := client.SetPageSegMode(pageSegMode(cfg.UseAngleCls)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	for name, value := range cfg.Variables {
		if err := client.SetVariable(gosseract.SettableVariable(name), value); err != nil {
			client.Close()
			return nil, fmt.Errorf("set variable %s=%s: %w", name, value, err)
		}
	}

	return &gosseractEngine{client: client, cfg: cfg}, nil
}

// pageSegMode maps the angle classification flag onto tesseract's page
// segmentation: OSD enables orientation and script detection.
func pageSegMode(useAngleCls bool) gosseract.PageSegMode {
	if useAngleCls {
		return gosseract.PSM_AUTO_OSD
	}
	return gosseract.PSM_AUTO
}

// rawLine is the wire shape of one detection line in the engine's output.
type rawLine struct {
	Bbox       [][]float64 `json:"bbox"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

func (e *gosseractEngine) Recognize(ctx context.Context, imagePath string, useAngleCls bool) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := e.client.SetPageSegMode(pageSegMode(useAngleCls)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := e.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image %s: %w", imagePath, err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("get text lines: %w", err)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	lines := make([]rawLine, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		minX, minY := float64(b.Box.Min.X), float64(b.Box.Min.Y)
		maxX, maxY := float64(b.Box.Max.X), float64(b.Box.Max.Y)
		lines = append(lines, rawLine{
			Bbox: [][]float64{
				{minX, minY},
				{maxX, minY},
				{maxX, maxY},
				{minX, maxY},
			},
			Text:       strings.TrimSpace(b.Word),
			Confidence: conf,
		})
	}

	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode detection lines: %w", err)
	}
	return raw, nil
}

func (e *gosseractEngine) AngleClassification() bool {
	return e.cfg.UseAngleCls
}

func (e *gosseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// BackendStatus probes the tesseract installation and returns the available
// recognition languages.
func BackendStatus() ([]string, error) {
	return gosseract.GetAvailableLanguages()
}
