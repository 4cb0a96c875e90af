package ocr

import (
	"context"
	"encoding/json"
)

// Engine is the recognition capability behind one profile. Recognize returns
// the backend's native output as loose JSON: an array of detection lines of
// the form {"bbox": [[x,y],...], "text": "...", "confidence": 0.93}, or nil
// when nothing was detected. Callers must not trust the shape of individual
// lines; normalization is the pipeline's job.
type Engine interface {
	Recognize(ctx context.Context, imagePath string, useAngleCls bool) (json.RawMessage, error)
	AngleClassification() bool
	Close() error
}
