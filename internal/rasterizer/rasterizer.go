package rasterizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	apperrors "go-ocr-service/internal/errors"
	"go-ocr-service/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	// Register webp decoding for the direct-image fallback path
	_ "golang.org/x/image/webp"
)

var pdfSignature = []byte("%PDF-")

// ErrPopplerMissing reports that the pdftoppm binary is not installed.
var ErrPopplerMissing = errors.New("pdftoppm binary not found")

// Rasterizer converts raw document bytes into an ordered, length-capped
// sequence of page images. PDFs are rendered through poppler's pdftoppm;
// anything pdftoppm rejects as not-a-PDF falls back to a single-image decode.
type Rasterizer struct {
	dpi      int
	maxPages int
	binary   string
	tempDir  string

	// Injection points for tests
	lookPath func(string) (string, error)
	runCmd   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func New(dpi, maxPages int, binary, tempDir string) *Rasterizer {
	return &Rasterizer{
		dpi:      dpi,
		maxPages: maxPages,
		binary:   binary,
		tempDir:  tempDir,
		lookPath: exec.LookPath,
		runCmd: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Available reports whether the PDF conversion binary can be resolved.
func (r *Rasterizer) Available() bool {
	_, err := r.lookPath(r.binary)
	return err == nil
}

// Rasterize returns one image per document page, in document order, capped at
// the configured page limit. Failure kinds follow the service contract:
// missing poppler or a structurally broken PDF is a 503, a payload that is
// neither a renderable PDF nor a decodable image is a 400.
func (r *Rasterizer) Rasterize(ctx context.Context, fileBytes []byte) ([]image.Image, error) {
	pages, pdfErr := r.rasterizePDF(ctx, fileBytes)
	if pdfErr == nil {
		logger.WithField("pages", len(pages)).Info("PDF converted to page images")
		return r.capPages(pages), nil
	}

	if errors.Is(pdfErr, ErrPopplerMissing) {
		logger.WithError(pdfErr).Error("PDF conversion dependency missing")
		return nil, apperrors.NewUnavailableError(
			"PDF conversion unavailable server-side, check dependency installation (e.g. poppler)", pdfErr)
	}
	if bytes.HasPrefix(fileBytes, pdfSignature) {
		// A PDF-signed payload the backend cannot render is corrupt, not a
		// format ambiguity. The image path is never attempted for it.
		logger.WithError(pdfErr).Error("PDF conversion failed on a PDF-signed payload")
		return nil, apperrors.NewUnavailableError(
			"PDF conversion unavailable server-side, check dependency installation (e.g. poppler)", pdfErr)
	}

	logger.WithError(pdfErr).Info("PDF conversion failed, trying direct image decode")
	img, imgErr := decodeVerifiedImage(fileBytes)
	if imgErr != nil {
		logger.WithError(imgErr).Error("direct image decode failed")
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported file format, errors: PDF=%s, Image=%s",
				truncate(pdfErr.Error(), 100), truncate(imgErr.Error(), 100)), nil)
	}
	logger.Info("direct image decoded successfully")
	return []image.Image{img}, nil
}

func (r *Rasterizer) rasterizePDF(ctx context.Context, fileBytes []byte) ([]image.Image, error) {
	if _, err := r.lookPath(r.binary); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPopplerMissing, err)
	}
	if !bytes.HasPrefix(fileBytes, pdfSignature) {
		return nil, errors.New("missing %PDF- signature")
	}

	input, err := os.CreateTemp(r.tempDir, "ocr-input-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp input: %w", err)
	}
	defer func() {
		input.Close()
		if err := os.Remove(input.Name()); err != nil {
			logger.WithError(err).Warn("failed to remove temp PDF")
		}
	}()
	if _, err := input.Write(fileBytes); err != nil {
		return nil, fmt.Errorf("writing temp input: %w", err)
	}
	if err := input.Close(); err != nil {
		return nil, fmt.Errorf("closing temp input: %w", err)
	}

	outDir, err := os.MkdirTemp(r.tempDir, "ocr-pages-")
	if err != nil {
		return nil, fmt.Errorf("creating page dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			logger.WithError(err).Warn("failed to remove page dir")
		}
	}()

	prefix := filepath.Join(outDir, "page")
	out, err := r.runCmd(ctx, r.binary, "-png", "-r", fmt.Sprint(r.dpi), input.Name(), prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %v: %s", err, truncate(string(out), 200))
	}

	paths, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("pdftoppm produced no pages")
	}
	// pdftoppm zero-pads page numbers uniformly, lexical order is page order
	sort.Strings(paths)

	pages := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return nil, fmt.Errorf("decoding page %s: %w", filepath.Base(p), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func (r *Rasterizer) capPages(pages []image.Image) []image.Image {
	if len(pages) > r.maxPages {
		logger.WithFields(logrus.Fields{
			"pages": len(pages),
			"limit": r.maxPages,
		}).Warn("document exceeds page limit, truncating")
		pages = pages[:r.maxPages]
	}
	return pages
}

// decodeVerifiedImage decodes the payload twice: the first pass acts as an
// integrity check, the second produces the instance handed downstream so the
// verification pass cannot have mutated it.
func decodeVerifiedImage(fileBytes []byte) (image.Image, error) {
	if _, err := imaging.Decode(bytes.NewReader(fileBytes)); err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(fileBytes))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
