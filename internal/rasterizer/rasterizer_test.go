package rasterizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"testing"

	apperrors "go-ocr-service/internal/errors"

	"github.com/disintegration/imaging"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(8, 8, image.White.C)
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func newTestRasterizer(t *testing.T, maxPages int) *Rasterizer {
	t.Helper()
	return New(200, maxPages, "pdftoppm", t.TempDir())
}

func TestRasterizeMissingBinaryIsUnavailable(t *testing.T) {
	r := newTestRasterizer(t, 100)
	r.lookPath = func(string) (string, error) { return "", errors.New("not found in PATH") }

	cmdCalled := false
	r.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cmdCalled = true
		return nil, nil
	}

	_, err := r.Rasterize(context.Background(), []byte("%PDF-1.4 broken"))
	if !apperrors.IsType(err, apperrors.ErrorTypeUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if cmdCalled {
		t.Error("pdftoppm should not run when the binary cannot be resolved")
	}
}

func TestRasterizeMalformedPDFIsUnavailable(t *testing.T) {
	r := newTestRasterizer(t, 100)
	r.lookPath = func(string) (string, error) { return "/usr/bin/pdftoppm", nil }
	r.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Syntax Error: couldn't read xref table"), errors.New("exit status 1")
	}

	_, err := r.Rasterize(context.Background(), []byte("%PDF-1.4 truncated garbage"))
	if !apperrors.IsType(err, apperrors.ErrorTypeUnavailable) {
		t.Fatalf("expected unavailable error for PDF-signed payload, got %v", err)
	}
}

func TestRasterizeImageFallback(t *testing.T) {
	r := newTestRasterizer(t, 100)
	r.lookPath = func(string) (string, error) { return "/usr/bin/pdftoppm", nil }
	r.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("pdftoppm should not run for a payload without PDF signature")
		return nil, nil
	}

	pages, err := r.Rasterize(context.Background(), testPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page from direct image, got %d", len(pages))
	}
	if pages[0].Bounds().Dx() != 8 {
		t.Errorf("unexpected page width %d", pages[0].Bounds().Dx())
	}
}

func TestRasterizeUnsupportedFormat(t *testing.T) {
	r := newTestRasterizer(t, 100)
	r.lookPath = func(string) (string, error) { return "/usr/bin/pdftoppm", nil }

	_, err := r.Rasterize(context.Background(), []byte("plain text, neither PDF nor image"))
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "PDF=") || !strings.Contains(msg, "Image=") {
		t.Errorf("error should carry both failure summaries, got: %s", msg)
	}
}

func TestRasterizeFailureSummariesAreTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	if got := truncate(long, 100); len(got) != 100 {
		t.Errorf("expected 100 chars, got %d", len(got))
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("short strings must pass through, got %q", got)
	}
}

func TestRasterizePDFPagesOrderedAndCapped(t *testing.T) {
	const produced = 5
	r := newTestRasterizer(t, 3)
	r.lookPath = func(string) (string, error) { return "/usr/bin/pdftoppm", nil }
	r.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		// args: -png -r <dpi> <input> <prefix>
		prefix := args[len(args)-1]
		for i := 1; i <= produced; i++ {
			img := imaging.New(i, 1, image.White.C) // width encodes page number
			if err := imaging.Save(img, fmt.Sprintf("%s-%02d.png", prefix, i)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	pages, err := r.Rasterize(context.Background(), []byte("%PDF-1.4 fine"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected truncation to 3 pages, got %d", len(pages))
	}
	for i, page := range pages {
		if page.Bounds().Dx() != i+1 {
			t.Errorf("page %d out of order: width %d", i+1, page.Bounds().Dx())
		}
	}
}

func TestRasterizePDFCleansUpTempFiles(t *testing.T) {
	dir := t.TempDir()
	r := New(200, 100, "pdftoppm", dir)
	r.lookPath = func(string) (string, error) { return "/usr/bin/pdftoppm", nil }
	r.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		prefix := args[len(args)-1]
		img := imaging.New(1, 1, image.White.C)
		return nil, imaging.Save(img, prefix+"-1.png")
	}

	if _, err := r.Rasterize(context.Background(), []byte("%PDF-1.4 fine")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir should be empty after rasterization, found %d entries", len(entries))
	}
}
