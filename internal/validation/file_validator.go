package validation

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	apperrors "go-ocr-service/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

var pdfSignature = []byte("%PDF-")

// allowedMIMETypes is the fixed accept list for uploads.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/tiff":      {},
	"image/bmp":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// FileValidator accepts or rejects an upload based on its declared metadata
// and, when available, its actual content. It is called twice per request:
// once before the body is read (size hint only) and once with the full bytes.
type FileValidator struct {
	maxFileSize int64
}

func NewFileValidator(maxFileSize int64) *FileValidator {
	return &FileValidator{maxFileSize: maxFileSize}
}

// Validate checks the candidate MIME set against the allow list and enforces
// the size limit. fileBytes may be nil for the pre-read pass, in which case
// sizeHint (when positive) stands in for the actual length.
func (v *FileValidator) Validate(filename, declaredContentType string, fileBytes []byte, sizeHint int64) error {
	candidates := candidateMIMETypes(filename, declaredContentType, fileBytes)

	accepted := false
	for mt := range candidates {
		if _, ok := allowedMIMETypes[mt]; ok {
			accepted = true
			break
		}
	}
	if !accepted {
		return apperrors.NewValidationError(
			fmt.Sprintf("unsupported file type, allowed types: %s", allowedTypesList()), nil)
	}

	if fileBytes != nil {
		if int64(len(fileBytes)) > v.maxFileSize {
			return v.tooLarge()
		}
	} else if sizeHint > v.maxFileSize {
		return v.tooLarge()
	}
	return nil
}

func (v *FileValidator) tooLarge() error {
	return apperrors.NewTooLargeError(
		fmt.Sprintf("file too large, maximum size: %dMB", v.maxFileSize/(1024*1024)), nil)
}

// candidateMIMETypes gathers every plausible MIME type for the upload: the
// filename extension guess, the declared content type, and a content sniff
// when bytes are present.
func candidateMIMETypes(filename, declaredContentType string, fileBytes []byte) map[string]struct{} {
	candidates := make(map[string]struct{})

	if ext := filepath.Ext(filename); ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			candidates[normalizeMIME(guessed)] = struct{}{}
		}
	}
	if declaredContentType != "" {
		candidates[normalizeMIME(declaredContentType)] = struct{}{}
	}
	if len(fileBytes) > 0 {
		if bytes.HasPrefix(fileBytes, pdfSignature) {
			candidates["application/pdf"] = struct{}{}
		} else {
			candidates[normalizeMIME(mimetype.Detect(fileBytes).String())] = struct{}{}
		}
	}
	return candidates
}

// normalizeMIME strips parameters like "; charset=utf-8" from a MIME string.
func normalizeMIME(mt string) string {
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func allowedTypesList() string {
	types := make([]string, 0, len(allowedMIMETypes))
	for mt := range allowedMIMETypes {
		types = append(types, mt)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
