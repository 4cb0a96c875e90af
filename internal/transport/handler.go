package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go-ocr-service/internal/config"
	"go-ocr-service/internal/enhancer"
	apperrors "go-ocr-service/internal/errors"
	"go-ocr-service/internal/logger"
	"go-ocr-service/internal/ocr"
	"go-ocr-service/internal/pipeline"
	"go-ocr-service/internal/quality"
	"go-ocr-service/internal/render"
	"go-ocr-service/internal/validation"
	"go-ocr-service/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Runner is the request-processing capability the handler needs.
type Runner interface {
	Run(ctx context.Context, eng ocr.Engine, fileBytes []byte, enhance enhancer.Enhancement) ([]models.OCRPageResult, error)
}

var _ Runner = (*pipeline.Pipeline)(nil)

// Deps wires the handler's collaborators. BackendStatus and RasterizerReady
// are injectable so health checks can be tested without a tesseract install.
type Deps struct {
	Engines         ocr.EngineProvider
	Pipeline        Runner
	Validator       *validation.FileValidator
	BackendStatus   func() ([]string, error)
	RasterizerReady func() bool
	Config          *config.Config
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewHandler(d Deps) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(d.Config.MaxFileSize+1024*1024),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(d))
	r.POST("/ocr", ocrDocument(d))

	return r
}

func ocrDocument(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		requestID := uuid.NewString()[:8]
		log := logger.WithRequestID(requestID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), d.Config.RequestTimeout)
		defer cancel()

		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing OCR request")

		profile, err := ocr.ParseProfile(c.DefaultQuery("profile", string(ocr.ProfilePrinted)))
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "invalid profile parameter", err)
			return
		}
		format, err := render.Parse(c.DefaultQuery("output_format", string(render.FormatText)))
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "invalid output_format parameter", err)
			return
		}
		enhance, err := enhancer.Parse(c.Query("enhance"))
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "invalid enhance parameter", err)
			return
		}
		expectedText := c.Query("expected_text")

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "missing file upload", err)
			return
		}
		filename := fileHeader.Filename
		declaredType := fileHeader.Header.Get("Content-Type")

		// Pre-read validation pass: declared metadata and size hint only
		if err := d.Validator.Validate(filename, declaredType, nil, fileHeader.Size); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "file rejected", err)
			return
		}

		upload, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unreadable upload", err)
			return
		}
		defer upload.Close()

		fileBytes, err := io.ReadAll(upload)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				respondError(c, http.StatusRequestEntityTooLarge, "file rejected",
					apperrors.NewTooLargeError("request body too large", err))
				return
			}
			respondError(c, http.StatusBadRequest, "unreadable upload", err)
			return
		}
		if len(fileBytes) == 0 {
			respondError(c, http.StatusBadRequest, "file rejected",
				apperrors.NewValidationError("empty file", nil))
			return
		}

		// Post-read validation pass: sniffed content and exact size
		if err := d.Validator.Validate(filename, declaredType, fileBytes, 0); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "file rejected", err)
			return
		}

		log.WithFields(logrus.Fields{
			"filename": filename,
			"profile":  string(profile),
			"size":     len(fileBytes),
		}).Info("Upload validated, starting OCR")

		eng, err := d.Engines.Get(profile)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "OCR engine unavailable", err)
			return
		}

		results, err := d.Pipeline.Run(ctx, eng, fileBytes, enhance)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "OCR processing failed", err)
			return
		}

		processingTime := math.Round(time.Since(startTime).Seconds()*100) / 100
		resp := &models.OCRResponse{
			Status:  "success",
			Results: results,
			Metadata: models.OCRMetadata{
				Filename:       filename,
				Profile:        string(profile),
				Enhancement:    string(enhance),
				ProcessingTime: processingTime,
				TotalPages:     len(results),
				TotalLines:     models.TotalLines(results),
			},
		}
		if expectedText != "" {
			resp.Metadata.Quality = quality.Compare(expectedText, results)
		}

		log.WithFields(logrus.Fields{
			"filename":        filename,
			"profile":         string(profile),
			"pages":           resp.Metadata.TotalPages,
			"lines":           resp.Metadata.TotalLines,
			"processing_time": processingTime,
		}).Info("OCR request completed")

		switch format {
		case render.FormatJSON:
			c.JSON(http.StatusOK, resp)
		case render.FormatHTML:
			page, err := render.HTML(resp)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "rendering failed", err)
				return
			}
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		default:
			c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(render.Text(resp)))
		}
	}
}

func healthCheck(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.HealthStatus{
			Status:          "healthy",
			Version:         d.Config.Version,
			Profiles:        ocr.ProfileNames(),
			RasterizerReady: d.RasterizerReady(),
		}

		langs, err := d.BackendStatus()
		if err != nil {
			status.Status = "degraded"
			status.Error = fmt.Sprintf("OCR backend not operative: %v", err)
		} else {
			status.BackendWorking = true
			status.BackendLanguages = langs
		}
		if !status.RasterizerReady {
			status.Status = "degraded"
		}

		c.JSON(http.StatusOK, status)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
