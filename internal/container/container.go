package container

import (
	"fmt"
	"net/http"

	"go-ocr-service/internal/config"
	"go-ocr-service/internal/ocr"
	"go-ocr-service/internal/pipeline"
	"go-ocr-service/internal/rasterizer"
	"go-ocr-service/internal/transport"
	"go-ocr-service/internal/validation"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	engines    *ocr.Registry
	rasterizer *rasterizer.Rasterizer
	pipeline   *pipeline.Pipeline
	validator  *validation.FileValidator
	handler    http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Build dependency graph
	engines := ocr.NewRegistry()
	raster := rasterizer.New(cfg.RasterDPI, cfg.MaxPages, cfg.PdftoppmPath, cfg.TempDir)
	pipe := pipeline.New(raster, cfg.TempDir)
	validator := validation.NewFileValidator(cfg.MaxFileSize)

	handler := transport.NewHandler(transport.Deps{
		Engines:         engines,
		Pipeline:        pipe,
		Validator:       validator,
		BackendStatus:   ocr.BackendStatus,
		RasterizerReady: raster.Available,
		Config:          cfg,
	})

	return &Container{
		config:     cfg,
		engines:    engines,
		rasterizer: raster,
		pipeline:   pipe,
		validator:  validator,
		handler:    handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the cached OCR engines
func (c *Container) Close() error {
	return c.engines.Close()
}
