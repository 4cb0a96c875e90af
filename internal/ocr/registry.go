package ocr

import (
	"fmt"
	"strings"
	"sync"

	apperrors "go-ocr-service/internal/errors"
	"go-ocr-service/internal/logger"

	"github.com/sirupsen/logrus"
)

// EngineBuilder constructs an engine from one configuration candidate.
type EngineBuilder func(EngineConfig) (Engine, error)

// EngineProvider is the capability the request pipeline needs from the
// registry.
type EngineProvider interface {
	Get(profile Profile) (Engine, error)
}

// Registry lazily constructs and caches one engine per profile. The cache is
// append-only and lives for the whole process; construction is serialized
// under a single coarse lock since it is rare and expensive.
type Registry struct {
	mu      sync.Mutex
	engines map[Profile]Engine
	build   EngineBuilder
}

// NewRegistry creates a registry backed by the tesseract engine.
func NewRegistry() *Registry {
	return NewRegistryWithBuilder(newGosseractEngine)
}

// NewRegistryWithBuilder creates a registry with a custom engine constructor.
func NewRegistryWithBuilder(build EngineBuilder) *Registry {
	return &Registry{
		engines: make(map[Profile]Engine),
		build:   build,
	}
}

// Get returns the cached engine for a profile, constructing it on first use.
// Construction walks the profile's ordered configuration candidates (full
// config, then the minimal fallback) and fails only when every candidate
// fails. A construction failure is not cached: the next request retries.
func (r *Registry) Get(profile Profile) (Engine, error) {
	cfg, ok := profileConfigs[profile]
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported OCR profile: %s", profile), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[profile]; ok {
		return eng, nil
	}

	logger.WithField("profile", string(profile)).Info("initializing OCR engine")

	var attemptErrs []string
	for i, candidate := range cfg.Candidates() {
		eng, err := r.build(candidate)
		if err == nil {
			if i > 0 {
				logger.WithField("profile", string(profile)).
					Warn("OCR engine initialized with minimal fallback configuration")
			}
			r.engines[profile] = eng
			return eng, nil
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"profile": string(profile),
			"attempt": i + 1,
		}).Error("OCR engine construction failed")
		attemptErrs = append(attemptErrs, err.Error())
	}

	return nil, apperrors.NewInternalError(
		fmt.Sprintf("failed to initialize OCR engine for profile %q: %s",
			profile, strings.Join(attemptErrs, "; fallback: ")), nil)
}

// Close releases every cached engine. Called at process shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for profile, eng := range r.engines {
		if err := eng.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing engine %q: %w", profile, err)
		}
		delete(r.engines, profile)
	}
	return firstErr
}
