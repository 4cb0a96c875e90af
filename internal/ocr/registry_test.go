package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	apperrors "go-ocr-service/internal/errors"
)

type fakeEngine struct {
	cfg    EngineConfig
	closed bool
}

func (f *fakeEngine) Recognize(ctx context.Context, imagePath string, useAngleCls bool) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeEngine) AngleClassification() bool { return f.cfg.UseAngleCls }
func (f *fakeEngine) Close() error              { f.closed = true; return nil }

func TestRegistryCachesPerProfile(t *testing.T) {
	builds := 0
	reg := NewRegistryWithBuilder(func(cfg EngineConfig) (Engine, error) {
		builds++
		return &fakeEngine{cfg: cfg}, nil
	})

	first, err := reg.Get(ProfilePrinted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := reg.Get(ProfilePrinted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the cached engine instance on second call")
	}
	if builds != 1 {
		t.Errorf("expected 1 construction, got %d", builds)
	}

	if _, err := reg.Get(ProfileEnglish); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if builds != 2 {
		t.Errorf("distinct profiles need distinct engines, got %d constructions", builds)
	}
}

func TestRegistryUnknownProfile(t *testing.T) {
	reg := NewRegistryWithBuilder(func(cfg EngineConfig) (Engine, error) {
		t.Fatal("builder must not run for unknown profiles")
		return nil, nil
	})

	_, err := reg.Get(Profile("cyrillic"))
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegistryFallsBackToMinimalConfig(t *testing.T) {
	var attempts []EngineConfig
	reg := NewRegistryWithBuilder(func(cfg EngineConfig) (Engine, error) {
		attempts = append(attempts, cfg)
		if len(cfg.Variables) > 0 {
			return nil, errors.New("variable rejected by backend")
		}
		return &fakeEngine{cfg: cfg}, nil
	})

	eng, err := reg.Get(ProfileHandwriting)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if eng == nil {
		t.Fatal("expected engine from fallback")
	}
	if len(attempts) != 2 {
		t.Fatalf("expected full + minimal attempts, got %d", len(attempts))
	}
	if len(attempts[0].Variables) == 0 {
		t.Error("first attempt should carry the full configuration")
	}
	minimal := attempts[1]
	if len(minimal.Variables) != 0 {
		t.Error("fallback attempt should drop tuning variables")
	}
	if minimal.Language != attempts[0].Language || minimal.UseAngleCls != attempts[0].UseAngleCls {
		t.Error("fallback must keep language and angle classification flag")
	}
}

func TestRegistryExhaustedCandidatesIsFatalButNotCached(t *testing.T) {
	builds := 0
	fail := true
	reg := NewRegistryWithBuilder(func(cfg EngineConfig) (Engine, error) {
		builds++
		if fail {
			return nil, errors.New("backend down")
		}
		return &fakeEngine{cfg: cfg}, nil
	})

	_, err := reg.Get(ProfileScanned)
	if !apperrors.IsType(err, apperrors.ErrorTypeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if builds != 2 {
		t.Fatalf("expected both candidates attempted, got %d", builds)
	}

	// A construction failure must not poison the cache
	fail = false
	if _, err := reg.Get(ProfileScanned); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestRegistryClose(t *testing.T) {
	engines := map[Profile]*fakeEngine{}
	reg := NewRegistryWithBuilder(func(cfg EngineConfig) (Engine, error) {
		e := &fakeEngine{cfg: cfg}
		engines[Profile(cfg.Language)] = e
		return e, nil
	})

	if _, err := reg.Get(ProfilePrinted); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(ProfileEnglish); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	for lang, e := range engines {
		if !e.closed {
			t.Errorf("engine %s not closed", lang)
		}
	}
}
