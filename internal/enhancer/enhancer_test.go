package enhancer

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func uniformImage(w, h int, v uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
}

func TestParse(t *testing.T) {
	tests := []struct {
		value   string
		want    Enhancement
		wantErr bool
	}{
		{value: "", want: EnhanceNone},
		{value: "contrast", want: EnhanceContrast},
		{value: "sharpness", want: EnhanceSharpness},
		{value: "brightness", want: EnhanceBrightness},
		{value: "defloutage", want: EnhanceDefloutage},
		{value: "grayscale", wantErr: true},
		{value: "CONTRAST", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := Parse(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestApplyNoneIsIdentity(t *testing.T) {
	img := uniformImage(4, 4, 100)
	if got := Apply(img, EnhanceNone); got != image.Image(img) {
		t.Error("no-op enhancement should return the same instance")
	}
}

func TestApplyBrightnessMultiplies(t *testing.T) {
	img := uniformImage(2, 2, 100)

	out := Apply(img, EnhanceBrightness)
	c := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	if c.R != 150 {
		t.Errorf("expected channel 100*1.5=150, got %d", c.R)
	}
}

func TestApplyContrastKeepsUniformImage(t *testing.T) {
	// A uniform image equals its own mean, doubling contrast changes nothing
	img := uniformImage(3, 3, 90)

	out := Apply(img, EnhanceContrast)
	c := color.NRGBAModel.Convert(out.At(1, 1)).(color.NRGBA)
	if c.R != 90 {
		t.Errorf("uniform image should be unchanged by contrast, got %d", c.R)
	}
}

func TestApplyPreservesDimensions(t *testing.T) {
	img := uniformImage(5, 7, 128)

	for _, e := range []Enhancement{EnhanceContrast, EnhanceSharpness, EnhanceBrightness, EnhanceDefloutage} {
		t.Run(string(e), func(t *testing.T) {
			out := Apply(img, e)
			if out == nil {
				t.Fatal("enhancement returned nil image")
			}
			b := out.Bounds()
			if b.Dx() != 5 || b.Dy() != 7 {
				t.Errorf("dimensions changed to %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestApplyNeverFailsOutward(t *testing.T) {
	t.Run("nil image", func(t *testing.T) {
		if got := Apply(nil, EnhanceContrast); got != nil {
			t.Error("nil input should fall back to nil original")
		}
	})

	t.Run("empty image", func(t *testing.T) {
		empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
		if got := Apply(empty, EnhanceDefloutage); got != image.Image(empty) {
			t.Error("empty image should be returned unmodified")
		}
	})
}
