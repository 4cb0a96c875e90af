package enhancer

import (
	"fmt"
	"image"
	"image/color"

	"go-ocr-service/internal/logger"

	"github.com/disintegration/imaging"
)

// Enhancement names one optional pixel transform applied before recognition.
type Enhancement string

const (
	EnhanceNone       Enhancement = ""
	EnhanceContrast   Enhancement = "contrast"
	EnhanceSharpness  Enhancement = "sharpness"
	EnhanceBrightness Enhancement = "brightness"
	EnhanceDefloutage Enhancement = "defloutage"
)

// Parse validates an enhancement query value. The empty string is the no-op.
func Parse(value string) (Enhancement, error) {
	switch Enhancement(value) {
	case EnhanceNone, EnhanceContrast, EnhanceSharpness, EnhanceBrightness, EnhanceDefloutage:
		return Enhancement(value), nil
	}
	return EnhanceNone, fmt.Errorf("unknown enhancement: %q", value)
}

// Names lists the selectable enhancements.
func Names() []string {
	return []string{
		string(EnhanceContrast),
		string(EnhanceSharpness),
		string(EnhanceBrightness),
		string(EnhanceDefloutage),
	}
}

// Apply runs the named transform on a page image. It never fails outward: a
// transform that cannot be applied logs a warning and the original image is
// returned unmodified.
func Apply(img image.Image, enhance Enhancement) image.Image {
	if enhance == EnhanceNone {
		return img
	}

	enhanced, err := apply(img, enhance)
	if err != nil {
		logger.WithError(err).WithField("enhancement", string(enhance)).
			Warn("enhancement failed, using original image")
		return img
	}
	return enhanced
}

func apply(img image.Image, enhance Enhancement) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Normalize to an RGBA pixel buffer before any transform
	rgb := imaging.Clone(img)

	switch enhance {
	case EnhanceContrast:
		return multiplyContrast(rgb, 2.0), nil
	case EnhanceSharpness:
		return imaging.Sharpen(rgb, 1.0), nil
	case EnhanceBrightness:
		return multiplyBrightness(rgb, 1.5), nil
	case EnhanceDefloutage:
		return unsharpMask(rgb, 2.0, 1.5), nil
	}
	return nil, fmt.Errorf("unknown enhancement: %q", enhance)
}

// multiplyContrast scales pixel distance from the image's mean luminance,
// out = mean + (in-mean)*factor per channel.
func multiplyContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampByte(mean + (float64(c.R)-mean)*factor),
			G: clampByte(mean + (float64(c.G)-mean)*factor),
			B: clampByte(mean + (float64(c.B)-mean)*factor),
			A: c.A,
		}
	})
}

// multiplyBrightness scales every channel by factor.
func multiplyBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampByte(float64(c.R) * factor),
			G: clampByte(float64(c.G) * factor),
			B: clampByte(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// unsharpMask sharpens by adding back the difference against a gaussian blur:
// out = in + strength*(in - blurred).
func unsharpMask(img *image.NRGBA, radius, strength float64) *image.NRGBA {
	blurred := imaging.Blur(img, radius)
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			orig := float64(img.Pix[i+ch])
			diff := orig - float64(blurred.Pix[i+ch])
			out.Pix[i+ch] = clampByte(orig + strength*diff)
		}
	}
	return out
}

func meanLuminance(img *image.NRGBA) float64 {
	var sum float64
	var count int
	for i := 0; i < len(img.Pix); i += 4 {
		r := float64(img.Pix[i])
		g := float64(img.Pix[i+1])
		b := float64(img.Pix[i+2])
		sum += 0.299*r + 0.587*g + 0.114*b
		count++
	}
	if count == 0 {
		return 128
	}
	return sum / float64(count)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
