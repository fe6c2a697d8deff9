package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// RulerContrast is the contrast boost, in percent, applied to ruler strips
// before OCR.
const RulerContrast = 40

// PrepareRulerStrip crops the ruler region out of a photo and readies it for
// OCR: grayscale, contrast boost and an optional resize by scale. Small
// ruler digits read better when scaled up 2x to 3x.
//
// region must lie inside the image bounds and be non-empty. A zero region
// selects the whole image.
func PrepareRulerStrip(img image.Image, region image.Rectangle, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if region == (image.Rectangle{}) {
		region = bounds
	}
	if !region.In(bounds) {
		return nil, fmt.Errorf("ruler region %v outside image bounds %v", region, bounds)
	}
	if region.Empty() {
		return nil, fmt.Errorf("invalid ruler region %v: must have positive width and height", region)
	}

	strip := imaging.Crop(img, region)
	strip = imaging.Grayscale(strip)
	strip = imaging.AdjustContrast(strip, RulerContrast)

	if scale > 0 && scale != 1.0 {
		w := int(float64(strip.Bounds().Dx()) * scale)
		h := int(float64(strip.Bounds().Dy()) * scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %.2f shrinks ruler strip to nothing", scale)
		}
		strip = imaging.Resize(strip, w, h, imaging.Lanczos)
	}
	return strip, nil
}

// EncodePNG encodes img as PNG bytes, the form the OCR engine accepts.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Denoise applies a Gaussian blur of the given radius so that laser speckle
// merges into one blob. A non-positive radius returns an unblurred copy.
func Denoise(img image.Image, radius float64) image.Image {
	if radius <= 0 {
		return imaging.Clone(img)
	}
	return blur.Gaussian(img, radius)
}
