// Package vision finds the laser dot and reads the ruler in a capture photo.
//
// An Analyzer chains the photo cache, laser dot detection and ruler OCR into
// a measure.Analyzer. The ruler is read from a vertical band centered on the
// dot, so the markings nearest the dot calibrate the reading.
package vision

import (
	"context"
	"image"
	"log/slog"

	"github.com/ironsheep/level-check-mcp/internal/detection"
	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/imaging"
	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/ocr"
)

// Default Options values.
const (
	DefaultBandHalfWidth = 200
	DefaultStripScale    = 2.0
)

// WordRecognizer reads words from an image. *ocr.Engine implements it.
type WordRecognizer interface {
	RecognizeWords(ctx context.Context, img image.Image) ([]ocr.Word, error)
}

// Options tunes an Analyzer. Zero fields take the defaults.
type Options struct {
	Laser detection.LaserOptions

	// BandHalfWidth is the half width, in photo pixels, of the ruler band
	// read around the dot. Negative reads the whole photo.
	BandHalfWidth int

	// StripScale is the upscale applied to the band before OCR.
	StripScale float64
}

func (o Options) withDefaults() Options {
	if o.BandHalfWidth == 0 {
		o.BandHalfWidth = DefaultBandHalfWidth
	}
	if o.StripScale <= 0 {
		o.StripScale = DefaultStripScale
	}
	return o
}

// Analyzer implements measure.Analyzer over real photos.
type Analyzer struct {
	cache  *imaging.ImageCache
	words  WordRecognizer
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil logger discards log output.
func NewAnalyzer(cache *imaging.ImageCache, words WordRecognizer, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{
		cache:  cache,
		words:  words,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Release drops a photo from the cache once its reading is committed.
func (a *Analyzer) Release(imagePath string) {
	a.cache.Evict(imagePath)
}

// Analyze loads the photo, locates the laser dot and reads the ruler band
// around it.
//
// A missing or undecodable photo fails with failure.ImageProcessingFailed and
// no observation. Once the dot is found, ruler failures return the partial
// observation: failure.RulerDetectionFailed when no band can be cut and
// failure.TextRecognitionFailed when OCR fails or reads nothing. Fewer than
// two usable markings is not an error here; the extractor decides whether a
// cached calibration can stand in.
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) (*measure.Observation, error) {
	img, err := a.cache.Load(imagePath)
	if err != nil {
		return nil, failure.Detection(failure.ImageProcessingFailed, "", err)
	}
	if a.logger.Enabled(ctx, slog.LevelDebug) {
		if info, err := imaging.Describe(a.cache, imagePath); err == nil {
			a.logger.DebugContext(ctx, "photo loaded",
				"path", info.Path,
				"width", info.Width,
				"height", info.Height,
				"format", info.Format,
				"bytes", info.FileSizeBytes)
		}
	}

	dot, err := detection.FindLaserDot(img, a.opts.Laser)
	if err != nil {
		return nil, err
	}
	obs := &measure.Observation{
		Laser:           measure.Pixel{X: dot.CenterX, Y: dot.CenterY},
		LaserConfidence: dot.Confidence,
	}
	a.logger.Debug("laser dot located",
		"path", imagePath,
		"x", dot.CenterX,
		"y", dot.CenterY,
		"area", dot.Area,
		"candidates", dot.Candidates)

	region := rulerBand(img.Bounds(), dot.CenterX, a.opts.BandHalfWidth)
	strip, err := imaging.PrepareRulerStrip(img, region, a.opts.StripScale)
	if err != nil {
		return obs, failure.Detection(failure.RulerDetectionFailed, "", err)
	}

	words, err := a.words.RecognizeWords(ctx, strip)
	if err != nil {
		if ctx.Err() != nil {
			return obs, err
		}
		return obs, failure.Detection(failure.TextRecognitionFailed, "", err)
	}
	if len(words) == 0 {
		return obs, failure.Detection(failure.TextRecognitionFailed, "no text found on the ruler", nil)
	}

	// The strip is rebased to (0, 0); band origin and scale map it back.
	obs.Markings = ocr.ParseRulerMarkings(words, ocr.Strip{Origin: region.Min, Scale: a.opts.StripScale})
	a.logger.Debug("ruler read",
		"path", imagePath,
		"words", len(words),
		"markings", len(obs.Markings))
	return obs, nil
}

// rulerBand is the full-height column of the photo within halfWidth pixels
// of x. A negative halfWidth selects the whole photo.
func rulerBand(bounds image.Rectangle, x float64, halfWidth int) image.Rectangle {
	if halfWidth < 0 {
		return bounds
	}
	cx := int(x)
	band := image.Rect(cx-halfWidth, bounds.Min.Y, cx+halfWidth+1, bounds.Max.Y)
	return band.Intersect(bounds)
}

