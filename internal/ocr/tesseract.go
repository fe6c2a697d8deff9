package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/level-check-mcp/internal/imaging"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// RulerWhitelist limits recognition to the characters printed on a tape or
// folding rule.
const RulerWhitelist = "0123456789/."

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (x, y float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y1+b.Y2) / 2
}

// Word is one recognized word with its location and OCR confidence.
type Word struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box in the coordinates of the recognized image.
	Bounds Bounds `json:"bounds"`
}

// Config selects the Tesseract language and data directory.
type Config struct {
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses the Tesseract default (or the TESSDATA_PREFIX environment
	// variable).
	TessdataPrefix string
}

// Engine runs Tesseract over ruler strips. A new gosseract client is created
// and closed per call, so an Engine is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine. An empty language falls back to
// DefaultLanguage.
func NewEngine(cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if e.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetWhitelist(RulerWhitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return client, nil
}

// RecognizeWords runs word-level OCR over img, typically a strip prepared by
// imaging.PrepareRulerStrip. Word bounds are in img's coordinates.
//
// Tesseract cannot be interrupted, so ctx is only checked before the call.
func (e *Engine) RecognizeWords(ctx context.Context, img image.Image) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	origin := img.Bounds().Min
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X + origin.X,
				Y1: box.Box.Min.Y + origin.Y,
				X2: box.Box.Max.X + origin.X,
				Y2: box.Box.Max.Y + origin.Y,
			},
		})
	}
	return words, nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}

// Info reports the Tesseract version and whether the configured language
// loads.
func (e *Engine) Info() Info {
	info := Info{Language: e.cfg.Language}

	client, err := e.newClient()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()

	info.Version = client.Version()
	info.Available = true
	return info
}
