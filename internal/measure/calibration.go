// Package measure converts a located laser dot and recognized ruler markings
// into a calibrated reading with a confidence score.
//
// # Calibration
//
// A Calibration maps pixel positions along one image axis to ruler units:
//
//	value = (pixel - ZeroPixelOffset) / PixelPerUnit
//
// A fresh calibration is derived from the two lowest-valued ruler markings.
// Once derived it may be cached by the caller and passed back as a prior,
// which skips marking detection on later captures.
//
// # Confidence
//
// Confidence is a fixed heuristic over the markings used, not a statistical
// estimate:
//
//	clamp01(0.5 + min(0.1*count, 0.3) + 0.2*avgOCRConfidence + 0.1)
//
// A reading with confidence below 0.6 asks the user for a calibration tap.
//
// # Vision
//
// Pixel positions and marking text come from an Analyzer, an injected
// capability so tests can drive extraction without image processing.
package measure

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/level-check-mcp/internal/failure"
)

// Axis is the image axis a ruler runs along.
type Axis string

const (
	AxisVertical   Axis = "vertical"
	AxisHorizontal Axis = "horizontal"
)

// Pixel is an image position. Sub-pixel precision is kept because laser
// centroids and OCR box centers are averages.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Along projects p onto the given ruler axis.
func (p Pixel) Along(axis Axis) float64 {
	if axis == AxisHorizontal {
		return p.X
	}
	return p.Y
}

// RulerMarking is one recognized numeric label on the ruler.
type RulerMarking struct {
	Value      float64 `json:"value"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // OCR confidence, 0.0 to 1.0
	Pixel      Pixel   `json:"pixel"`
}

// Calibration is a pixel-to-unit scale and zero offset along one axis.
type Calibration struct {
	Axis            Axis    `json:"axis"`
	PixelPerUnit    float64 `json:"pixel_per_unit"`
	ZeroPixelOffset float64 `json:"zero_pixel_offset"`
}

// Validate checks that the calibration can convert pixels to values.
func (c Calibration) Validate() error {
	if c.Axis != AxisVertical && c.Axis != AxisHorizontal {
		return &failure.ValidationError{Field: "calibration axis", Value: c.Axis, Reason: "must be vertical or horizontal"}
	}
	if !(c.PixelPerUnit > 0) || math.IsInf(c.PixelPerUnit, 0) {
		return &failure.ValidationError{Field: "pixel_per_unit", Value: c.PixelPerUnit, Reason: "must be positive"}
	}
	if math.IsNaN(c.ZeroPixelOffset) || math.IsInf(c.ZeroPixelOffset, 0) {
		return &failure.ValidationError{Field: "zero_pixel_offset", Value: c.ZeroPixelOffset, Reason: "must be finite"}
	}
	return nil
}

// ValueAt converts a pixel position to a ruler value.
func (c Calibration) ValueAt(p Pixel) float64 {
	return (p.Along(c.Axis) - c.ZeroPixelOffset) / c.PixelPerUnit
}

// DeriveCalibration builds a calibration from the two lowest-valued markings.
// The axis is the one along which those two markings are spread furthest.
//
// Fewer than two markings, two markings with the same value, two markings at
// the same pixel position, or markings whose scale is not finite fail with
// failure.InsufficientMarkings.
func DeriveCalibration(markings []RulerMarking) (Calibration, error) {
	if len(markings) < 2 {
		return Calibration{}, failure.Detection(failure.InsufficientMarkings,
			fmt.Sprintf("need at least 2 ruler markings, got %d", len(markings)), nil)
	}

	sorted := make([]RulerMarking, len(markings))
	copy(sorted, markings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})
	m1, m2 := sorted[0], sorted[1]

	axis := AxisVertical
	if math.Abs(m2.Pixel.X-m1.Pixel.X) > math.Abs(m2.Pixel.Y-m1.Pixel.Y) {
		axis = AxisHorizontal
	}

	dv := math.Abs(m2.Value - m1.Value)
	if dv == 0 {
		return Calibration{}, failure.Detection(failure.InsufficientMarkings,
			fmt.Sprintf("markings %q and %q have the same value", m1.Text, m2.Text), nil)
	}
	p1, p2 := m1.Pixel.Along(axis), m2.Pixel.Along(axis)
	ppu := math.Abs(p2-p1) / dv
	if ppu == 0 {
		return Calibration{}, failure.Detection(failure.InsufficientMarkings,
			fmt.Sprintf("markings %q and %q share a pixel position", m1.Text, m2.Text), nil)
	}

	cal := Calibration{
		Axis:            axis,
		PixelPerUnit:    ppu,
		ZeroPixelOffset: p1 - m1.Value*ppu,
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, failure.Detection(failure.InsufficientMarkings,
			fmt.Sprintf("markings %q and %q give no usable scale", m1.Text, m2.Text), err)
	}
	return cal, nil
}
