package measure

import (
	"context"
	"errors"
	"math"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Method tags how a reading was produced.
type Method string

const (
	MethodVision Method = "vision-ocr+laser"
	MethodManual Method = "manual"
)

// CalibrationTapThreshold is the confidence below which the capture UI asks
// the user to tap the ruler for an explicit calibration.
const CalibrationTapThreshold = 0.6

// Result is one extracted reading.
type Result struct {
	Value               float64 `json:"value"`
	Display             string  `json:"display"`
	Confidence          float64 `json:"confidence"`
	Method              Method  `json:"method"`
	NeedsCalibrationTap bool    `json:"needs_calibration_tap"`

	// Calibration is the calibration that produced Value. It is nil for
	// manual readings.
	Calibration *Calibration `json:"calibration,omitempty"`
}

// Input gathers everything Extract needs.
type Input struct {
	Laser      Pixel
	Markings   []RulerMarking
	Units      units.System
	Resolution units.Resolution

	// Prior, when set, is used instead of deriving a calibration from
	// Markings.
	Prior *Calibration
}

// Extract converts a laser position into a calibrated reading.
func Extract(in Input) (Result, error) {
	if !in.Units.IsValid() {
		return Result{}, &failure.ValidationError{Field: "units", Value: in.Units, Reason: "must be imperial or metric"}
	}

	var cal Calibration
	if in.Prior != nil {
		if err := in.Prior.Validate(); err != nil {
			return Result{}, err
		}
		cal = *in.Prior
	} else {
		derived, err := DeriveCalibration(in.Markings)
		if err != nil {
			return Result{}, err
		}
		cal = derived
	}

	value := cal.ValueAt(in.Laser)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, &failure.ValidationError{Field: "laser", Value: in.Laser, Reason: "gives a non-finite reading"}
	}
	confidence := Confidence(in.Markings)

	return Result{
		Value:               value,
		Display:             units.FormatMeasurement(value, in.Units, in.Resolution),
		Confidence:          confidence,
		Method:              MethodVision,
		NeedsCalibrationTap: confidence < CalibrationTapThreshold,
		Calibration:         &cal,
	}, nil
}

// ExtractCached extracts with a cached calibration only. A nil calibration
// fails with failure.CalibrationRequired.
func ExtractCached(laser Pixel, system units.System, resolution units.Resolution, cached *Calibration) (Result, error) {
	if cached == nil {
		return Result{}, failure.Detection(failure.CalibrationRequired, "no cached calibration for this session", nil)
	}
	return Extract(Input{Laser: laser, Units: system, Resolution: resolution, Prior: cached})
}

// Confidence scores a reading from the markings that support it. The same
// formula applies whether the calibration is fresh or cached.
func Confidence(markings []RulerMarking) float64 {
	var avg float64
	if len(markings) > 0 {
		var sum float64
		for _, m := range markings {
			sum += clamp01(m.Confidence)
		}
		avg = sum / float64(len(markings))
	}

	countTerm := 0.1 * float64(len(markings))
	if countTerm > 0.3 {
		countTerm = 0.3
	}
	return clamp01(0.5 + countTerm + 0.2*avg + 0.1)
}

// ManualResult builds a reading from user-entered text. Malformed text fails
// with the *failure.ParseError from the units package.
func ManualResult(text string, system units.System, resolution units.Resolution) (Result, error) {
	value, err := units.ParseMeasurement(text, system)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Value:               value,
		Display:             units.FormatMeasurement(value, system, resolution),
		Confidence:          1.0,
		Method:              MethodManual,
		NeedsCalibrationTap: false,
	}, nil
}

// Observation is what an Analyzer finds in one photo.
type Observation struct {
	Laser           Pixel          `json:"laser"`
	LaserConfidence float64        `json:"laser_confidence"`
	Markings        []RulerMarking `json:"markings"`
}

// Analyzer locates the laser dot and the ruler markings in a photo.
//
// When the laser is found but the ruler text is not, implementations return
// the partial Observation together with a RulerDetectionFailed or
// TextRecognitionFailed error so callers holding a cached calibration can
// still use the laser position.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (*Observation, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, imagePath string) (*Observation, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, imagePath string) (*Observation, error) {
	return f(ctx, imagePath)
}

// Capture analyzes a photo and extracts a reading from it. in.Laser and
// in.Markings are replaced by the analyzer's observation; the observation is
// returned alongside the result for display.
func Capture(ctx context.Context, a Analyzer, imagePath string, in Input) (Result, *Observation, error) {
	obs, err := a.Analyze(ctx, imagePath)
	if err != nil {
		recoverable := errors.Is(err, failure.RulerDetectionFailed) || errors.Is(err, failure.TextRecognitionFailed)
		if in.Prior == nil || obs == nil || !recoverable {
			return Result{}, obs, err
		}
	}
	if obs == nil {
		return Result{}, nil, failure.Detection(failure.ImageProcessingFailed, "analyzer returned no observation", nil)
	}

	in.Laser = obs.Laser
	in.Markings = obs.Markings
	res, err := Extract(in)
	if err != nil {
		return Result{}, obs, err
	}
	return res, obs, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
