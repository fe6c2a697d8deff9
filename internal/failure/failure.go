// Package failure defines the error taxonomy shared by the measurement engine.
//
// Four error types cover every failure the engine reports:
//
//   - ParseError: measurement text that cannot be read as a number
//   - ValidationError: tolerance, grid dimensions or geometry out of bounds
//   - DetectionError: laser, ruler or text not found, or calibration missing
//   - InsufficientDataError: too few markings, plane points or values
//
// All of them are recoverable by the caller (rescan, manual entry, explicit
// calibration). Use errors.As to recover the concrete type, or errors.Is with
// one of the DetectionKind sentinels to test for a specific detection failure.
package failure

import (
	"errors"
	"fmt"
)

// ParseError reports malformed measurement text.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

// ValidationError reports a value outside its allowed bounds.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// InsufficientDataError reports that an operation needs more inputs than it got.
type InsufficientDataError struct {
	What string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient %s: need at least %d, got %d", e.What, e.Need, e.Got)
}

// DetectionKind classifies a DetectionError.
type DetectionKind string

const (
	ImageProcessingFailed DetectionKind = "image_processing_failed"
	LaserDetectionFailed  DetectionKind = "laser_detection_failed"
	RulerDetectionFailed  DetectionKind = "ruler_detection_failed"
	TextRecognitionFailed DetectionKind = "text_recognition_failed"
	InsufficientMarkings  DetectionKind = "insufficient_markings"
	CalibrationRequired   DetectionKind = "calibration_required"
)

// Error lets a DetectionKind act as a sentinel for errors.Is.
func (k DetectionKind) Error() string {
	return string(k)
}

// DetectionError reports that the vision pipeline or the extractor could not
// produce a reading. Err carries the underlying cause when there is one.
type DetectionError struct {
	Kind   DetectionKind
	Detail string
	Err    error
}

// Detection builds a DetectionError.
func Detection(kind DetectionKind, detail string, err error) *DetectionError {
	return &DetectionError{Kind: kind, Detail: detail, Err: err}
}

func (e *DetectionError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Is matches a DetectionKind sentinel against this error's kind.
func (e *DetectionError) Is(target error) bool {
	k, ok := target.(DetectionKind)
	return ok && k == e.Kind
}

// Category returns a short classification for err suitable for clients that
// branch on the failure type: "parse", "validation", "insufficient_data",
// "detection:<kind>" or "internal".
func Category(err error) string {
	var pe *ParseError
	var ve *ValidationError
	var ie *InsufficientDataError
	var de *DetectionError
	switch {
	case errors.As(err, &de):
		return "detection:" + string(de.Kind)
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ie):
		return "insufficient_data"
	default:
		return "internal"
	}
}
