// Package survey holds level-check sessions: the validated rectangle geometry,
// the grid of points generated from it and the readings committed to each
// point.
//
// A Store owns every session. Sessions are mutated only through explicit
// commit methods, each of which takes the session lock, so one point has a
// single writer at a time. Image analysis and extraction run before the
// commit, outside the lock.
package survey

import (
	"github.com/golang/geo/r3"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/grid"
	"github.com/ironsheep/level-check-mcp/internal/tolerance"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Alignment chooses how the rectangle frame is oriented.
type Alignment string

const (
	// AlignPlane orients the rectangle along a tracked plane heading. Width
	// and length default to the corners' extent in that frame.
	AlignPlane Alignment = "plane"
	// AlignPicks orients Forward along the diagonal between the two picks.
	// Width and length must be supplied because the diagonal has no lateral
	// extent.
	AlignPicks Alignment = "picks"
)

// GeometryInput is the unvalidated description of a session rectangle.
type GeometryInput struct {
	CornerA   r3.Vector
	CornerB   r3.Vector
	Alignment Alignment

	// Heading is the plane yaw in radians, used with AlignPlane.
	Heading float64

	// Width and Length, in meters, override the extents derived from the
	// corners when positive.
	Width  float64
	Length float64

	Rows       int
	Cols       int
	Units      units.System
	Tolerance  float64
	Resolution units.Resolution
}

// Geometry is a validated session rectangle. It does not change after the grid
// is generated except through Session.Regenerate.
type Geometry struct {
	Transform  grid.Transform   `json:"transform"`
	Width      float64          `json:"width"`  // meters
	Length     float64          `json:"length"` // meters
	Rows       int              `json:"rows"`
	Cols       int              `json:"cols"`
	Units      units.System     `json:"units"`
	Tolerance  float64          `json:"tolerance"`
	Resolution units.Resolution `json:"resolution"`
}

// Area returns the rectangle area in square meters.
func (g Geometry) Area() float64 {
	return grid.RectangleArea(g.Width, g.Length)
}

// NewGeometry validates in and builds the rectangle frame.
func NewGeometry(in GeometryInput) (Geometry, error) {
	if err := grid.ValidateGridDimensions(in.Rows, in.Cols); err != nil {
		return Geometry{}, err
	}
	if !in.Units.IsValid() {
		return Geometry{}, &failure.ValidationError{Field: "units", Value: in.Units, Reason: "must be imperial or metric"}
	}
	if err := tolerance.ValidateTolerance(in.Tolerance, in.Units); err != nil {
		return Geometry{}, err
	}

	res := in.Resolution
	switch {
	case in.Units == units.Metric:
		res = 0
	case res == 0:
		res = units.Eighth
	case !res.IsValid():
		return Geometry{}, &failure.ValidationError{Field: "resolution", Value: res, Reason: "must be 1/8 or 1/16"}
	}

	// Coincident or vertically stacked picks are rejected for both alignments.
	picked, err := grid.CreateRectangleTransform(in.CornerA, in.CornerB)
	if err != nil {
		return Geometry{}, err
	}

	var t grid.Transform
	width, length := in.Width, in.Length
	switch in.Alignment {
	case AlignPlane, "":
		t = grid.FrameTransform(picked.Origin, in.Heading)
		w, l := grid.RectangleDimensions(in.CornerA, in.CornerB, t)
		if width <= 0 {
			width = w
		}
		if length <= 0 {
			length = l
		}
	case AlignPicks:
		t = picked
		if width <= 0 || length <= 0 {
			return Geometry{}, &failure.ValidationError{
				Field:  "dimensions",
				Value:  [2]float64{width, length},
				Reason: "width and length are required when aligning to the picks",
			}
		}
	default:
		return Geometry{}, &failure.ValidationError{Field: "alignment", Value: in.Alignment, Reason: "must be plane or picks"}
	}

	if width < grid.MinCornerSeparation || length < grid.MinCornerSeparation {
		return Geometry{}, &failure.ValidationError{
			Field:  "dimensions",
			Value:  [2]float64{width, length},
			Reason: "rectangle is too narrow in this frame",
		}
	}

	return Geometry{
		Transform:  t,
		Width:      width,
		Length:     length,
		Rows:       in.Rows,
		Cols:       in.Cols,
		Units:      in.Units,
		Tolerance:  in.Tolerance,
		Resolution: res,
	}, nil
}
