// Package grid turns a marked floor rectangle into a labeled grid of world-space
// sample points and provides the plane and unit helpers that operate on them.
//
// # Coordinate System
//
// World space follows the AR session convention: units are meters and +Y is
// up. A rectangle's local frame has +X to the right, +Y up and +Z forward;
// grid rows advance along local Z and columns along local X.
//
// All functions are pure and safe for concurrent use.
package grid

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/level-check-mcp/internal/failure"
)

// MinCornerSeparation is the smallest horizontal distance, in meters, between
// two corner picks that still yields a stable rectangle basis.
const MinCornerSeparation = 0.01

// WorldUp is the world-space up vector.
var WorldUp = r3.Vector{X: 0, Y: 1, Z: 0}

// Transform is a rigid rectangle frame: an orthonormal rotation (Right, Up,
// Forward) plus a translation (Origin). It never carries scale.
type Transform struct {
	Right   r3.Vector `json:"right"`
	Up      r3.Vector `json:"up"`
	Forward r3.Vector `json:"forward"`
	Origin  r3.Vector `json:"origin"`
}

// Apply maps a point from the rectangle's local frame to world space.
func (t Transform) Apply(local r3.Vector) r3.Vector {
	return t.Origin.
		Add(t.Right.Mul(local.X)).
		Add(t.Up.Mul(local.Y)).
		Add(t.Forward.Mul(local.Z))
}

// Local maps a world-space point into the rectangle's local frame.
func (t Transform) Local(world r3.Vector) r3.Vector {
	d := world.Sub(t.Origin)
	return r3.Vector{X: d.Dot(t.Right), Y: d.Dot(t.Up), Z: d.Dot(t.Forward)}
}

// Heading returns the yaw of Forward around world-up, in radians, with zero
// along +Z.
func (t Transform) Heading() float64 {
	return math.Atan2(t.Forward.X, t.Forward.Z)
}

// CreateRectangleTransform builds the rectangle frame from two corner picks.
// The origin is the midpoint, Forward is the normalized horizontal projection
// of b-a, Up is world-up and Right is horizontal and perpendicular to Forward.
//
// Corners that are coincident or separated only vertically have no stable
// basis and are rejected with a *failure.ValidationError.
func CreateRectangleTransform(a, b r3.Vector) (Transform, error) {
	d := b.Sub(a)
	horizontal := r3.Vector{X: d.X, Y: 0, Z: d.Z}
	if horizontal.Norm() < MinCornerSeparation {
		return Transform{}, &failure.ValidationError{
			Field:  "corners",
			Value:  horizontal.Norm(),
			Reason: "horizontal separation too small for a stable rectangle",
		}
	}

	forward := horizontal.Normalize()
	right := WorldUp.Cross(forward).Normalize()

	return Transform{
		Right:   right,
		Up:      WorldUp,
		Forward: forward,
		Origin:  midpoint(a, b),
	}, nil
}

// FrameTransform builds a rectangle frame centered at center whose Forward axis
// has the given heading (radians around world-up, zero along +Z). It is used
// when the rectangle should follow a tracked plane's orientation instead of
// the diagonal between the picks.
func FrameTransform(center r3.Vector, heading float64) Transform {
	forward := r3.Vector{X: math.Sin(heading), Y: 0, Z: math.Cos(heading)}
	return Transform{
		Right:   WorldUp.Cross(forward).Normalize(),
		Up:      WorldUp,
		Forward: forward,
		Origin:  center,
	}
}

// RectangleDimensions returns the width (extent along frame.Right) and length
// (extent along frame.Forward) spanned by two opposite corners.
func RectangleDimensions(a, b r3.Vector, frame Transform) (width, length float64) {
	d := frame.Local(b).Sub(frame.Local(a))
	return math.Abs(d.X), math.Abs(d.Z)
}

// RectangleArea returns width*length.
func RectangleArea(width, length float64) float64 {
	return width * length
}

func midpoint(a, b r3.Vector) r3.Vector {
	return a.Add(b).Mul(0.5)
}
