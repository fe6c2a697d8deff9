package grid

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Conversion factors from meters.
const (
	InchesPerMeter      = 39.3701
	MillimetersPerMeter = 1000.0
)

// PlaneFit selects the plane fitting method.
type PlaneFit string

const (
	// FitVertical uses an exact fit for three points and a vertical normal
	// through the centroid for more.
	FitVertical PlaneFit = "vertical"
	// FitLeastSquares uses a total least squares fit for any count >= 3.
	FitLeastSquares PlaneFit = "svd"
)

// Plane is a plane through Anchor with unit Normal.
type Plane struct {
	Normal r3.Vector `json:"normal"`
	Anchor r3.Vector `json:"anchor"`
}

// Distance returns the signed distance from p to the plane along Normal.
func (p Plane) Distance(pt r3.Vector) float64 {
	return p.Normal.Dot(pt.Sub(p.Anchor))
}

// TiltDegrees returns the angle between the plane's normal and world-up.
func (p Plane) TiltDegrees() float64 {
	cos := math.Abs(p.Normal.Dot(WorldUp))
	if cos > 1 {
		cos = 1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// FitPlane dispatches to the selected fitting method.
func FitPlane(points []r3.Vector, method PlaneFit) (Plane, error) {
	if method == FitLeastSquares {
		return FitPlaneLeastSquares(points)
	}
	return BestFitPlane(points)
}

// BestFitPlane fits a plane through measured points.
//
// With exactly three points the normal is the normalized cross product of two
// edge vectors and the anchor is their centroid. With more than three points
// it returns a vertical normal through the centroid; this is an approximation,
// not a least squares fit (see FitPlaneLeastSquares).
func BestFitPlane(points []r3.Vector) (Plane, error) {
	if len(points) < 3 {
		return Plane{}, &failure.InsufficientDataError{What: "plane points", Need: 3, Got: len(points)}
	}

	anchor := centroid(points)
	if len(points) > 3 {
		return Plane{Normal: WorldUp, Anchor: anchor}, nil
	}

	n := points[1].Sub(points[0]).Cross(points[2].Sub(points[0]))
	if n.Norm() < 1e-12 {
		return Plane{}, &failure.ValidationError{Field: "plane points", Value: len(points), Reason: "points are collinear"}
	}
	return Plane{Normal: n.Normalize(), Anchor: anchor}, nil
}

// FitPlaneLeastSquares fits the plane minimizing the sum of squared orthogonal
// distances. The normal is the right singular vector of the centered point
// matrix with the smallest singular value, oriented so that Normal.Y >= 0.
func FitPlaneLeastSquares(points []r3.Vector) (Plane, error) {
	if len(points) < 3 {
		return Plane{}, &failure.InsufficientDataError{What: "plane points", Need: 3, Got: len(points)}
	}

	c := centroid(points)
	data := make([]float64, 0, len(points)*3)
	for _, p := range points {
		d := p.Sub(c)
		data = append(data, d.X, d.Y, d.Z)
	}
	a := mat.NewDense(len(points), 3, data)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return Plane{}, &failure.ValidationError{Field: "plane points", Value: len(points), Reason: "SVD did not converge"}
	}
	values := svd.Values(nil)
	if values[1] < 1e-9 {
		return Plane{}, &failure.ValidationError{Field: "plane points", Value: len(points), Reason: "points are collinear"}
	}

	var v mat.Dense
	svd.VTo(&v)
	normal := r3.Vector{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}.Normalize()
	if normal.Y < 0 {
		normal = normal.Mul(-1)
	}
	return Plane{Normal: normal, Anchor: c}, nil
}

func centroid(points []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// ConvertFromMeters converts a length in meters to the session unit system
// (inches or millimetres).
func ConvertFromMeters(v float64, system units.System) float64 {
	if system == units.Metric {
		return v * MillimetersPerMeter
	}
	return v * InchesPerMeter
}

// ConvertToMeters is the inverse of ConvertFromMeters.
func ConvertToMeters(v float64, system units.System) float64 {
	if system == units.Metric {
		return v / MillimetersPerMeter
	}
	return v / InchesPerMeter
}
