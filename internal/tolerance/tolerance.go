// Package tolerance computes statistics, pass/fail flags, heatmap cells and a
// quality verdict over per-point readings.
//
// Every function here is pure: it reads a slice of Sample values and returns a
// result. Callers decide whether to commit derived flags back to their points.
// Empty input never fails; it yields zeroed results.
//
// Two pass/fail channels coexist. The value channel compares each point's final
// value with the average of all final values (ComputePassFail). The height
// channel compares each LiDAR height with the average height
// (ComputeHeightDeviations). They are computed independently and are never
// merged.
package tolerance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/grid"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Sample is the part of a grid point the statistics need.
type Sample struct {
	Label string

	// Value is the point's final reading in session units, nil when the
	// point has not been measured.
	Value *float64

	// LidarHeight is a raw depth sample in meters, nil when unavailable.
	LidarHeight *float64
}

// Stats summarizes the measured values of a session.
type Stats struct {
	Average          float64 `json:"average"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Range            float64 `json:"range"`
	MaxPairwiseDelta float64 `json:"max_pairwise_delta"`
	ExceedanceCount  int     `json:"exceedance_count"`
	TotalPoints      int     `json:"total_points"`
	PassRate         float64 `json:"pass_rate"`
}

func values(samples []Sample) []float64 {
	vs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Value != nil {
			vs = append(vs, *s.Value)
		}
	}
	return vs
}

// ComputeStats summarizes the samples that carry a value. Points whose value
// deviates from the average by more than tol count as exceedances.
func ComputeStats(samples []Sample, tol float64) Stats {
	vs := values(samples)
	if len(vs) == 0 {
		return Stats{}
	}

	avg := stat.Mean(vs, nil)
	lo, hi := vs[0], vs[0]
	exceed := 0
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if math.Abs(v-avg) > tol {
			exceed++
		}
	}

	return Stats{
		Average:          avg,
		Min:              lo,
		Max:              hi,
		Range:            hi - lo,
		MaxPairwiseDelta: maxPairwiseDelta(vs),
		ExceedanceCount:  exceed,
		TotalPoints:      len(vs),
		PassRate:         float64(len(vs)-exceed) / float64(len(vs)),
	}
}

// maxPairwiseDelta compares every unordered pair. Grids are capped at
// 26x50 points, about 8.4e5 comparisons.
func maxPairwiseDelta(vs []float64) float64 {
	var best float64
	for i := 0; i < len(vs); i++ {
		for j := i + 1; j < len(vs); j++ {
			if d := math.Abs(vs[i] - vs[j]); d > best {
				best = d
			}
		}
	}
	return best
}

// PointResult is the value-channel verdict for one point.
type PointResult struct {
	Label     string  `json:"label"`
	Deviation float64 `json:"deviation"`
	Pass      bool    `json:"pass"`
}

// ComputePassFail recomputes the statistics and classifies every measured
// point: it passes when |value - average| <= tol. Unmeasured points are
// omitted.
func ComputePassFail(samples []Sample, tol float64) (Stats, []PointResult) {
	st := ComputeStats(samples, tol)
	var out []PointResult
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		dev := *s.Value - st.Average
		out = append(out, PointResult{
			Label:     s.Label,
			Deviation: dev,
			Pass:      math.Abs(dev) <= tol,
		})
	}
	return st, out
}

// HeightDeviation is the LiDAR-channel verdict for one point.
type HeightDeviation struct {
	Label string `json:"label"`

	// Deviation is height minus the average height, in meters.
	Deviation float64 `json:"deviation"`
	Pass      bool    `json:"pass"`
}

// ComputeHeightDeviations compares each LiDAR height with the average height.
// A point passes when its deviation, converted to session units, is within
// tol. It returns nil when no sample has a height.
func ComputeHeightDeviations(samples []Sample, tol float64, system units.System) []HeightDeviation {
	var heights []float64
	for _, s := range samples {
		if s.LidarHeight != nil {
			heights = append(heights, *s.LidarHeight)
		}
	}
	if len(heights) == 0 {
		return nil
	}
	avg := stat.Mean(heights, nil)

	out := make([]HeightDeviation, 0, len(heights))
	for _, s := range samples {
		if s.LidarHeight == nil {
			continue
		}
		dev := *s.LidarHeight - avg
		out = append(out, HeightDeviation{
			Label:     s.Label,
			Deviation: dev,
			Pass:      math.Abs(grid.ConvertFromMeters(dev, system)) <= tol,
		})
	}
	return out
}

// Color is a heatmap bucket.
type Color string

const (
	Green  Color = "green"
	Yellow Color = "yellow"
	Red    Color = "red"
)

// HeatmapCell is the display data for one measured point.
type HeatmapCell struct {
	Label               string  `json:"label"`
	Deviation           float64 `json:"deviation"`
	NormalizedDeviation float64 `json:"normalized_deviation"`
	Color               Color   `json:"color"`
}

// Heatmap buckets each measured point by its absolute deviation from the
// average: green within tol, yellow within 1.5*tol, red beyond.
// NormalizedDeviation is deviation/tol capped at 2.
func Heatmap(samples []Sample, tol float64) []HeatmapCell {
	vs := values(samples)
	if len(vs) == 0 {
		return nil
	}
	avg := stat.Mean(vs, nil)

	out := make([]HeatmapCell, 0, len(vs))
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		dev := math.Abs(*s.Value - avg)

		color := Red
		switch {
		case dev <= tol:
			color = Green
		case dev <= 1.5*tol:
			color = Yellow
		}

		norm := 2.0
		if tol > 0 {
			norm = math.Min(dev/tol, 2)
		} else if dev == 0 {
			norm = 0
		}

		out = append(out, HeatmapCell{
			Label:               s.Label,
			Deviation:           dev,
			NormalizedDeviation: norm,
			Color:               color,
		})
	}
	return out
}

// Uncertainty is the standard error of the mean: the sample standard
// deviation (n-1 denominator) over sqrt(n). It is 0 with fewer than two
// values.
func Uncertainty(samples []Sample) float64 {
	vs := values(samples)
	if len(vs) < 2 {
		return 0
	}
	return stat.StdDev(vs, nil) / math.Sqrt(float64(len(vs)))
}

// Tolerance bounds per unit system, in session units.
const (
	MaxImperialTolerance = 12.0
	MaxMetricTolerance   = 300.0
)

// ValidateTolerance checks 0 < t <= 12 for imperial and 0 < t <= 300 for
// metric.
func ValidateTolerance(t float64, system units.System) error {
	limit := MaxImperialTolerance
	switch system {
	case units.Imperial:
	case units.Metric:
		limit = MaxMetricTolerance
	default:
		return &failure.ValidationError{Field: "units", Value: system, Reason: "must be imperial or metric"}
	}

	if math.IsNaN(t) || t <= 0 || t > limit {
		return &failure.ValidationError{
			Field:  "tolerance",
			Value:  t,
			Reason: fmt.Sprintf("must be greater than 0 and at most %g %s", limit, system.Suffix()),
		}
	}
	return nil
}

var (
	imperialLadder = []float64{0.125, 0.25, 0.5, 1.0, 2.0}
	metricLadder   = []float64{3, 5, 10, 25, 50}
)

// DefaultTolerances returns the suggested tolerance ladder for a unit system.
// The returned slice is a copy.
func DefaultTolerances(system units.System) []float64 {
	src := imperialLadder
	if system == units.Metric {
		src = metricLadder
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
