package tolerance

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func f(v float64) *float64 { return &v }

func valued(vs ...float64) []Sample {
	out := make([]Sample, len(vs))
	for i, v := range vs {
		out[i] = Sample{Label: string(rune('A'+i)) + "1", Value: f(v)}
	}
	return out
}

func TestComputeStats(t *testing.T) {
	got := ComputeStats(valued(1.0, 1.1, 0.9), 0.2)
	want := Stats{
		Average:          1.0,
		Min:              0.9,
		Max:              1.1,
		Range:            0.2,
		MaxPairwiseDelta: 0.2,
		ExceedanceCount:  0,
		TotalPoints:      3,
		PassRate:         1.0,
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ComputeStats mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStats_Exceedances(t *testing.T) {
	// average 2; the outer values deviate by 1
	samples := valued(1, 2, 2, 3)
	got := ComputeStats(samples, 0.5)
	if got.ExceedanceCount != 2 {
		t.Errorf("ExceedanceCount: got %d, want 2", got.ExceedanceCount)
	}
	if got.PassRate != 0.5 {
		t.Errorf("PassRate: got %v, want 0.5", got.PassRate)
	}
	if got.MaxPairwiseDelta != 2 {
		t.Errorf("MaxPairwiseDelta: got %v, want 2", got.MaxPairwiseDelta)
	}
}

func TestComputeStats_SkipsUnmeasured(t *testing.T) {
	samples := append(valued(4, 6), Sample{Label: "C1"}, Sample{Label: "D1", LidarHeight: f(0.1)})
	got := ComputeStats(samples, 1)
	if got.TotalPoints != 2 || got.Average != 5 {
		t.Errorf("got total=%d avg=%v, want total=2 avg=5", got.TotalPoints, got.Average)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	for _, samples := range [][]Sample{nil, {{Label: "A1"}}} {
		if got := ComputeStats(samples, 0.25); got != (Stats{}) {
			t.Errorf("ComputeStats(%v): got %+v, want zero value", samples, got)
		}
	}
}

func TestComputePassFail(t *testing.T) {
	samples := append(valued(1.0, 1.3, 0.8), Sample{Label: "Z9"})
	st, results := ComputePassFail(samples, 0.2)

	if math.Abs(st.Average-1.0333333333) > 1e-6 {
		t.Errorf("Average: got %v", st.Average)
	}
	want := []PointResult{
		{Label: "A1", Deviation: 1.0 - st.Average, Pass: true},
		{Label: "B1", Deviation: 1.3 - st.Average, Pass: false},
		{Label: "C1", Deviation: 0.8 - st.Average, Pass: false},
	}
	if diff := cmp.Diff(want, results, approx); diff != "" {
		t.Errorf("ComputePassFail mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeHeightDeviations(t *testing.T) {
	samples := []Sample{
		{Label: "A1", Value: f(10), LidarHeight: f(0.010)},
		{Label: "A2", LidarHeight: f(0.012)},
		{Label: "B1", Value: f(11)},
		{Label: "B2", LidarHeight: f(0.020)},
	}

	// Average height 0.014 m; deviations -4mm, -2mm, +6mm.
	got := ComputeHeightDeviations(samples, 5, units.Metric)
	want := []HeightDeviation{
		{Label: "A1", Deviation: -0.004, Pass: true},
		{Label: "A2", Deviation: -0.002, Pass: true},
		{Label: "B2", Deviation: 0.006, Pass: false},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("ComputeHeightDeviations mismatch (-want +got):\n%s", diff)
	}

	// 6mm is about 0.236in: passes at 1/4in.
	for _, d := range ComputeHeightDeviations(samples, 0.25, units.Imperial) {
		if !d.Pass {
			t.Errorf("%s should pass at 0.25in, deviation %v m", d.Label, d.Deviation)
		}
	}
}

func TestComputeHeightDeviations_NoLidar(t *testing.T) {
	if got := ComputeHeightDeviations(valued(1, 2), 1, units.Imperial); got != nil {
		t.Errorf("expected nil without LiDAR heights, got %v", got)
	}
}

func TestHeatmap(t *testing.T) {
	// average 10
	samples := valued(10, 10.2, 9.7, 10.5, 9.6)
	tol := 0.25

	cells := Heatmap(samples, tol)
	if len(cells) != 5 {
		t.Fatalf("got %d cells, want 5", len(cells))
	}

	tests := []struct {
		label string
		color Color
		norm  float64
	}{
		{"A1", Green, 0},
		{"B1", Green, 0.8},
		{"C1", Yellow, 1.2},
		{"D1", Red, 2.0},
		{"E1", Red, 1.6},
	}
	for i, tt := range tests {
		c := cells[i]
		if c.Label != tt.label {
			t.Errorf("cell %d: label got %s, want %s", i, c.Label, tt.label)
		}
		if c.Color != tt.color {
			t.Errorf("%s: color got %s, want %s", tt.label, c.Color, tt.color)
		}
		if math.Abs(c.NormalizedDeviation-tt.norm) > 1e-9 {
			t.Errorf("%s: normalized got %v, want %v", tt.label, c.NormalizedDeviation, tt.norm)
		}
	}
}

func TestHeatmap_Empty(t *testing.T) {
	if got := Heatmap([]Sample{{Label: "A1"}}, 1); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestUncertainty(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    float64
	}{
		{"empty", nil, 0},
		{"single", valued(3), 0},
		// sample sd of {1,3} is sqrt(2); / sqrt(2) = 1
		{"pair", valued(1, 3), 1},
		// sd of {2,4,4,4,5,5,7,9} with n-1 is sqrt(32/7)
		{"eight", valued(2, 4, 4, 4, 5, 5, 7, 9), math.Sqrt(32.0/7) / math.Sqrt(8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Uncertainty(tt.samples)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Uncertainty: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateTolerance(t *testing.T) {
	tests := []struct {
		name    string
		tol     float64
		system  units.System
		wantErr bool
	}{
		{"imperial eighth", 0.125, units.Imperial, false},
		{"imperial max", 12, units.Imperial, false},
		{"imperial over", 12.01, units.Imperial, true},
		{"imperial zero", 0, units.Imperial, true},
		{"metric max", 300, units.Metric, false},
		{"metric over", 301, units.Metric, true},
		{"metric negative", -3, units.Metric, true},
		{"nan", math.NaN(), units.Metric, true},
		{"unknown units", 1, units.System("cubits"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTolerance(tt.tol, tt.system)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTolerance(%v, %s): err = %v, wantErr %v", tt.tol, tt.system, err, tt.wantErr)
			}
			var ve *failure.ValidationError
			if err != nil && !errors.As(err, &ve) {
				t.Errorf("expected *failure.ValidationError, got %T", err)
			}
		})
	}
}

func TestDefaultTolerances(t *testing.T) {
	if diff := cmp.Diff([]float64{0.125, 0.25, 0.5, 1.0, 2.0}, DefaultTolerances(units.Imperial)); diff != "" {
		t.Errorf("imperial ladder (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3, 5, 10, 25, 50}, DefaultTolerances(units.Metric)); diff != "" {
		t.Errorf("metric ladder (-want +got):\n%s", diff)
	}

	got := DefaultTolerances(units.Imperial)
	got[0] = 99
	if DefaultTolerances(units.Imperial)[0] != 0.125 {
		t.Error("DefaultTolerances returned a shared slice")
	}
}
