package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/ocr"
	"github.com/ironsheep/level-check-mcp/internal/tolerance"
)

// callTool runs a tools/call request. On success the tool's JSON text is
// decoded into out (when non-nil); on failure the MCP error is returned.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	paramsJSON, _ := json.Marshal(ToolCallParams{Name: name, Arguments: argsJSON})

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode %s result: %v\n%s", name, err, text)
		}
	}
	return nil
}

// mustCall is callTool that fails the test on a tool error.
func mustCall(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	if e := callTool(t, s, name, args, out); e != nil {
		t.Fatalf("%s failed: %s: %v", name, e.Message, e.Data)
	}
}

// createSession makes a 2x2 imperial session with a 1/4" tolerance and
// returns its ID.
func createSession(t *testing.T, s *Server) string {
	t.Helper()
	var created struct {
		ID     string   `json:"id"`
		Labels []string `json:"labels"`
	}
	mustCall(t, s, "level_session_create", map[string]interface{}{
		"corner_a":  map[string]float64{"x": 0, "y": 0, "z": 0},
		"corner_b":  map[string]float64{"x": 2, "y": 0, "z": 3},
		"rows":      2,
		"cols":      2,
		"units":     "imperial",
		"tolerance": 0.25,
	}, &created)
	if created.ID == "" {
		t.Fatal("level_session_create returned no id")
	}
	if diff := cmp.Diff([]string{"A1", "A2", "B1", "B2"}, created.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	return created.ID
}

// rulerMarkings puts 0 at y=100 and 12 at y=700: 50 px per inch.
func rulerMarkings() []map[string]interface{} {
	return []map[string]interface{}{
		{"value": 0, "text": "0", "confidence": 0.9, "pixel": map[string]float64{"x": 20, "y": 100}},
		{"value": 12, "text": "12", "confidence": 0.9, "pixel": map[string]float64{"x": 20, "y": 700}},
	}
}

type captureResult struct {
	Result measure.Result `json:"result"`
	Point  struct {
		Label      string   `json:"label"`
		FinalValue *float64 `json:"final_value"`
		Photos     []string `json:"photos"`
	} `json:"point"`
}

func TestRoundTrip_CreateExtractStats(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)

	var a1 captureResult
	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id,
		"label":      "A1",
		"laser":      map[string]float64{"x": 20, "y": 400},
		"markings":   rulerMarkings(),
	}, &a1)
	if math.Abs(a1.Result.Value-6) > 1e-9 || a1.Result.Display != "6 in" {
		t.Errorf("A1: got %v %q, want 6 \"6 in\"", a1.Result.Value, a1.Result.Display)
	}

	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id,
		"label":      "a2",
		"laser":      map[string]float64{"x": 20, "y": 405},
		"markings":   rulerMarkings(),
	}, nil)

	// No markings: the calibration cached by the first fresh extraction is used.
	var b1 captureResult
	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id,
		"label":      "B1",
		"laser":      map[string]float64{"x": 20, "y": 410},
	}, &b1)
	if math.Abs(b1.Result.Value-6.2) > 1e-9 {
		t.Errorf("B1 from cached calibration: got %v, want 6.2", b1.Result.Value)
	}

	mustCall(t, s, "level_manual_entry", map[string]interface{}{
		"session_id": id,
		"label":      "B2",
		"text":       "6 1/8",
	}, nil)

	var stats tolerance.Stats
	mustCall(t, s, "level_stats", map[string]interface{}{"session_id": id}, &stats)

	want := tolerance.Stats{
		Average:          6.10625,
		Min:              6,
		Max:              6.2,
		Range:            0.2,
		MaxPairwiseDelta: 0.2,
		ExceedanceCount:  0,
		TotalPoints:      4,
		PassRate:         1,
	}
	if diff := cmp.Diff(want, stats, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestManualEntry_OverridesAndClears(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)

	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id,
		"label":      "A1",
		"laser":      map[string]float64{"x": 20, "y": 400},
		"markings":   rulerMarkings(),
	}, nil)

	var manual captureResult
	mustCall(t, s, "level_manual_entry", map[string]interface{}{
		"session_id": id, "label": "A1", "text": "-1/2",
	}, &manual)
	if manual.Result.Method != measure.MethodManual {
		t.Errorf("Method: got %s, want manual", manual.Result.Method)
	}
	if manual.Point.FinalValue == nil || *manual.Point.FinalValue != -0.5 {
		t.Errorf("final value after override: got %v, want -0.5", manual.Point.FinalValue)
	}

	var cleared struct {
		FinalValue *float64 `json:"final_value"`
	}
	mustCall(t, s, "level_clear_override", map[string]interface{}{"session_id": id, "label": "A1"}, &cleared)
	if cleared.FinalValue == nil || *cleared.FinalValue != 6 {
		t.Errorf("final value after clear: got %v, want the AI value 6", cleared.FinalValue)
	}
}

func TestPassFailAndExport(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)

	for label, text := range map[string]string{"A1": "0", "A2": "0", "B1": "0", "B2": "1"} {
		mustCall(t, s, "level_manual_entry", map[string]interface{}{
			"session_id": id, "label": label, "text": text,
		}, nil)
	}

	var pf struct {
		Stats  tolerance.Stats         `json:"stats"`
		Points []tolerance.PointResult `json:"points"`
	}
	mustCall(t, s, "level_pass_fail", map[string]interface{}{"session_id": id}, &pf)
	if pf.Stats.ExceedanceCount != 1 || len(pf.Points) != 4 {
		t.Fatalf("pass/fail: got %d exceedances over %d points, want 1 over 4", pf.Stats.ExceedanceCount, len(pf.Points))
	}

	var export struct {
		Session struct {
			Units     string  `json:"units"`
			Tolerance float64 `json:"tolerance"`
			Rows      int     `json:"rows"`
		} `json:"session"`
		Points []struct {
			Label    string `json:"label"`
			PassFail *bool  `json:"passFail"`
		} `json:"points"`
	}
	mustCall(t, s, "level_export", map[string]interface{}{"session_id": id}, &export)
	if export.Session.Units != "imperial" || export.Session.Tolerance != 0.25 || export.Session.Rows != 2 {
		t.Errorf("export session: %+v", export.Session)
	}
	for _, p := range export.Points {
		want := p.Label != "B2"
		if p.PassFail == nil || *p.PassFail != want {
			t.Errorf("%s passFail: got %v, want %v", p.Label, p.PassFail, want)
		}
	}

	// Re-entering B2 without running level_pass_fail: the export still
	// matches the new values.
	mustCall(t, s, "level_manual_entry", map[string]interface{}{
		"session_id": id, "label": "B2", "text": "0",
	}, nil)
	mustCall(t, s, "level_export", map[string]interface{}{"session_id": id}, &export)
	for _, p := range export.Points {
		if p.PassFail == nil || !*p.PassFail {
			t.Errorf("%s passFail after re-entry: got %v, want true", p.Label, p.PassFail)
		}
	}

	var cells []tolerance.HeatmapCell
	mustCall(t, s, "level_heatmap", map[string]interface{}{"session_id": id}, &cells)
	if len(cells) != 4 {
		t.Errorf("heatmap: got %d cells, want 4", len(cells))
	}

	var quality tolerance.Assessment
	mustCall(t, s, "level_quality", map[string]interface{}{"session_id": id}, &quality)
	if quality.PassRate != 1 {
		t.Errorf("quality pass rate: got %v, want 1", quality.PassRate)
	}
}

func TestLidarHeightsAndPlane(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)

	for _, label := range []string{"A1", "A2", "B1"} {
		mustCall(t, s, "level_record_lidar", map[string]interface{}{
			"session_id": id, "label": label, "height": 0.0,
		}, nil)
	}

	var devs []tolerance.HeightDeviation
	mustCall(t, s, "level_height_deviations", map[string]interface{}{"session_id": id}, &devs)
	if len(devs) != 3 {
		t.Fatalf("height deviations: got %d, want 3", len(devs))
	}
	for _, d := range devs {
		if !d.Pass || d.Deviation != 0 {
			t.Errorf("%s: got %+v, want a zero passing deviation", d.Label, d)
		}
	}

	for _, method := range []string{"", "vertical", "svd"} {
		t.Run("method="+method, func(t *testing.T) {
			var plane struct {
				Points      int     `json:"points"`
				TiltDegrees float64 `json:"tilt_degrees"`
			}
			mustCall(t, s, "level_fit_plane", map[string]interface{}{"session_id": id, "method": method}, &plane)
			if plane.Points != 3 {
				t.Errorf("points: got %d, want 3", plane.Points)
			}
			if plane.TiltDegrees > 1e-4 {
				t.Errorf("flat floor tilt: got %v, want 0", plane.TiltDegrees)
			}
		})
	}
}

func TestCapturePhoto(t *testing.T) {
	analyzer := measure.AnalyzerFunc(func(ctx context.Context, path string) (*measure.Observation, error) {
		return &measure.Observation{
			Laser: measure.Pixel{X: 20, Y: 250},
			Markings: []measure.RulerMarking{
				{Value: 0, Text: "0", Confidence: 0.8, Pixel: measure.Pixel{X: 20, Y: 100}},
				{Value: 12, Text: "12", Confidence: 0.8, Pixel: measure.Pixel{X: 20, Y: 700}},
			},
		}, nil
	})
	s := New(Options{Analyzer: analyzer})
	id := createSession(t, s)

	var got captureResult
	mustCall(t, s, "level_capture_photo", map[string]interface{}{
		"session_id": id, "label": "B2", "path": "/photos/B2.jpg",
	}, &got)
	if got.Result.Value != 3 {
		t.Errorf("Value: got %v, want 3", got.Result.Value)
	}
	if diff := cmp.Diff([]string{"/photos/B2.jpg"}, got.Point.Photos); diff != "" {
		t.Errorf("photos mismatch (-want +got):\n%s", diff)
	}

	var sess struct {
		Calibration *measure.Calibration `json:"calibration"`
	}
	mustCall(t, s, "level_session_get", map[string]interface{}{"session_id": id}, &sess)
	if sess.Calibration == nil || sess.Calibration.PixelPerUnit != 50 {
		t.Errorf("fresh calibration not cached: %+v", sess.Calibration)
	}
}

// releasingAnalyzer records the photos the server releases.
type releasingAnalyzer struct {
	measure.AnalyzerFunc
	released []string
}

func (r *releasingAnalyzer) Release(path string) { r.released = append(r.released, path) }

func TestCapturePhoto_ReleasesCommittedPhoto(t *testing.T) {
	calls := 0
	r := &releasingAnalyzer{AnalyzerFunc: func(ctx context.Context, path string) (*measure.Observation, error) {
		calls++
		if calls > 1 {
			return nil, failure.Detection(failure.LaserDetectionFailed, "", nil)
		}
		return &measure.Observation{
			Laser:    measure.Pixel{X: 20, Y: 250},
			Markings: []measure.RulerMarking{{Value: 0, Pixel: measure.Pixel{Y: 100}}, {Value: 12, Pixel: measure.Pixel{Y: 700}}},
		}, nil
	}}
	s := New(Options{Analyzer: r})
	id := createSession(t, s)

	mustCall(t, s, "level_capture_photo", map[string]interface{}{
		"session_id": id, "label": "A1", "path": "/photos/A1.jpg",
	}, nil)
	if e := callTool(t, s, "level_capture_photo", map[string]interface{}{
		"session_id": id, "label": "A2", "path": "/photos/A2.jpg",
	}, nil); e == nil {
		t.Fatal("second capture should fail")
	}
	if diff := cmp.Diff([]string{"/photos/A1.jpg"}, r.released); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrate(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)

	var view calibrationView
	mustCall(t, s, "level_calibrate", map[string]interface{}{
		"session_id": id,
		"calibration": map[string]interface{}{
			"axis": "vertical", "pixel_per_unit": 10, "zero_pixel_offset": 0,
		},
	}, &view)
	want := &measure.Calibration{Axis: measure.AxisVertical, PixelPerUnit: 10}
	if diff := cmp.Diff(want, view.Calibration); diff != "" {
		t.Errorf("calibration mismatch (-want +got):\n%s", diff)
	}

	var got captureResult
	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id, "label": "A1", "laser": map[string]float64{"x": 0, "y": 15},
	}, &got)
	if got.Result.Value != 1.5 {
		t.Errorf("Value: got %v, want 1.5", got.Result.Value)
	}

	// One marking is not enough to derive a scale, but the cached
	// calibration takes precedence over supplied markings.
	mustCall(t, s, "level_extract", map[string]interface{}{
		"session_id": id, "label": "A2", "laser": map[string]float64{"x": 0, "y": 25},
		"markings": rulerMarkings()[:1],
	}, &got)
	if got.Result.Value != 2.5 {
		t.Errorf("one marking with cached calibration: got %v, want 2.5", got.Result.Value)
	}

	var cleared calibrationView
	mustCall(t, s, "level_calibrate", map[string]interface{}{"session_id": id, "clear": true}, &cleared)
	if !cleared.Cleared || cleared.Calibration != nil {
		t.Errorf("clear: got %+v", cleared)
	}
	e := callTool(t, s, "level_extract", map[string]interface{}{
		"session_id": id, "label": "B1", "laser": map[string]float64{"x": 0, "y": 15},
	}, nil)
	if e == nil || e.Message != "detection:calibration_required" {
		t.Errorf("extract after clear: got %+v, want detection:calibration_required", e)
	}
}

func TestToolErrors(t *testing.T) {
	analyzerErr := measure.AnalyzerFunc(func(ctx context.Context, path string) (*measure.Observation, error) {
		return nil, failure.Detection(failure.LaserDetectionFailed, "", nil)
	})
	s := New(Options{Analyzer: analyzerErr})
	id := createSession(t, s)
	noAnalyzer := New(Options{})
	otherID := createSession(t, noAnalyzer)

	tests := []struct {
		name    string
		server  *Server
		tool    string
		args    map[string]interface{}
		message string
	}{
		{"unknown session", s, "level_stats", map[string]interface{}{"session_id": "00000000-0000-0000-0000-000000000000"}, "validation"},
		{"malformed session id", s, "level_stats", map[string]interface{}{"session_id": "abc"}, "validation"},
		{"unknown label", s, "level_manual_entry", map[string]interface{}{"session_id": id, "label": "Z9", "text": "1"}, "validation"},
		{"bad manual text", s, "level_manual_entry", map[string]interface{}{"session_id": id, "label": "A1", "text": "1//2"}, "parse"},
		{"no calibration", s, "level_extract", map[string]interface{}{"session_id": id, "label": "A1", "laser": map[string]float64{"x": 1, "y": 1}}, "detection:calibration_required"},
		{"one marking", s, "level_calibrate", map[string]interface{}{"session_id": id, "markings": rulerMarkings()[:1]}, "detection:insufficient_markings"},
		{"laser not found", s, "level_capture_photo", map[string]interface{}{"session_id": id, "label": "A1", "path": "/p.jpg"}, "detection:laser_detection_failed"},
		{"no analyzer", noAnalyzer, "level_capture_photo", map[string]interface{}{"session_id": otherID, "label": "A1", "path": "/p.jpg"}, "detection:image_processing_failed"},
		{"plane needs points", s, "level_fit_plane", map[string]interface{}{"session_id": id}, "insufficient_data"},
		{"conversion overflow", s, "level_convert", map[string]interface{}{"value": 1e308, "from": "imperial", "to": "metric"}, "validation"},
		{"bad tolerance", s, "level_session_create", map[string]interface{}{
			"corner_a": map[string]float64{"x": 0, "y": 0, "z": 0}, "corner_b": map[string]float64{"x": 1, "y": 0, "z": 1},
			"rows": 2, "cols": 2, "units": "imperial", "tolerance": 13,
		}, "validation"},
		{"too many rows", s, "level_session_create", map[string]interface{}{
			"corner_a": map[string]float64{"x": 0, "y": 0, "z": 0}, "corner_b": map[string]float64{"x": 1, "y": 0, "z": 1},
			"rows": 27, "cols": 2, "units": "metric", "tolerance": 5,
		}, "validation"},
		{"missing lidar height", s, "level_record_lidar", map[string]interface{}{"session_id": id, "label": "A1"}, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, tt.server, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected a tool error")
			}
			if e.Code != -32000 {
				t.Errorf("Code: got %d, want -32000", e.Code)
			}
			if e.Message != tt.message {
				t.Errorf("Message: got %q, want %q (data: %v)", e.Message, tt.message, e.Data)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := New(Options{})
	id := createSession(t, s)
	createSession(t, s)

	var list []struct {
		ID string `json:"id"`
	}
	mustCall(t, s, "level_session_list", map[string]interface{}{}, &list)
	if len(list) != 2 {
		t.Fatalf("list: got %d sessions, want 2", len(list))
	}

	mustCall(t, s, "level_manual_entry", map[string]interface{}{"session_id": id, "label": "A1", "text": "1"}, nil)

	var regenerated struct {
		Rows     int      `json:"rows"`
		Measured int      `json:"measured"`
		Labels   []string `json:"labels"`
	}
	mustCall(t, s, "level_session_regenerate", map[string]interface{}{
		"session_id": id,
		"corner_a":   map[string]float64{"x": 0, "y": 0, "z": 0},
		"corner_b":   map[string]float64{"x": 2, "y": 0, "z": 3},
		"rows":       3,
		"cols":       2,
		"units":      "metric",
		"tolerance":  5,
	}, &regenerated)
	if regenerated.Rows != 3 || regenerated.Measured != 0 || len(regenerated.Labels) != 6 {
		t.Errorf("regenerate: got %+v", regenerated)
	}

	var points []struct {
		Label string `json:"label"`
	}
	mustCall(t, s, "level_grid_points", map[string]interface{}{"session_id": id}, &points)
	if len(points) != 6 || points[5].Label != "C2" {
		t.Errorf("grid points after regenerate: %+v", points)
	}

	mustCall(t, s, "level_session_delete", map[string]interface{}{"session_id": id}, nil)
	if e := callTool(t, s, "level_session_get", map[string]interface{}{"session_id": id}, nil); e == nil {
		t.Error("deleted session is still reachable")
	}
}

func TestUnitTools(t *testing.T) {
	s := New(Options{})

	var parsed struct {
		Value   float64 `json:"value"`
		Display string  `json:"display"`
	}
	mustCall(t, s, "level_parse", map[string]interface{}{"text": "1 3/8", "units": "imperial"}, &parsed)
	if parsed.Value != 1.375 || parsed.Display != "1 3/8 in" {
		t.Errorf("level_parse: got %+v", parsed)
	}

	var formatted struct {
		Display string `json:"display"`
	}
	mustCall(t, s, "level_format", map[string]interface{}{"value": 0.5, "units": "imperial", "resolution": "1/16"}, &formatted)
	if formatted.Display != "1/2 in" {
		t.Errorf("level_format: got %q, want \"1/2 in\"", formatted.Display)
	}

	var converted struct {
		Value   float64 `json:"value"`
		Display string  `json:"display"`
	}
	mustCall(t, s, "level_convert", map[string]interface{}{"value": 1, "from": "imperial", "to": "metric"}, &converted)
	if math.Abs(converted.Value-25.4) > 1e-9 || converted.Display != "25.4 mm" {
		t.Errorf("level_convert: got %+v", converted)
	}

	var ladder []struct {
		Value   float64 `json:"value"`
		Display string  `json:"display"`
	}
	mustCall(t, s, "level_default_tolerances", map[string]interface{}{"units": "imperial"}, &ladder)
	if len(ladder) != 5 || ladder[0].Display != "1/8 in" {
		t.Errorf("level_default_tolerances: got %+v", ladder)
	}

	if e := callTool(t, s, "level_parse", map[string]interface{}{"text": "abc", "units": "imperial"}, nil); e == nil || e.Message != "parse" {
		t.Errorf("level_parse of garbage: got %+v", e)
	}
}

type fakeOCR struct{ info ocr.Info }

func (f fakeOCR) Info() ocr.Info { return f.info }

func TestOCRInfo(t *testing.T) {
	var info ocr.Info
	mustCall(t, New(Options{}), "level_ocr_info", map[string]interface{}{}, &info)
	if info.Available || !strings.Contains(info.Error, "not configured") {
		t.Errorf("unconfigured OCR: got %+v", info)
	}

	want := ocr.Info{Available: true, Version: "5.3.0", Language: "eng"}
	mustCall(t, New(Options{OCR: fakeOCR{info: want}}), "level_ocr_info", map[string]interface{}{}, &info)
	if info != want {
		t.Errorf("OCR info: got %+v, want %+v", info, want)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New(Options{}).handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestDecodeArgs_ParseError(t *testing.T) {
	var a sessionArgs
	err := decodeArgs(json.RawMessage(`{"session_id": 5}`), &a)
	var pe *failure.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}
