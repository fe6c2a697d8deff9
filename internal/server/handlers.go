package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/grid"
	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/ocr"
	"github.com/ironsheep/level-check-mcp/internal/survey"
	"github.com/ironsheep/level-check-mcp/internal/tolerance"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "level_session_create", "level_stats").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// The message is the failure category from failure.Category ("parse",
// "validation", "insufficient_data", "detection:<kind>" or "internal") and
// data carries the error text.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		category := failure.Category(err)
		if category == "internal" {
			s.logger.ErrorContext(ctx, "tool failed",
				slog.String("tool", params.Name),
				slog.Any("error", xerrors.New(err)))
		} else {
			s.logger.InfoContext(ctx, "tool rejected",
				slog.String("tool", params.Name),
				slog.String("category", category),
				slog.String("error", err.Error()))
		}
		return s.errorResponse(req.ID, -32000, category, err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode tool result",
			slog.String("tool", params.Name),
			slog.Any("error", xerrors.New(err)))
		return s.errorResponse(req.ID, -32603, "Internal error", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Looks up the session and grid point
//  4. Runs the extraction or analysis outside the session lock
//  5. Commits through the session and returns the result
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Sessions
	case "level_session_create":
		return s.handleSessionCreate(args)
	case "level_session_get":
		return s.handleSessionGet(args)
	case "level_session_delete":
		return s.handleSessionDelete(args)
	case "level_session_list":
		return s.store.List(), nil
	case "level_session_regenerate":
		return s.handleSessionRegenerate(args)

	// Grid and calibration
	case "level_grid_points":
		return s.handleGridPoints(args)
	case "level_calibrate":
		return s.handleCalibrate(args)

	// Measurement capture
	case "level_extract":
		return s.handleExtract(args)
	case "level_capture_photo":
		return s.handleCapturePhoto(ctx, args)
	case "level_manual_entry":
		return s.handleManualEntry(args)
	case "level_clear_override":
		return s.handleClearOverride(args)
	case "level_record_lidar":
		return s.handleRecordLidar(args)

	// Analysis
	case "level_stats":
		return s.handleStats(args)
	case "level_pass_fail":
		return s.handlePassFail(args)
	case "level_height_deviations":
		return s.handleHeightDeviations(args)
	case "level_heatmap":
		return s.handleHeatmap(args)
	case "level_quality":
		return s.handleQuality(args)
	case "level_fit_plane":
		return s.handleFitPlane(args)
	case "level_export":
		return s.handleExport(args)

	// Units
	case "level_parse":
		return s.handleParse(args)
	case "level_format":
		return s.handleFormat(args)
	case "level_convert":
		return s.handleConvert(args)
	case "level_default_tolerances":
		return s.handleDefaultTolerances(args)
	case "level_ocr_info":
		return s.handleOCRInfo(), nil

	default:
		return nil, &failure.ValidationError{Field: "tool", Value: name, Reason: "unknown tool"}
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}


// decodeArgs unmarshals tool arguments, reporting malformed JSON as a parse
// failure.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &failure.ParseError{Input: string(args), Reason: err.Error()}
	}
	return nil
}

// session resolves a session ID argument.
func (s *Server) session(id string) (*survey.Session, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, &failure.ValidationError{Field: "session_id", Value: id, Reason: "not a valid session ID"}
	}
	return s.store.Get(parsed)
}

// parseResolution parses an optional resolution argument. Empty means 1/8.
func parseResolution(s string) (units.Resolution, error) {
	if s == "" {
		return units.Eighth, nil
	}
	return units.ParseResolution(s)
}

// === Session Handlers ===

type vectorArg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v vectorArg) vector() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

type geometryArgs struct {
	CornerA    vectorArg        `json:"corner_a"`
	CornerB    vectorArg        `json:"corner_b"`
	Alignment  survey.Alignment `json:"alignment"`
	Heading    float64          `json:"heading"`
	Width      float64          `json:"width"`
	Length     float64          `json:"length"`
	Rows       int              `json:"rows"`
	Cols       int              `json:"cols"`
	Units      string           `json:"units"`
	Tolerance  float64          `json:"tolerance"`
	Resolution string           `json:"resolution"`
}

func (a geometryArgs) geometry() (survey.Geometry, error) {
	system, err := units.ParseSystem(a.Units)
	if err != nil {
		return survey.Geometry{}, err
	}
	res, err := parseResolution(a.Resolution)
	if err != nil && system == units.Imperial {
		return survey.Geometry{}, err
	}
	switch a.Alignment {
	case "", survey.AlignPlane, survey.AlignPicks:
	default:
		return survey.Geometry{}, &failure.ValidationError{Field: "alignment", Value: a.Alignment, Reason: "must be plane or picks"}
	}
	return survey.NewGeometry(survey.GeometryInput{
		CornerA:    a.CornerA.vector(),
		CornerB:    a.CornerB.vector(),
		Alignment:  a.Alignment,
		Heading:    a.Heading,
		Width:      a.Width,
		Length:     a.Length,
		Rows:       a.Rows,
		Cols:       a.Cols,
		Units:      system,
		Tolerance:  a.Tolerance,
		Resolution: res,
	})
}

// sessionView is the session as returned by the session tools.
type sessionView struct {
	survey.Summary
	Geometry    survey.Geometry      `json:"geometry"`
	Heading     float64              `json:"heading_degrees"`
	Area        float64              `json:"area_m2"`
	Labels      []string             `json:"labels"`
	Calibration *measure.Calibration `json:"calibration,omitempty"`
}

func viewSession(sess *survey.Session) sessionView {
	g := sess.Geometry()
	points := sess.Points()
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Label()
	}
	return sessionView{
		Summary:     sess.Summary(),
		Geometry:    g,
		Heading:     g.Transform.Heading() * 180 / math.Pi,
		Area:        g.Area(),
		Labels:      labels,
		Calibration: sess.Calibration(),
	}
}

func (s *Server) handleSessionCreate(args json.RawMessage) (interface{}, error) {
	var a geometryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := a.geometry()
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Create(g)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created",
		slog.String("session_id", sess.ID().String()),
		slog.Int("rows", g.Rows),
		slog.Int("cols", g.Cols),
		slog.String("units", string(g.Units)))
	return viewSession(sess), nil
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleSessionGet(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return viewSession(sess), nil
}

func (s *Server) handleSessionDelete(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	s.store.Delete(sess.ID())
	return map[string]interface{}{"deleted": true, "session_id": sess.ID()}, nil
}

type regenerateArgs struct {
	SessionID string `json:"session_id"`
	geometryArgs
}

func (s *Server) handleSessionRegenerate(args json.RawMessage) (interface{}, error) {
	var a regenerateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	g, err := a.geometry()
	if err != nil {
		return nil, err
	}
	if err := sess.Regenerate(g); err != nil {
		return nil, err
	}
	return viewSession(sess), nil
}

// === Grid and Calibration Handlers ===

// pointView adds the derived label and final reading to a grid point.
type pointView struct {
	survey.GridPoint
	Label        string   `json:"label"`
	FinalValue   *float64 `json:"final_value,omitempty"`
	FinalDisplay string   `json:"final_display,omitempty"`
}

func viewPoint(p survey.GridPoint) pointView {
	return pointView{
		GridPoint:    p,
		Label:        p.Label(),
		FinalValue:   p.FinalValue(),
		FinalDisplay: p.FinalDisplay(),
	}
}

func (s *Server) handleGridPoints(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	points := sess.Points()
	out := make([]pointView, len(points))
	for i, p := range points {
		out[i] = viewPoint(p)
	}
	return out, nil
}

type calibrateArgs struct {
	SessionID   string                 `json:"session_id"`
	Markings    []measure.RulerMarking `json:"markings"`
	Calibration *measure.Calibration   `json:"calibration"`
	Clear       bool                   `json:"clear"`
}

// calibrationView is the session's cached calibration after level_calibrate.
type calibrationView struct {
	Calibration *measure.Calibration `json:"calibration"`
	Cleared     bool                 `json:"cleared,omitempty"`
}

func (s *Server) handleCalibrate(args json.RawMessage) (interface{}, error) {
	var a calibrateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	var cal measure.Calibration
	switch {
	case a.Clear:
		sess.ClearCalibration()
		return calibrationView{Cleared: true}, nil
	case len(a.Markings) > 0:
		cal, err = measure.DeriveCalibration(a.Markings)
		if err != nil {
			return nil, err
		}
	case a.Calibration != nil:
		cal = *a.Calibration
	default:
		return nil, &failure.ValidationError{Field: "markings", Value: nil, Reason: "markings or calibration is required"}
	}

	if err := sess.SetCalibration(cal); err != nil {
		return nil, err
	}
	return calibrationView{Calibration: &cal}, nil
}

// === Measurement Capture Handlers ===

// captureView is the outcome of a committed reading.
type captureView struct {
	Result      measure.Result       `json:"result"`
	Observation *measure.Observation `json:"observation,omitempty"`
	Point       pointView            `json:"point"`
}

type extractArgs struct {
	SessionID string                 `json:"session_id"`
	Label     string                 `json:"label"`
	Laser     measure.Pixel          `json:"laser"`
	Markings  []measure.RulerMarking `json:"markings"`
	Photo     string                 `json:"photo"`
}

func (s *Server) handleExtract(args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Point(a.Label); err != nil {
		return nil, err
	}
	g := sess.Geometry()

	// A cached calibration wins over supplied markings, as it does for photo
	// captures.
	prior := sess.Calibration()
	var res measure.Result
	if len(a.Markings) > 0 {
		res, err = measure.Extract(measure.Input{
			Laser:      a.Laser,
			Markings:   a.Markings,
			Units:      g.Units,
			Resolution: g.Resolution,
			Prior:      prior,
		})
	} else {
		res, err = measure.ExtractCached(a.Laser, g.Units, g.Resolution, prior)
	}
	if err != nil {
		return nil, err
	}

	return s.commit(sess, a.Label, res, nil, a.Photo, prior == nil)
}

// commit stores a vision reading. A calibration freshly derived from markings
// becomes the session's cached calibration when none is cached yet.
func (s *Server) commit(sess *survey.Session, label string, res measure.Result, obs *measure.Observation, photo string, fresh bool) (captureView, error) {
	if fresh && res.Calibration != nil && sess.Calibration() == nil {
		if err := sess.SetCalibration(*res.Calibration); err != nil {
			return captureView{}, err
		}
	}
	p, err := sess.CommitMeasurement(label, res, photo)
	if err != nil {
		return captureView{}, err
	}
	s.logger.Debug("reading committed",
		slog.String("session_id", sess.ID().String()),
		slog.String("label", p.Label()),
		slog.Float64("value", res.Value),
		slog.Float64("confidence", res.Confidence))
	return captureView{Result: res, Observation: obs, Point: viewPoint(p)}, nil
}

// photoReleaser is implemented by analyzers that cache photos.
type photoReleaser interface {
	Release(imagePath string)
}

type captureArgs struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
	Path      string `json:"path"`
}

func (s *Server) handleCapturePhoto(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a captureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, &failure.ValidationError{Field: "path", Value: a.Path, Reason: "photo path is required"}
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Point(a.Label); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, failure.Detection(failure.ImageProcessingFailed, "no photo analyzer configured", nil)
	}

	g := sess.Geometry()
	prior := sess.Calibration()
	res, obs, err := measure.Capture(ctx, s.analyzer, a.Path, measure.Input{
		Units:      g.Units,
		Resolution: g.Resolution,
		Prior:      prior,
	})
	if err != nil {
		return nil, err
	}
	view, err := s.commit(sess, a.Label, res, obs, a.Path, prior == nil)
	if err != nil {
		return nil, err
	}
	if r, ok := s.analyzer.(photoReleaser); ok {
		r.Release(a.Path)
	}
	return view, nil
}

type manualEntryArgs struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
	Text      string `json:"text"`
}

func (s *Server) handleManualEntry(args json.RawMessage) (interface{}, error) {
	var a manualEntryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	g := sess.Geometry()
	res, err := measure.ManualResult(a.Text, g.Units, g.Resolution)
	if err != nil {
		return nil, err
	}
	p, err := sess.Override(a.Label, res)
	if err != nil {
		return nil, err
	}
	return captureView{Result: res, Point: viewPoint(p)}, nil
}

type pointArgs struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
}

func (s *Server) handleClearOverride(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	p, err := sess.ClearOverride(a.Label)
	if err != nil {
		return nil, err
	}
	return viewPoint(p), nil
}

type lidarArgs struct {
	SessionID string   `json:"session_id"`
	Label     string   `json:"label"`
	Height    *float64 `json:"height"`
}

func (s *Server) handleRecordLidar(args json.RawMessage) (interface{}, error) {
	var a lidarArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Height == nil {
		return nil, &failure.ValidationError{Field: "height", Value: nil, Reason: "height in meters is required"}
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	p, err := sess.RecordLidar(a.Label, *a.Height)
	if err != nil {
		return nil, err
	}
	return viewPoint(p), nil
}

// === Analysis Handlers ===

// sessionFor decodes a session-only argument object.
func (s *Server) sessionFor(args json.RawMessage) (*survey.Session, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session(a.SessionID)
}

func (s *Server) handleStats(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	return tolerance.ComputeStats(sess.Samples(), sess.Geometry().Tolerance), nil
}

func (s *Server) handlePassFail(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	st, results := sess.ApplyPassFail()
	if results == nil {
		results = []tolerance.PointResult{}
	}
	return map[string]interface{}{
		"stats":  st,
		"points": results,
	}, nil
}

func (s *Server) handleHeightDeviations(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	devs := sess.ApplyHeightDeviations()
	if devs == nil {
		devs = []tolerance.HeightDeviation{}
	}
	return devs, nil
}

func (s *Server) handleHeatmap(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	cells := tolerance.Heatmap(sess.Samples(), sess.Geometry().Tolerance)
	if cells == nil {
		cells = []tolerance.HeatmapCell{}
	}
	return cells, nil
}

func (s *Server) handleQuality(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	return tolerance.AssessQuality(sess.Samples(), sess.Geometry().Tolerance), nil
}

type fitPlaneArgs struct {
	SessionID string        `json:"session_id"`
	Method    grid.PlaneFit `json:"method"`
}

func (s *Server) handleFitPlane(args json.RawMessage) (interface{}, error) {
	var a fitPlaneArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	switch a.Method {
	case "":
		a.Method = s.planeFit
	case grid.FitVertical, grid.FitLeastSquares:
	default:
		return nil, &failure.ValidationError{Field: "method", Value: a.Method, Reason: "must be vertical or svd"}
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	points := sess.SurfacePoints()
	plane, err := grid.FitPlane(points, a.Method)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"method":       a.Method,
		"points":       len(points),
		"normal":       vectorArg{X: plane.Normal.X, Y: plane.Normal.Y, Z: plane.Normal.Z},
		"anchor":       vectorArg{X: plane.Anchor.X, Y: plane.Anchor.Y, Z: plane.Anchor.Z},
		"tilt_degrees": plane.TiltDegrees(),
	}, nil
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	sess, err := s.sessionFor(args)
	if err != nil {
		return nil, err
	}
	// Exported flags always match the exported values.
	sess.ApplyPassFail()
	sess.ApplyHeightDeviations()
	return sess.Export(), nil
}

// === Unit Handlers ===

type parseArgs struct {
	Text       string `json:"text"`
	Units      string `json:"units"`
	Resolution string `json:"resolution"`
}

func (s *Server) handleParse(args json.RawMessage) (interface{}, error) {
	var a parseArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	system, err := units.ParseSystem(a.Units)
	if err != nil {
		return nil, err
	}
	res, err := parseResolution(a.Resolution)
	if err != nil {
		return nil, err
	}
	v, err := units.ParseMeasurement(a.Text, system)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"value":   v,
		"display": units.FormatMeasurement(v, system, res),
	}, nil
}

type formatArgs struct {
	Value      float64 `json:"value"`
	Units      string  `json:"units"`
	Resolution string  `json:"resolution"`
}

func (s *Server) handleFormat(args json.RawMessage) (interface{}, error) {
	var a formatArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	system, err := units.ParseSystem(a.Units)
	if err != nil {
		return nil, err
	}
	res, err := parseResolution(a.Resolution)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"display": units.FormatMeasurement(a.Value, system, res),
	}, nil
}

type convertArgs struct {
	Value      float64 `json:"value"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Resolution string  `json:"resolution"`
}

func (s *Server) handleConvert(args json.RawMessage) (interface{}, error) {
	var a convertArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	from, err := units.ParseSystem(a.From)
	if err != nil {
		return nil, err
	}
	to, err := units.ParseSystem(a.To)
	if err != nil {
		return nil, err
	}
	res, err := parseResolution(a.Resolution)
	if err != nil {
		return nil, err
	}
	v := units.Convert(a.Value, from, to)
	if math.IsInf(v, 0) {
		return nil, &failure.ValidationError{Field: "value", Value: a.Value, Reason: "out of range after conversion"}
	}
	return map[string]interface{}{
		"value":   v,
		"display": units.ConvertAndFormat(a.Value, from, to, res),
	}, nil
}

type defaultTolerancesArgs struct {
	Units string `json:"units"`
}

// toleranceChoice is one entry of the tolerance ladder.
type toleranceChoice struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

func (s *Server) handleDefaultTolerances(args json.RawMessage) (interface{}, error) {
	var a defaultTolerancesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	system, err := units.ParseSystem(a.Units)
	if err != nil {
		return nil, err
	}
	res := units.Resolution(0)
	if system == units.Imperial {
		res = units.Sixteenth
	}
	ladder := tolerance.DefaultTolerances(system)
	out := make([]toleranceChoice, len(ladder))
	for i, v := range ladder {
		out[i] = toleranceChoice{Value: v, Display: units.FormatMeasurement(v, system, res)}
	}
	return out, nil
}

func (s *Server) handleOCRInfo() ocr.Info {
	if s.ocr == nil {
		return ocr.Info{Error: "OCR engine not configured"}
	}
	return s.ocr.Info()
}
