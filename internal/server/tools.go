package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Shared property schemas.
var (
	sessionIDProp = map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by level_session_create",
	}
	labelProp = map[string]interface{}{
		"type":        "string",
		"description": "Grid point label, row letter then column number (e.g. \"A1\", \"C12\")",
	}
	unitsProp = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"imperial", "metric"},
		"description": "Unit system: imperial (inches) or metric (millimeters)",
	}
	resolutionProp = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"1/8", "1/16"},
		"description": "Fractional display resolution for imperial values. Default 1/8",
	}
	vectorProp = map[string]interface{}{
		"type":        "object",
		"description": "World position in meters (Y is up)",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
			"z": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y", "z"},
	}
	pixelProp = map[string]interface{}{
		"type":        "object",
		"description": "Pixel position in the photo",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	}
	markingsProp = map[string]interface{}{
		"type":        "array",
		"description": "Ruler markings read from the photo",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"value":      map[string]interface{}{"type": "number", "description": "Ruler value at the marking"},
				"text":       map[string]interface{}{"type": "string", "description": "Recognized text"},
				"confidence": map[string]interface{}{"type": "number", "description": "OCR confidence 0.0-1.0"},
				"pixel":      pixelProp,
			},
			"required": []string{"value", "pixel"},
		},
	}
	sessionOnlySchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": sessionIDProp,
		},
		"required": []string{"session_id"},
	}
	pointSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": sessionIDProp,
			"label":      labelProp,
		},
		"required": []string{"session_id", "label"},
	}
)

// geometryProperties returns the rectangle and grid properties shared by
// level_session_create and level_session_regenerate.
func geometryProperties() map[string]interface{} {
	return map[string]interface{}{
		"corner_a": vectorProp,
		"corner_b": vectorProp,
		"alignment": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"plane", "picks"},
			"description": "plane: orient along the tracked plane heading (default). picks: orient along the corner diagonal, width and length required",
		},
		"heading": map[string]interface{}{
			"type":        "number",
			"description": "Plane yaw in radians for plane alignment. Default 0",
		},
		"width": map[string]interface{}{
			"type":        "number",
			"description": "Rectangle width in meters. Defaults to the corners' extent for plane alignment",
		},
		"length": map[string]interface{}{
			"type":        "number",
			"description": "Rectangle length in meters. Defaults to the corners' extent for plane alignment",
		},
		"rows": map[string]interface{}{
			"type":        "integer",
			"description": "Grid rows (2-26), labeled A-Z",
		},
		"cols": map[string]interface{}{
			"type":        "integer",
			"description": "Grid columns (2-50), numbered from 1",
		},
		"units": unitsProp,
		"tolerance": map[string]interface{}{
			"type":        "number",
			"description": "Allowed deviation from average in session units (0 < t <= 12 in, or <= 300 mm)",
		},
		"resolution": resolutionProp,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	createProps := geometryProperties()
	regenerateProps := geometryProperties()
	regenerateProps["session_id"] = sessionIDProp
	geometryRequired := []string{"corner_a", "corner_b", "rows", "cols", "units", "tolerance"}

	return []Tool{
		// Sessions
		{
			Name:        "level_session_create",
			Description: "Create a level-check session from two picked rectangle corners. Validates the geometry and generates the labeled sample grid.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": createProps,
				"required":   geometryRequired,
			},
		},
		{
			Name:        "level_session_get",
			Description: "Get a session's geometry, progress and cached calibration.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_session_delete",
			Description: "Delete a session and all its readings.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_session_list",
			Description: "List all sessions, oldest first.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "level_session_regenerate",
			Description: "Replace a session's geometry and regenerate its grid. All readings are discarded. The cached calibration is kept unless the unit system changes.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regenerateProps,
				"required":   append([]string{"session_id"}, geometryRequired...),
			},
		},

		// Grid and calibration
		{
			Name:        "level_grid_points",
			Description: "List every grid point with its world position, readings and final value (user override over AI value).",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_calibrate",
			Description: "Cache a ruler calibration for the session, either derived from two or more ruler markings or given explicitly (e.g. from a calibration tap). With clear set, drop the cached calibration instead.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"markings":   markingsProp,
					"calibration": map[string]interface{}{
						"type":        "object",
						"description": "Explicit calibration, used when markings are omitted",
						"properties": map[string]interface{}{
							"axis":              map[string]interface{}{"type": "string", "enum": []string{"vertical", "horizontal"}},
							"pixel_per_unit":    map[string]interface{}{"type": "number"},
							"zero_pixel_offset": map[string]interface{}{"type": "number"},
						},
						"required": []string{"axis", "pixel_per_unit", "zero_pixel_offset"},
					},
					"clear": map[string]interface{}{
						"type":        "boolean",
						"description": "Drop the cached calibration; markings and calibration are ignored",
						"default":     false,
					},
				},
				"required": []string{"session_id"},
			},
		},

		// Measurement capture
		{
			Name:        "level_extract",
			Description: "Convert a laser dot pixel into a calibrated reading and commit it to a grid point. Uses the session's cached calibration when one exists, otherwise derives one from the supplied ruler markings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"label":      labelProp,
					"laser":      pixelProp,
					"markings":   markingsProp,
					"photo": map[string]interface{}{
						"type":        "string",
						"description": "Optional photo path to record with the reading",
					},
				},
				"required": []string{"session_id", "label", "laser"},
			},
		},
		{
			Name:        "level_capture_photo",
			Description: "Analyze a ruler photo: locate the laser dot, read the ruler numbers with OCR, extract a calibrated reading and commit it to a grid point.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"label":      labelProp,
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the photo",
					},
				},
				"required": []string{"session_id", "label", "path"},
			},
		},
		{
			Name:        "level_manual_entry",
			Description: "Enter a reading by hand. Accepts fractional inches (\"1 3/8\", \"3/4\", \"-1/2\") or millimeters. The value overrides the AI reading.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"label":      labelProp,
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Reading in the session's units",
					},
				},
				"required": []string{"session_id", "label", "text"},
			},
		},
		{
			Name:        "level_clear_override",
			Description: "Drop a point's manual value so the AI reading is final again.",
			InputSchema: pointSchema,
		},
		{
			Name:        "level_record_lidar",
			Description: "Record a LiDAR height sample, in meters, for a grid point.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"label":      labelProp,
					"height": map[string]interface{}{
						"type":        "number",
						"description": "Height in meters",
					},
				},
				"required": []string{"session_id", "label", "height"},
			},
		},

		// Analysis
		{
			Name:        "level_stats",
			Description: "Compute tolerance statistics over measured points: average, min, max, range, max pairwise delta, exceedances and pass rate.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_pass_fail",
			Description: "Compute each measured point's deviation from the average and its pass/fail flag, and store them on the points.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_height_deviations",
			Description: "Compute LiDAR height deviations from the average height and their pass/fail flags, and store them on the points.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_heatmap",
			Description: "Color each measured point green, yellow or red by its deviation relative to the tolerance.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_quality",
			Description: "Assess survey quality: tier, pass rate, measurement uncertainty and recommendations.",
			InputSchema: sessionOnlySchema,
		},
		{
			Name:        "level_fit_plane",
			Description: "Fit a plane through the points that have LiDAR heights and report its normal and tilt.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProp,
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"vertical", "svd"},
						"description": "vertical: exact for three points, vertical normal otherwise. svd: least squares. Defaults to the server setting",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "level_export",
			Description: "Export the session header and per-point records. Pass/fail flags for both channels are recomputed first.",
			InputSchema: sessionOnlySchema,
		},

		// Units
		{
			Name:        "level_parse",
			Description: "Parse a reading in fractional inches or millimeters.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text":       map[string]interface{}{"type": "string", "description": "Text to parse"},
					"units":      unitsProp,
					"resolution": resolutionProp,
				},
				"required": []string{"text", "units"},
			},
		},
		{
			Name:        "level_format",
			Description: "Format a value for display: fractional inches at a resolution, or millimeters to one decimal.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"value":      map[string]interface{}{"type": "number"},
					"units":      unitsProp,
					"resolution": resolutionProp,
				},
				"required": []string{"value", "units"},
			},
		},
		{
			Name:        "level_convert",
			Description: "Convert a value between inches and millimeters and format it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"value":      map[string]interface{}{"type": "number"},
					"from":       unitsProp,
					"to":         unitsProp,
					"resolution": resolutionProp,
				},
				"required": []string{"value", "from", "to"},
			},
		},
		{
			Name:        "level_default_tolerances",
			Description: "List the suggested tolerance choices for a unit system.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"units": unitsProp,
				},
				"required": []string{"units"},
			},
		},
		{
			Name:        "level_ocr_info",
			Description: "Report whether the Tesseract OCR engine is available and its version.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
