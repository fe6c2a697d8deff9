// Package server implements the MCP (Model Context Protocol) server for
// level-check surveys.
//
// This package provides a JSON-RPC 2.0 server that exposes the survey store,
// the measurement extractor and the tolerance engine through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Sessions:
//   - level_session_create, level_session_get, level_session_delete
//   - level_session_list, level_session_regenerate
//
// Grid and calibration:
//   - level_grid_points: Labeled grid points with plane-projected positions
//   - level_calibrate: Pixel-to-value calibration from ruler markings
//
// Recording:
//   - level_extract: Measurement from a laser pixel and ruler markings
//   - level_capture_photo: Same, with the laser and ruler read from a photo
//   - level_manual_entry, level_clear_override: Manual overrides
//   - level_record_lidar: Height readings from a LiDAR scan
//
// Analysis:
//   - level_stats, level_pass_fail, level_height_deviations
//   - level_heatmap, level_quality, level_fit_plane, level_export
//
// Utilities:
//   - level_parse, level_format, level_convert
//   - level_default_tolerances, level_ocr_info
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors with code -32000. The message
// is the failure category (ValidationError, CalibrationRequired, ...) and data
// carries the error text. Malformed request lines get a -32700 response and
// unknown methods get -32601.
//
// # Usage
//
//	srv := server.New(server.Options{Analyzer: analyzer, OCR: engine, Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Error("server stopped", slog.Any("error", err))
//	}
package server
