// Package config reads server settings from the environment.
//
// Settings come from LEVEL_MCP_* environment variables. An optional .env file
// in the working directory is loaded first; variables already set in the
// environment win over the file.
//
//	LEVEL_MCP_LOG_LEVEL        debug | info | warn | error (default info)
//	LEVEL_MCP_OCR_LANGUAGE     Tesseract language (default eng)
//	LEVEL_MCP_TESSDATA_PREFIX  directory holding *.traineddata
//	LEVEL_MCP_LASER_COLOR      red | green (default red)
//	LEVEL_MCP_LASER_MIN_PIXELS smallest accepted laser blob (default 12)
//	LEVEL_MCP_PLANE_FIT        vertical | svd (default vertical)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/level-check-mcp/internal/detection"
	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/grid"
	"github.com/ironsheep/level-check-mcp/internal/imaging"
	"github.com/ironsheep/level-check-mcp/internal/ocr"
)

// Environment variable names.
const (
	EnvLogLevel       = "LEVEL_MCP_LOG_LEVEL"
	EnvOCRLanguage    = "LEVEL_MCP_OCR_LANGUAGE"
	EnvTessdataPrefix = "LEVEL_MCP_TESSDATA_PREFIX"
	EnvLaserColor     = "LEVEL_MCP_LASER_COLOR"
	EnvLaserMinPixels = "LEVEL_MCP_LASER_MIN_PIXELS"
	EnvPlaneFit       = "LEVEL_MCP_PLANE_FIT"
)

// Config holds the validated server settings.
type Config struct {
	LogLevel       slog.Level
	OCRLanguage    string
	TessdataPrefix string
	LaserColor     imaging.LaserColor
	LaserMinPixels int
	PlaneFit       grid.PlaneFit
}

// Default returns the settings used when no variable is set.
func Default() Config {
	return Config{
		LogLevel:       slog.LevelInfo,
		OCRLanguage:    ocr.DefaultLanguage,
		LaserColor:     imaging.LaserRed,
		LaserMinPixels: detection.DefaultMinPixels,
		PlaneFit:       grid.FitVertical,
	}
}

// Load reads envFile, if it exists, and then the environment. An empty
// envFile skips the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a variable lookup function such as
// os.LookupEnv. Unset or blank variables keep their defaults.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvLogLevel); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return Config{}, &failure.ValidationError{Field: EnvLogLevel, Value: v, Reason: "must be debug, info, warn or error"}
		}
		cfg.LogLevel = level
	}

	if v, ok := get(EnvOCRLanguage); ok {
		cfg.OCRLanguage = v
	}
	if v, ok := get(EnvTessdataPrefix); ok {
		if info, err := os.Stat(v); err != nil || !info.IsDir() {
			return Config{}, &failure.ValidationError{Field: EnvTessdataPrefix, Value: v, Reason: "must be an existing directory"}
		}
		cfg.TessdataPrefix = v
	}

	if v, ok := get(EnvLaserColor); ok {
		c, err := imaging.ParseLaserColor(v)
		if err != nil {
			return Config{}, &failure.ValidationError{Field: EnvLaserColor, Value: v, Reason: "must be red or green"}
		}
		cfg.LaserColor = c
	}

	if v, ok := get(EnvLaserMinPixels); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, &failure.ValidationError{Field: EnvLaserMinPixels, Value: v, Reason: "must be a positive integer"}
		}
		cfg.LaserMinPixels = n
	}

	if v, ok := get(EnvPlaneFit); ok {
		switch fit := grid.PlaneFit(strings.ToLower(v)); fit {
		case grid.FitVertical, grid.FitLeastSquares:
			cfg.PlaneFit = fit
		default:
			return Config{}, &failure.ValidationError{Field: EnvPlaneFit, Value: v, Reason: "must be vertical or svd"}
		}
	}

	return cfg, nil
}

// OCR returns the OCR engine settings.
func (c Config) OCR() ocr.Config {
	return ocr.Config{Language: c.OCRLanguage, TessdataPrefix: c.TessdataPrefix}
}

// Laser returns the laser detection settings.
func (c Config) Laser() detection.LaserOptions {
	return detection.LaserOptions{Color: c.LaserColor, MinPixels: c.LaserMinPixels}
}
