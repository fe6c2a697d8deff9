// Package units parses and formats floor measurements in fractional-imperial and
// metric form and converts between the two linear unit systems.
package units

import (
	"fmt"
	"strings"

	"github.com/ironsheep/level-check-mcp/internal/failure"
)

// System is a linear measurement unit system.
type System string

// Unit system constants
const (
	Imperial System = "imperial"
	Metric   System = "metric"
)

// ValidSystems contains all valid unit systems
var ValidSystems = []System{Imperial, Metric}

// IsValid reports whether s is a known unit system.
func (s System) IsValid() bool {
	for _, v := range ValidSystems {
		if s == v {
			return true
		}
	}
	return false
}

// Suffix returns the display suffix for values in this system.
func (s System) Suffix() string {
	if s == Metric {
		return "mm"
	}
	return "in"
}

// ParseSystem accepts the canonical names plus the common unit abbreviations.
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "imperial", "in", "inch", "inches":
		return Imperial, nil
	case "metric", "mm", "millimeters", "millimetres":
		return Metric, nil
	}
	return "", &failure.ValidationError{Field: "units", Value: s, Reason: "must be imperial or metric"}
}

// Fractional resolutions supported for imperial sessions, in inches.
const (
	Eighth    Resolution = 0.125
	Sixteenth Resolution = 0.0625
)

// Resolution is the quantization step, in inches, used when rendering
// fractional-imperial values. Zero means no fractional rendering.
type Resolution float64

// IsValid reports whether r is one of the supported fractional resolutions.
func (r Resolution) IsValid() bool {
	return r == Eighth || r == Sixteenth
}

func (r Resolution) String() string {
	switch r {
	case 0:
		return "none"
	case Eighth:
		return "1/8"
	case Sixteenth:
		return "1/16"
	}
	return fmt.Sprintf("%g", float64(r))
}

// ParseResolution accepts "1/8", "1/16" or their decimal equivalents. An empty
// string yields zero (no fractional rendering).
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := ParseFractionalInches(s)
	if err != nil {
		return 0, err
	}
	r := Resolution(v)
	if !r.IsValid() {
		return 0, &failure.ValidationError{Field: "resolution", Value: s, Reason: "must be 1/8 or 1/16"}
	}
	return r, nil
}
