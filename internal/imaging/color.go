package imaging

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// LaserColor is the beam color of the line laser used on site.
type LaserColor string

const (
	LaserRed   LaserColor = "red"
	LaserGreen LaserColor = "green"
)

// ParseLaserColor accepts "red" or "green", case-insensitively.
func ParseLaserColor(s string) (LaserColor, error) {
	switch LaserColor(strings.ToLower(strings.TrimSpace(s))) {
	case LaserRed:
		return LaserRed, nil
	case LaserGreen:
		return LaserGreen, nil
	}
	return "", fmt.Errorf("unknown laser color %q: must be red or green", s)
}

type hueBand struct {
	center float64 // degrees
	width  float64 // degrees either side of center
}

var laserBands = map[LaserColor]hueBand{
	LaserRed:   {center: 0, width: 25},
	LaserGreen: {center: 125, width: 35},
}

// Minimum saturation and value for a pixel to be considered laser light.
const (
	MinLaserSaturation = 0.45
	MinLaserValue      = 0.50
)

// LaserScore rates how strongly c looks like laser light of the given color,
// from 0 (not laser) to 1. The score falls off linearly with hue distance
// from the band center and scales with saturation and value.
func LaserScore(c color.Color, laser LaserColor) float64 {
	band, ok := laserBands[laser]
	if !ok {
		return 0
	}
	col, ok := colorful.MakeColor(c)
	if !ok {
		return 0 // fully transparent
	}

	h, s, v := col.Hsv()
	if s < MinLaserSaturation || v < MinLaserValue {
		return 0
	}

	d := math.Abs(h - band.center)
	if d > 180 {
		d = 360 - d
	}
	if d >= band.width {
		return 0
	}
	return (1 - d/band.width) * s * v
}
