package ocr

import (
	"image"
	"sort"
	"strings"

	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Strip maps coordinates in a prepared ruler strip back to the photo it was
// cut from.
type Strip struct {
	// Origin is the top-left corner of the crop in photo coordinates.
	Origin image.Point

	// Scale is the resize factor applied after cropping. Zero means 1.
	Scale float64
}

// ToPhoto converts a strip position to photo coordinates.
func (s Strip) ToPhoto(x, y float64) measure.Pixel {
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	return measure.Pixel{
		X: float64(s.Origin.X) + x/scale,
		Y: float64(s.Origin.Y) + y/scale,
	}
}

// ParseRulerMarkings keeps the words that read as non-negative numbers
// (decimals, fractions or mixed numbers) and turns them into ruler markings
// positioned at their box centers in photo coordinates.
//
// When the same value is read more than once, the most confident reading is
// kept. The result is sorted by value.
func ParseRulerMarkings(words []Word, strip Strip) []measure.RulerMarking {
	byValue := make(map[float64]measure.RulerMarking)
	for _, w := range words {
		text := strings.Trim(strings.TrimSpace(w.Text), ".")
		if text == "" {
			continue
		}
		v, err := units.ParseFractionalInches(text)
		if err != nil || v < 0 {
			continue
		}

		cx, cy := w.Bounds.Center()
		m := measure.RulerMarking{
			Value:      v,
			Text:       text,
			Confidence: w.Confidence,
			Pixel:      strip.ToPhoto(cx, cy),
		}
		if prev, ok := byValue[v]; ok && prev.Confidence >= m.Confidence {
			continue
		}
		byValue[v] = m
	}

	markings := make([]measure.RulerMarking, 0, len(byValue))
	for _, m := range byValue {
		markings = append(markings, m)
	}
	sort.Slice(markings, func(i, j int) bool {
		return markings[i].Value < markings[j].Value
	})
	return markings
}
