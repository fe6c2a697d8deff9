package grid

import (
	"strconv"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/level-check-mcp/internal/failure"
)

// Grid dimension bounds. Rows are lettered A-Z, which caps them at 26.
const (
	MinRows = 2
	MaxRows = 26
	MinCols = 2
	MaxCols = 50
)

// Sample is one labeled grid location.
type Sample struct {
	Row       int       `json:"row"`        // 0-based row index
	Col       int       `json:"col"`        // 0-based column index
	RowLetter string    `json:"row_letter"` // "A" for row 0
	ColIndex  int       `json:"col_index"`  // 1-based column number
	Local     r3.Vector `json:"local"`
	World     r3.Vector `json:"world"`
}

// Label returns the "{rowLetter}{colIndex}" label, e.g. "C12".
func (s Sample) Label() string {
	return s.RowLetter + strconv.Itoa(s.ColIndex)
}

// RowLetter returns the letter for a 0-based row index.
func RowLetter(row int) string {
	return string(rune('A' + row))
}

// ValidateGridDimensions checks rows in [2,26] and cols in [2,50].
func ValidateGridDimensions(rows, cols int) error {
	if rows < MinRows || rows > MaxRows {
		return &failure.ValidationError{Field: "rows", Value: rows, Reason: "must be between 2 and 26"}
	}
	if cols < MinCols || cols > MaxCols {
		return &failure.ValidationError{Field: "cols", Value: cols, Reason: "must be between 2 and 50"}
	}
	return nil
}

// GridWorldPositions lays rows*cols samples evenly over a width x length
// rectangle centered on t's origin and returns them in row-major order.
// The outermost samples sit exactly on the rectangle's corners.
func GridWorldPositions(t Transform, width, length float64, rows, cols int) ([]Sample, error) {
	if err := ValidateGridDimensions(rows, cols); err != nil {
		return nil, err
	}

	stepX := width / float64(cols-1)
	stepZ := length / float64(rows-1)
	midCol := float64(cols-1) / 2
	midRow := float64(rows-1) / 2

	samples := make([]Sample, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			local := r3.Vector{
				X: (float64(c) - midCol) * stepX,
				Y: 0,
				Z: (float64(r) - midRow) * stepZ,
			}
			samples = append(samples, Sample{
				Row:       r,
				Col:       c,
				RowLetter: RowLetter(r),
				ColIndex:  c + 1,
				Local:     local,
				World:     t.Apply(local),
			})
		}
	}
	return samples, nil
}
