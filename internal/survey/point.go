package survey

import (
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/tolerance"
)

// GridPoint is one labeled sample location and everything recorded for it.
// Optional readings are pointers; nil means not recorded.
type GridPoint struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	RowLetter     string    `json:"row_letter"`
	ColIndex      int       `json:"col_index"`
	WorldPosition r3.Vector `json:"world_position"`

	AIValue      *float64       `json:"ai_value,omitempty"`
	AIDisplay    string         `json:"ai_display,omitempty"`
	AIConfidence *float64       `json:"ai_confidence,omitempty"`
	AIMethod     measure.Method `json:"ai_method,omitempty"`

	UserValue      *float64 `json:"user_value,omitempty"`
	UserDisplay    string   `json:"user_display,omitempty"`
	UserOverridden bool     `json:"user_overridden"`

	// LidarHeight is a raw depth sample in meters.
	LidarHeight *float64 `json:"lidar_height,omitempty"`

	// Value channel: final value minus the session average.
	DeviationFromAvg *float64 `json:"deviation_from_avg,omitempty"`
	PassFail         *bool    `json:"pass_fail,omitempty"`

	// Height channel: LiDAR height minus the average height, in meters.
	HeightDeviation *float64 `json:"height_deviation,omitempty"`
	HeightPassFail  *bool    `json:"height_pass_fail,omitempty"`

	Photos []string `json:"photos,omitempty"`
}

// Label returns the "{rowLetter}{colIndex}" label.
func (p GridPoint) Label() string {
	return p.RowLetter + strconv.Itoa(p.ColIndex)
}

// FinalValue is the user value when present, else the AI value.
func (p GridPoint) FinalValue() *float64 {
	if p.UserValue != nil {
		return p.UserValue
	}
	return p.AIValue
}

// FinalDisplay follows the same precedence as FinalValue.
func (p GridPoint) FinalDisplay() string {
	if p.UserValue != nil {
		return p.UserDisplay
	}
	return p.AIDisplay
}

// Measured reports whether the point has a final value.
func (p GridPoint) Measured() bool {
	return p.FinalValue() != nil
}

func (p GridPoint) sample() tolerance.Sample {
	return tolerance.Sample{
		Label:       p.Label(),
		Value:       p.FinalValue(),
		LidarHeight: p.LidarHeight,
	}
}

// clone copies p so the caller cannot alias the store's slices. Pointer fields
// are shared: the store replaces them and never writes through them.
func (p GridPoint) clone() GridPoint {
	if p.Photos != nil {
		p.Photos = append([]string(nil), p.Photos...)
	}
	return p
}

func ptr[T any](v T) *T {
	return &v
}
