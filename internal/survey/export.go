package survey

import (
	"github.com/google/uuid"

	"github.com/ironsheep/level-check-mcp/internal/units"
)

// SessionRecord is the exported session header.
type SessionRecord struct {
	ID         uuid.UUID    `json:"id"`
	Units      units.System `json:"units"`
	Tolerance  float64      `json:"tolerance"`
	Rows       int          `json:"rows"`
	Cols       int          `json:"cols"`
	RectWidth  float64      `json:"rectWidth"`
	RectLength float64      `json:"rectLength"`
}

// PointRecord is the exported per-point row.
type PointRecord struct {
	Label        string   `json:"label"`
	AIValue      *float64 `json:"aiValue"`
	AIConfidence *float64 `json:"aiConfidence"`
	FinalValue   *float64 `json:"finalValue"`
	LidarHeight  *float64 `json:"lidarHeight"`
	Deviation    *float64 `json:"deviation"`
	PassFail     *bool    `json:"passFail"`
}

// Export is a full session dump for persistence or report rendering.
type Export struct {
	Session SessionRecord `json:"session"`
	Points  []PointRecord `json:"points"`
}

// Export snapshots the session into its exported shape. Deviation and
// PassFail are the committed flags, nil when a write has made them stale.
func (s *Session) Export() Export {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.geometry
	out := Export{
		Session: SessionRecord{
			ID:         s.id,
			Units:      g.Units,
			Tolerance:  g.Tolerance,
			Rows:       g.Rows,
			Cols:       g.Cols,
			RectWidth:  g.Width,
			RectLength: g.Length,
		},
		Points: make([]PointRecord, len(s.points)),
	}
	for i, p := range s.points {
		out.Points[i] = PointRecord{
			Label:        p.Label(),
			AIValue:      p.AIValue,
			AIConfidence: p.AIConfidence,
			FinalValue:   p.FinalValue(),
			LidarHeight:  p.LidarHeight,
			Deviation:    p.DeviationFromAvg,
			PassFail:     p.PassFail,
		}
	}
	return out
}
